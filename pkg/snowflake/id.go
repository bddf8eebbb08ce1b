package snowflake

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ID is a 64-bit snowflake identifier. It is kept as an unsigned integer in
// memory and rendered as a decimal string everywhere else, since JSON
// consumers frequently parse numbers as float64 and would lose precision.
type ID uint64

// Zero is the zero ID and never produced by a Generator at a sane clock.
const Zero ID = 0

// ErrInvalidID reports a string that is not a decimal uint64.
var ErrInvalidID = errors.New("snowflake: invalid id")

// Parts is the decoded form of an ID.
type Parts struct {
	Timestamp   time.Time
	TimestampMs int64 // milliseconds since Epoch
	WorkerID    int64
	Sequence    int64
}

// Decode extracts timestamp, worker and sequence from id. It is pure.
func Decode(id ID) Parts {
	v := uint64(id)
	ms := int64(v >> timeShift & timestampMask)
	return Parts{
		Timestamp:   Epoch.Add(time.Duration(ms) * time.Millisecond),
		TimestampMs: ms,
		WorkerID:    int64(v >> workerShift & MaxWorkerID),
		Sequence:    int64(v & MaxSequence),
	}
}

// ParseID parses the decimal string form of an ID.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidID
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Zero, ErrInvalidID
	}
	return ID(v), nil
}

// String returns the decimal form.
func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Uint64 returns the raw value.
func (id ID) Uint64() uint64 { return uint64(id) }

// Time is shorthand for Decode(id).Timestamp.
func (id ID) Time() time.Time { return Decode(id).Timestamp }

// MarshalJSON encodes the ID as a quoted decimal string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(id.String())), nil
}

// UnmarshalJSON accepts a quoted decimal string. A bare number is accepted
// too, for clients that send one anyway.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	v, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = v
	return nil
}
