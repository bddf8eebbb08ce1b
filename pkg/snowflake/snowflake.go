package snowflake

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Bit layout of an ID, most significant first:
//
//	| 42 bits timestamp (ms since Epoch) | 10 bits worker | 12 bits sequence |
const (
	TimestampBits = 42
	WorkerIDBits  = 10
	SequenceBits  = 12

	MaxWorkerID = 1<<WorkerIDBits - 1 // 1023
	MaxSequence = 1<<SequenceBits - 1 // 4095

	timestampMask = 1<<TimestampBits - 1
	workerShift   = SequenceBits
	timeShift     = SequenceBits + WorkerIDBits
)

// Epoch is the custom epoch IDs are measured from (2015-01-01T00:00:00.000Z).
var Epoch = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrWorkerIDOutOfRange is returned when a generator is configured with a
	// worker id outside [0, MaxWorkerID]. It is a configuration error and is
	// not retryable.
	ErrWorkerIDOutOfRange = errors.New("snowflake: worker id out of range")

	// ErrClockRegression is returned when the wall clock moved backwards
	// since the last generated ID (NTP step-back, VM migration). Retrying
	// cannot fix a backwards clock, callers must not retry automatically.
	ErrClockRegression = errors.New("snowflake: clock moved backwards")
)

// Generator produces IDs for one worker. It is safe for concurrent use; all
// sequence and timestamp updates happen under a single mutex so no two
// callers ever observe the same (timestamp, sequence) pair.
type Generator struct {
	workerID int64
	now      func() time.Time

	mu            sync.Mutex
	sequence      int64
	lastTimestamp int64
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock, useful for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New returns a generator for the given worker id.
func New(workerID int64, opts ...Option) (*Generator, error) {
	if workerID < 0 || workerID > MaxWorkerID {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrWorkerIDOutOfRange, workerID, MaxWorkerID)
	}

	g := &Generator{
		workerID:      workerID,
		now:           time.Now,
		lastTimestamp: -1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// NewFromHost returns a generator whose worker id is derived from the
// hostname and process id. See DeriveWorkerID.
func NewFromHost(opts ...Option) (*Generator, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return New(DeriveWorkerID(host, os.Getpid()), opts...)
}

// DeriveWorkerID hashes "{hostname}:{pid}" and masks it to 10 bits. The
// result is stable for the same host and pid but two processes can collide;
// there is no central allocator.
func DeriveWorkerID(hostname string, pid int) int64 {
	sum := blake2b.Sum256([]byte(hostname + ":" + strconv.Itoa(pid)))
	return int64(binary.BigEndian.Uint64(sum[:8]) & MaxWorkerID)
}

// WorkerID reports the worker id baked into every ID from this generator.
func (g *Generator) WorkerID() int64 { return g.workerID }

// Generate returns the next ID.
//
// When more than 4096 IDs are requested within one millisecond the call spins
// (holding the lock) until the clock advances. A clock that moved backwards
// yields ErrClockRegression and no ID.
func (g *Generator) Generate() (ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := g.millis()
	if ts < g.lastTimestamp {
		return 0, fmt.Errorf("%w: refusing to generate for %dms", ErrClockRegression, g.lastTimestamp-ts)
	}

	if ts == g.lastTimestamp {
		g.sequence = (g.sequence + 1) & MaxSequence
		if g.sequence == 0 {
			ts = g.waitNextMillis(g.lastTimestamp)
		}
	} else {
		g.sequence = 0
	}

	g.lastTimestamp = ts

	id := (ts&timestampMask)<<timeShift | g.workerID<<workerShift | g.sequence
	return ID(id), nil
}

// MustGenerate is like Generate but panics on error.
func (g *Generator) MustGenerate() ID {
	id, err := g.Generate()
	if err != nil {
		panic(err)
	}
	return id
}

func (g *Generator) millis() int64 {
	return g.now().Sub(Epoch).Milliseconds()
}

// waitNextMillis busy-polls the clock until it passes last. The caller holds
// g.mu so no other caller can interleave a sequence update.
func (g *Generator) waitNextMillis(last int64) int64 {
	ts := g.millis()
	for ts <= last {
		ts = g.millis()
	}
	return ts
}
