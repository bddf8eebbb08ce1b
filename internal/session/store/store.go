package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sessiond/internal/session/domain"
)

var ErrNotFound = errors.New("store: not found")

// Sessions is the session table. Concrete drivers (memory, sqlite) implement
// it. Every method is atomic with respect to the others, so read-modify-write
// sequences such as "delete all for user" never lose concurrent updates.
type Sessions interface {
	// Get returns the session with id, or ErrNotFound.
	Get(ctx context.Context, id string) (domain.Session, error)

	// Set inserts or replaces a session.
	Set(ctx context.Context, s domain.Session) error

	// Touch bumps last_activity. Missing sessions return ErrNotFound.
	Touch(ctx context.Context, id string, at time.Time) error

	// Delete removes a session and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteByUser removes every session for userID and returns them.
	DeleteByUser(ctx context.Context, userID string) ([]domain.Session, error)

	// DeleteIdle removes sessions whose last activity is before cutoff and
	// returns them.
	DeleteIdle(ctx context.Context, cutoff time.Time) ([]domain.Session, error)

	// ListByUser returns the sessions for userID, most recently active first.
	ListByUser(ctx context.Context, userID string) ([]domain.Session, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
