package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when no record exists for a session
	// id. Recoverable only by creating a new session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session is past its timeout or
	// already terminated. Like not-found, the only recovery is a new
	// session; there is no silent revival.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionExists is returned by Host.Create when the id is taken.
	ErrSessionExists = errors.New("session already exists")

	// ErrVersionConflict is returned by Host.CompareAndSwap when the
	// stored version moved since the caller read it.
	ErrVersionConflict = errors.New("session version conflict")
)

// Record is one stored session payload with its concurrency version.
type Record struct {
	Data    []byte
	Version int64
}

// Host is the minimal durability contract the Manager needs: versioned
// opaque records keyed by session id. Implementations MUST be safe for
// concurrent use and MUST apply CompareAndSwap atomically per key; they MUST
// NOT serialize operations on distinct ids through a shared lock held across
// I/O.
type Host interface {
	// Create stores a new record at version 1. Fails with
	// ErrSessionExists when the id is already present.
	Create(ctx context.Context, sessionID string, data []byte, ttl time.Duration) error

	// Get returns the current record, or (nil, nil) when the id is absent.
	Get(ctx context.Context, sessionID string) (*Record, error)

	// CompareAndSwap replaces the record only if its stored version still
	// equals expect, incrementing the version and refreshing the TTL.
	// Fails with ErrVersionConflict on a version mismatch and
	// ErrSessionNotFound when the record is gone.
	CompareAndSwap(ctx context.Context, sessionID string, expect int64, data []byte, ttl time.Duration) error

	// Delete removes the record. Deleting an absent id is a no-op.
	Delete(ctx context.Context, sessionID string) error

	// ListIDs returns a snapshot of the stored session ids, for sweeps.
	ListIDs(ctx context.Context) ([]string, error)

	// Close releases the host's resources.
	Close() error
}
