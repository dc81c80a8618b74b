// Package profilestore persists accessibility profiles keyed by session id.
// Profiles outlive individual operations but not the platform's retention
// window, so both backends support an optional TTL.
package profilestore

import (
	"context"
	"time"

	"github.com/vaanihq/voicecore/accessibility"
)

// Store persists one accessibility profile per session.
type Store interface {
	// Put stores the profile under its session id. A zero ttl means no
	// expiration.
	Put(ctx context.Context, profile *accessibility.Profile, ttl time.Duration) error

	// Get returns the profile for a session id, or nil when none is
	// stored. Errors are reserved for backend failures.
	Get(ctx context.Context, sessionID string) (*accessibility.Profile, error)

	// Delete removes the profile for a session id. Deleting an absent
	// profile is not an error.
	Delete(ctx context.Context, sessionID string) error

	Close() error
}
