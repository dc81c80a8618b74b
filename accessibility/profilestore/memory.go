package profilestore

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vaanihq/voicecore/accessibility"
	"github.com/vaanihq/voicecore/wire"
)

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

func (it *memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// Memory is an LRU-bounded in-process Store. Suitable for single-process
// deployments and tests.
type Memory struct {
	cache *lru.Cache[string, *memoryItem]
}

var _ Store = (*Memory)(nil)

// NewMemory creates a Memory store holding at most maxProfiles entries.
func NewMemory(maxProfiles int) (*Memory, error) {
	cache, err := lru.New[string, *memoryItem](maxProfiles)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Memory{cache: cache}, nil
}

func (m *Memory) Put(ctx context.Context, profile *accessibility.Profile, ttl time.Duration) error {
	data, err := wire.Encode(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	item := &memoryItem{data: data}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	m.cache.Add(profile.SessionID, item)
	return nil
}

func (m *Memory) Get(ctx context.Context, sessionID string) (*accessibility.Profile, error) {
	item, ok := m.cache.Get(sessionID)
	if !ok {
		return nil, nil
	}
	if item.expired(time.Now()) {
		m.cache.Remove(sessionID)
		return nil, nil
	}
	var profile accessibility.Profile
	if err := wire.Decode(item.data, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

func (m *Memory) Delete(ctx context.Context, sessionID string) error {
	m.cache.Remove(sessionID)
	return nil
}

func (m *Memory) Close() error {
	m.cache.Purge()
	return nil
}
