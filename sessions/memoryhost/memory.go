package memoryhost

import (
	"context"
	"sync"
	"time"

	"github.com/vaanihq/voicecore/sessions"
)

// Host is an in-memory implementation of sessions.Host.
type Host struct {
	mu      sync.RWMutex
	records map[string]*entry
}

type entry struct {
	mu        sync.Mutex
	data      []byte
	version   int64
	expiresAt time.Time // zero means no TTL
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// New returns an empty host.
func New() *Host {
	return &Host{records: make(map[string]*entry)}
}

func (h *Host) Create(ctx context.Context, sessionID string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.records[sessionID]; ok {
		e.mu.Lock()
		live := !e.expired(now)
		e.mu.Unlock()
		if live {
			return sessions.ErrSessionExists
		}
	}
	e := &entry{data: append([]byte(nil), data...), version: 1}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	h.records[sessionID] = e
	return nil
}

func (h *Host) Get(ctx context.Context, sessionID string) (*sessions.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := h.lookup(sessionID)
	if e == nil {
		return nil, nil
	}

	e.mu.Lock()
	if e.expired(time.Now()) {
		e.mu.Unlock()
		h.evict(sessionID, e)
		return nil, nil
	}
	rec := &sessions.Record{
		Data:    append([]byte(nil), e.data...),
		Version: e.version,
	}
	e.mu.Unlock()
	return rec, nil
}

func (h *Host) CompareAndSwap(ctx context.Context, sessionID string, expect int64, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := h.lookup(sessionID)
	if e == nil {
		return sessions.ErrSessionNotFound
	}

	e.mu.Lock()
	if e.expired(time.Now()) {
		e.mu.Unlock()
		h.evict(sessionID, e)
		return sessions.ErrSessionNotFound
	}
	if e.version != expect {
		e.mu.Unlock()
		return sessions.ErrVersionConflict
	}
	e.data = append([]byte(nil), data...)
	e.version++
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	e.mu.Unlock()
	return nil
}

func (h *Host) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	delete(h.records, sessionID)
	h.mu.Unlock()
	return nil
}

func (h *Host) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := time.Now()

	h.mu.RLock()
	ids := make([]string, 0, len(h.records))
	for id, e := range h.records {
		e.mu.Lock()
		live := !e.expired(now)
		e.mu.Unlock()
		if live {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()
	return ids, nil
}

func (h *Host) Close() error {
	h.mu.Lock()
	h.records = make(map[string]*entry)
	h.mu.Unlock()
	return nil
}

// lookup fetches the live entry pointer under the map read lock.
func (h *Host) lookup(sessionID string) *entry {
	h.mu.RLock()
	e := h.records[sessionID]
	h.mu.RUnlock()
	return e
}

// evict removes an expired entry. Called without e.mu held; the pointer
// identity check under the map lock tolerates a concurrent replacement.
func (h *Host) evict(sessionID string, e *entry) {
	h.mu.Lock()
	if cur, ok := h.records[sessionID]; ok && cur == e {
		delete(h.records, sessionID)
	}
	h.mu.Unlock()
}

// Interface compliance
var _ sessions.Host = (*Host)(nil)
