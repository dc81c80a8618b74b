// Package hosttest provides a reusable conformance suite for sessions.Host
// implementations. Every backend is expected to pass the full suite.
package hosttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vaanihq/voicecore/sessions"
)

// HostFactory creates a fresh Host instance for testing. The factory owns
// cleanup; register it with t.Cleanup.
type HostFactory func(t *testing.T) sessions.Host

// RunHostTests runs the complete Host conformance suite against the
// provided factory.
func RunHostTests(t *testing.T, factory HostFactory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, factory) })
	t.Run("CreateRejectsDuplicate", func(t *testing.T) { testCreateRejectsDuplicate(t, factory) })
	t.Run("GetMissingReturnsNil", func(t *testing.T) { testGetMissing(t, factory) })
	t.Run("CompareAndSwapAdvancesVersion", func(t *testing.T) { testCASAdvancesVersion(t, factory) })
	t.Run("CompareAndSwapRejectsStaleVersion", func(t *testing.T) { testCASRejectsStale(t, factory) })
	t.Run("CompareAndSwapMissingSession", func(t *testing.T) { testCASMissing(t, factory) })
	t.Run("ConcurrentCASSingleWinner", func(t *testing.T) { testConcurrentCAS(t, factory) })
	t.Run("DeleteIsIdempotent", func(t *testing.T) { testDelete(t, factory) })
	t.Run("ListIDsIncludesLiveSessions", func(t *testing.T) { testListIDs(t, factory) })
	t.Run("TTLExpiresRecord", func(t *testing.T) { testTTL(t, factory) })
}

func testCreateAndGet(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx := context.Background()
	id := uuid.NewString()

	if err := h.Create(ctx, id, []byte(`{"k":"v"}`), time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, err := h.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if string(rec.Data) != `{"k":"v"}` {
		t.Fatalf("unexpected data: %s", rec.Data)
	}
	if rec.Version != 1 {
		t.Fatalf("expected version 1, got %d", rec.Version)
	}
}

func testCreateRejectsDuplicate(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx := context.Background()
	id := uuid.NewString()

	if err := h.Create(ctx, id, []byte(`{}`), time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.Create(ctx, id, []byte(`{}`), time.Minute); !errors.Is(err, sessions.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}
}

func testGetMissing(t *testing.T, factory HostFactory) {
	h := factory(t)

	rec, err := h.Get(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func testCASAdvancesVersion(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx := context.Background()
	id := uuid.NewString()

	if err := h.Create(ctx, id, []byte(`{"n":0}`), time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.CompareAndSwap(ctx, id, 1, []byte(`{"n":1}`), time.Minute); err != nil {
		t.Fatalf("cas: %v", err)
	}

	rec, err := h.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Version != 2 {
		t.Fatalf("expected version 2, got %d", rec.Version)
	}
	if string(rec.Data) != `{"n":1}` {
		t.Fatalf("unexpected data: %s", rec.Data)
	}
}

func testCASRejectsStale(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx := context.Background()
	id := uuid.NewString()

	if err := h.Create(ctx, id, []byte(`{"n":0}`), time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.CompareAndSwap(ctx, id, 1, []byte(`{"n":1}`), time.Minute); err != nil {
		t.Fatalf("cas: %v", err)
	}
	if err := h.CompareAndSwap(ctx, id, 1, []byte(`{"n":9}`), time.Minute); !errors.Is(err, sessions.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	rec, err := h.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(rec.Data) != `{"n":1}` {
		t.Fatalf("stale write must not land, got: %s", rec.Data)
	}
}

func testCASMissing(t *testing.T, factory HostFactory) {
	h := factory(t)

	err := h.CompareAndSwap(context.Background(), uuid.NewString(), 1, []byte(`{}`), time.Minute)
	if !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func testConcurrentCAS(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx := context.Background()
	id := uuid.NewString()

	if err := h.Create(ctx, id, []byte(`{"n":0}`), time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 8
	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.CompareAndSwap(ctx, id, 1, []byte(`{"n":1}`), time.Minute)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, sessions.ErrVersionConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func testDelete(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx := context.Background()
	id := uuid.NewString()

	if err := h.Create(ctx, id, []byte(`{}`), time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := h.Delete(ctx, id); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	rec, err := h.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec != nil {
		t.Fatal("expected record gone after delete")
	}
}

func testListIDs(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx := context.Background()
	id := uuid.NewString()

	if err := h.Create(ctx, id, []byte(`{}`), time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}

	ids, err := h.ListIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, got := range ids {
		if got == id {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected %s in listing, got %v", id, ids)
	}
}

func testTTL(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx := context.Background()
	id := uuid.NewString()

	if err := h.Create(ctx, id, []byte(`{}`), 50*time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := h.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if rec == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("record did not expire")
}
