package memoryhost_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaanihq/voicecore/language"
	"github.com/vaanihq/voicecore/sessions"
	"github.com/vaanihq/voicecore/sessions/hosttest"
	"github.com/vaanihq/voicecore/sessions/memoryhost"
)

func TestHostConformance(t *testing.T) {
	hosttest.RunHostTests(t, func(t *testing.T) sessions.Host {
		h := memoryhost.New()
		t.Cleanup(func() { _ = h.Close() })
		return h
	})
}

func TestCreateGetRoundTrip(t *testing.T) {
	h := memoryhost.New()
	defer h.Close()
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, "s1", []byte(`{"a":1}`), time.Minute))

	rec, err := h.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []byte(`{"a":1}`), rec.Data)
	assert.Equal(t, int64(1), rec.Version)

	rec, err = h.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCreateRejectsDuplicate(t *testing.T) {
	h := memoryhost.New()
	defer h.Close()
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, "s1", []byte(`{}`), time.Minute))
	err := h.Create(ctx, "s1", []byte(`{}`), time.Minute)
	assert.ErrorIs(t, err, sessions.ErrSessionExists)
}

func TestCreateReplacesExpiredRecord(t *testing.T) {
	h := memoryhost.New()
	defer h.Close()
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, "s1", []byte(`{"gen":1}`), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, h.Create(ctx, "s1", []byte(`{"gen":2}`), time.Minute))
	rec, err := h.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []byte(`{"gen":2}`), rec.Data)
	assert.Equal(t, int64(1), rec.Version)
}

func TestCompareAndSwapVersioning(t *testing.T) {
	h := memoryhost.New()
	defer h.Close()
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, "s1", []byte(`{"n":0}`), time.Minute))

	require.NoError(t, h.CompareAndSwap(ctx, "s1", 1, []byte(`{"n":1}`), time.Minute))

	// A second writer still holding version 1 must lose.
	err := h.CompareAndSwap(ctx, "s1", 1, []byte(`{"n":9}`), time.Minute)
	assert.ErrorIs(t, err, sessions.ErrVersionConflict)

	rec, err := h.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"n":1}`), rec.Data)
	assert.Equal(t, int64(2), rec.Version)

	err = h.CompareAndSwap(ctx, "missing", 1, []byte(`{}`), time.Minute)
	assert.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestGetEvictsExpired(t *testing.T) {
	h := memoryhost.New()
	defer h.Close()
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, "s1", []byte(`{}`), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)

	rec, err := h.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	ids, err := h.ListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestListIDsSkipsExpired(t *testing.T) {
	h := memoryhost.New()
	defer h.Close()
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, "live", []byte(`{}`), time.Minute))
	require.NoError(t, h.Create(ctx, "stale", []byte(`{}`), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)

	ids, err := h.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"live"}, ids)
}

func TestDelete(t *testing.T) {
	h := memoryhost.New()
	defer h.Close()
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, "s1", []byte(`{}`), time.Minute))
	require.NoError(t, h.Delete(ctx, "s1"))
	require.NoError(t, h.Delete(ctx, "s1"), "delete is idempotent")

	rec, err := h.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestConcurrentCASExactlyOneWinnerPerRound(t *testing.T) {
	h := memoryhost.New()
	defer h.Close()
	ctx := context.Background()

	require.NoError(t, h.Create(ctx, "s1", []byte(`{"n":0}`), time.Minute))

	const writers = 8
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := h.CompareAndSwap(ctx, "s1", 1, []byte(fmt.Sprintf(`{"n":%d}`, i)), time.Minute)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, sessions.ErrVersionConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins)
	rec, err := h.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)
}

// The full lifecycle over the in-memory host, exercising the manager the
// way an embedded deployment would.
func TestManagerOverMemoryHost(t *testing.T) {
	h := memoryhost.New()
	m, err := sessions.NewManager(sessions.Config{
		Host:     h,
		Registry: language.NewDefaultRegistry(),
	})
	require.NoError(t, err)
	defer h.Close()
	ctx := context.Background()

	s, err := m.Create(ctx, sessions.DeviceInfo{
		DeviceType:         "mobile",
		SupportsAudio:      true,
		SupportsMicrophone: true,
	}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", s.LanguagePreference)

	for i := 0; i < 3; i++ {
		_, err = m.AppendTurn(ctx, s.SessionID, sessions.QueryHistory{
			UserInput:        fmt.Sprintf("query %d", i),
			ResponseText:     "ok",
			DetectedLanguage: "hi",
			InputType:        sessions.InputTypeVoice,
		})
		require.NoError(t, err)
	}

	turns, err := m.RecentTurns(ctx, s.SessionID, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "query 2", turns[1].UserInput)

	require.NoError(t, m.Terminate(ctx, s.SessionID))
	_, err = m.Get(ctx, s.SessionID)
	assert.ErrorIs(t, err, sessions.ErrSessionExpired)
}
