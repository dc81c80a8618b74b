package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaanihq/voicecore/language"
	"github.com/vaanihq/voicecore/validate"
)

// testHost is a minimal in-memory Host for tests. failCAS injects version
// conflicts to exercise the retry loop.
type testHost struct {
	mu      sync.Mutex
	records map[string]*Record
	failCAS int

	// onGet, when set, runs once after the next Get returns its snapshot.
	// Used to interleave a competing mutation between a read and its CAS.
	onGet func(id string)
}

func newTestHost() *testHost {
	return &testHost{records: make(map[string]*Record)}
}

func (h *testHost) Create(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.records[id]; ok {
		return ErrSessionExists
	}
	h.records[id] = &Record{Data: append([]byte(nil), data...), Version: 1}
	return nil
}

func (h *testHost) Get(ctx context.Context, id string) (*Record, error) {
	h.mu.Lock()
	rec, ok := h.records[id]
	if !ok {
		h.mu.Unlock()
		return nil, nil
	}
	snap := &Record{Data: append([]byte(nil), rec.Data...), Version: rec.Version}
	hook := h.onGet
	h.onGet = nil
	h.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return snap, nil
}

func (h *testHost) CompareAndSwap(ctx context.Context, id string, expect int64, data []byte, ttl time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[id]
	if !ok {
		return ErrSessionNotFound
	}
	if h.failCAS > 0 {
		h.failCAS--
		return ErrVersionConflict
	}
	if rec.Version != expect {
		return ErrVersionConflict
	}
	rec.Data = append([]byte(nil), data...)
	rec.Version++
	return nil
}

func (h *testHost) Delete(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.records, id)
	return nil
}

func (h *testHost) ListIDs(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.records))
	for id := range h.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *testHost) Close() error { return nil }

var _ Host = (*testHost)(nil)

// fakeClock is a mutable clock for driving expiry deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T, host Host, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Host:     host,
		Registry: language.NewDefaultRegistry(),
		Clock:    clock.Now,
	})
	require.NoError(t, err)
	return m
}

func testDevice() DeviceInfo {
	return DeviceInfo{DeviceType: "mobile", SupportsAudio: true, SupportsMicrophone: true}
}

func TestCreateResolvesLanguage(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, newTestHost(), clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", s.LanguagePreference)
	assert.True(t, s.IsActive)
	assert.Equal(t, clock.Now(), s.LastActivity)

	_, err = m.Create(ctx, testDevice(), "fr")
	assert.ErrorIs(t, err, language.ErrUnsupportedLanguage)

	_, err = m.Create(ctx, DeviceInfo{}, "en")
	var ve *validate.Error
	assert.ErrorAs(t, err, &ve)
}

func TestGetChecksExpiryItself(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, newTestHost(), clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	// Exactly at the boundary: still live.
	clock.Advance(m.Timeout())
	_, err = m.Get(ctx, s.SessionID)
	require.NoError(t, err)

	// One step past: expired even though no sweep ran.
	clock.Advance(time.Nanosecond)
	_, err = m.Get(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestTouchExpired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, newTestHost(), clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	clock.Advance(m.Timeout() + time.Second)
	err = m.Touch(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// No silent revival: still expired afterwards.
	_, err = m.Get(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestTouchUnknownSession(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, newTestHost(), clock)

	err := m.Touch(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	var ve *validate.Error
	assert.ErrorAs(t, m.Touch(context.Background(), "short"), &ve)
}

func TestConcurrentTouchesLaterTimestampWins(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, newTestHost(), clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	earlier := clock.Now().Add(1 * time.Minute)
	later := clock.Now().Add(2 * time.Minute)

	// Apply in reverse wall-clock issue order: the later timestamp must
	// still win.
	require.NoError(t, m.TouchAt(ctx, s.SessionID, later))
	require.NoError(t, m.TouchAt(ctx, s.SessionID, earlier))

	got, err := m.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.True(t, got.LastActivity.Equal(later))

	// And racing goroutines converge on the same answer.
	var wg sync.WaitGroup
	for _, at := range []time.Time{later.Add(time.Minute), later.Add(2 * time.Minute)} {
		wg.Add(1)
		go func(at time.Time) {
			defer wg.Done()
			assert.NoError(t, m.TouchAt(ctx, s.SessionID, at))
		}(at)
	}
	wg.Wait()

	got, err = m.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.True(t, got.LastActivity.Equal(later.Add(2*time.Minute)))
}

func TestAppendTurnWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, newTestHost(), clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	for i := 1; i <= 55; i++ {
		clock.Advance(time.Second)
		_, err := m.AppendTurn(ctx, s.SessionID, turnN(i))
		require.NoError(t, err)
	}

	got, err := m.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.ConversationContext.PreviousQueries, 50)

	recent, err := m.RecentTurns(ctx, s.SessionID, 5)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, "q-051", recent[0].QueryID)
	assert.Equal(t, "q-055", recent[4].QueryID)
}

func TestAppendTurnFillsDefaults(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, newTestHost(), clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	got, err := m.AppendTurn(ctx, s.SessionID, QueryHistory{
		UserInput:        "hello",
		InputType:        InputTypeVoice,
		DetectedLanguage: "en",
		ResponseText:     "hi there",
	})
	require.NoError(t, err)
	turn := got.ConversationContext.PreviousQueries[0]
	assert.NotEmpty(t, turn.QueryID)
	assert.True(t, turn.Timestamp.Equal(clock.Now()))
}

func TestTerminateIsIdempotent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, newTestHost(), clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	require.NoError(t, m.Terminate(ctx, s.SessionID))
	require.NoError(t, m.Terminate(ctx, s.SessionID), "second terminate is a no-op, not an error")

	_, err = m.Get(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	err = m.Touch(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrSessionExpired, "terminal state is final")
}

func TestSetLanguage(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, newTestHost(), clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	require.NoError(t, m.SetLanguage(ctx, s.SessionID, "hi"))
	got, err := m.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.LanguagePreference)
	assert.Equal(t, "hi", got.ConversationContext.UserPreferences.PreferredLanguage)

	assert.ErrorIs(t, m.SetLanguage(ctx, s.SessionID, "fr"), language.ErrUnsupportedLanguage)
}

func TestSweepTerminatesExpired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, newTestHost(), clock)
	ctx := context.Background()

	stale, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	clock.Advance(m.Timeout() / 2)
	fresh, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	clock.Advance(m.Timeout()/2 + time.Second)

	swept, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	_, err = m.Get(ctx, stale.SessionID)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = m.Get(ctx, fresh.SessionID)
	assert.NoError(t, err)

	// Re-sweeping finds nothing new.
	swept, err = m.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestSweepLosesToConcurrentTouch(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	host := newTestHost()
	m := newTestManager(t, host, clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	// Still live at the boundary. The touch lands between the sweep's read
	// and its CAS; the clock then moves far enough that the sweep's stale
	// snapshot looks expired. The touch's version bump fails the sweep's
	// CAS, and on re-read the sweep sees the fresh activity and backs off.
	clock.Advance(m.Timeout())
	host.mu.Lock()
	host.onGet = func(id string) {
		if err := m.TouchAt(ctx, id, clock.Now()); err != nil {
			t.Errorf("concurrent touch: %v", err)
		}
		clock.Advance(m.Timeout())
	}
	host.mu.Unlock()

	swept, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)

	got, err := m.Get(ctx, s.SessionID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	host := newTestHost()
	m := newTestManager(t, host, clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	host.failCAS = 2
	clock.Advance(time.Minute)
	require.NoError(t, m.Touch(ctx, s.SessionID), "bounded retries absorb transient conflicts")

	host.failCAS = casRetries + 1
	clock.Advance(time.Minute)
	err = m.Touch(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestCorruptRecordReadsAsNotFound(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	host := newTestHost()
	m := newTestManager(t, host, clock)
	ctx := context.Background()

	s, err := m.Create(ctx, testDevice(), "en")
	require.NoError(t, err)

	host.mu.Lock()
	host.records[s.SessionID].Data = []byte("not an envelope")
	host.mu.Unlock()

	_, err = m.Get(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound, "undecodable stored session reads as missing, not a crash")

	// A null payload is equally corrupt: it must read as missing, never as
	// a zero session that then looks merely expired.
	host.mu.Lock()
	host.records[s.SessionID].Data = []byte(`{"format":"json","v":1,"data":null}`)
	host.mu.Unlock()

	_, err = m.Get(ctx, s.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// And the sweep just skips it.
	swept, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestManagerConfigValidation(t *testing.T) {
	_, err := NewManager(Config{Registry: language.NewDefaultRegistry()})
	assert.Error(t, err)
	_, err = NewManager(Config{Host: newTestHost()})
	assert.Error(t, err)
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newTestManager(t, newTestHost(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.RunSweeper(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
