package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vaanihq/voicecore/internal/logctx"
	"github.com/vaanihq/voicecore/language"
	"github.com/vaanihq/voicecore/validate"
	"github.com/vaanihq/voicecore/wire"
)

const (
	// DefaultTimeout is the session inactivity timeout.
	DefaultTimeout = 30 * time.Minute

	// DefaultMaxHistory is the conversation-context sliding window size.
	DefaultMaxHistory = 50

	// DefaultOpTimeout bounds every host round-trip. A slow backend fails
	// the triggering operation instead of blocking it indefinitely.
	DefaultOpTimeout = 5 * time.Second

	// casRetries bounds how often a mutation is retried after a version
	// conflict before giving up.
	casRetries = 5

	// ttlGrace multiplies the logical timeout to produce the host record
	// TTL. The backstop fires well after logical expiry so readers observe
	// ErrSessionExpired, not a bare not-found.
	ttlGrace = 4
)

// Config assembles a Manager. Host and Registry are required; everything
// else has defaults.
type Config struct {
	Host     Host
	Registry *language.Registry

	// Timeout is the inactivity window after which a session expires.
	Timeout time.Duration
	// MaxHistory caps the conversation context turn log.
	MaxHistory int
	// OpTimeout bounds each host operation.
	OpTimeout time.Duration

	Logger *slog.Logger

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Manager owns the session lifecycle rules. All methods are safe for
// concurrent use; mutations on the same session id serialize through the
// host's compare-and-swap.
type Manager struct {
	host       Host
	registry   *language.Registry
	timeout    time.Duration
	maxHistory int
	opTimeout  time.Duration
	log        *slog.Logger
	now        func() time.Time
}

// NewManager validates the config and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Host == nil {
		return nil, fmt.Errorf("sessions: host is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("sessions: language registry is required")
	}
	m := &Manager{
		host:       cfg.Host,
		registry:   cfg.Registry,
		timeout:    cfg.Timeout,
		maxHistory: cfg.MaxHistory,
		opTimeout:  cfg.OpTimeout,
		log:        cfg.Logger,
		now:        cfg.Clock,
	}
	if m.timeout <= 0 {
		m.timeout = DefaultTimeout
	}
	if m.maxHistory <= 0 {
		m.maxHistory = DefaultMaxHistory
	}
	if m.opTimeout <= 0 {
		m.opTimeout = DefaultOpTimeout
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Timeout returns the configured inactivity timeout.
func (m *Manager) Timeout() time.Duration { return m.timeout }

// Create validates the language preference against the registry (applying
// fallback resolution), allocates a session id, and stores a new active
// session.
func (m *Manager) Create(ctx context.Context, device DeviceInfo, languageCode string) (*UserSession, error) {
	if err := device.Validate(); err != nil {
		return nil, err
	}
	lang, err := m.registry.Resolve(languageCode)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &UserSession{
		SessionID:           uuid.NewString(),
		DeviceInfo:          device,
		LanguagePreference:  lang.Code,
		CreatedAt:           now,
		UpdatedAt:           now,
		LastActivity:        now,
		ConversationContext: NewConversationContext(),
		IsActive:            true,
	}
	s.ConversationContext.UserPreferences.PreferredLanguage = lang.Code

	data, err := wire.Encode(s)
	if err != nil {
		return nil, err
	}
	opCtx, cancel := m.opCtx(ctx)
	defer cancel()
	if err := m.host.Create(opCtx, s.SessionID, data, m.recordTTL()); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: s.SessionID, Language: s.LanguagePreference})
	m.log.InfoContext(ctx, "session created", slog.String("device_type", device.DeviceType))
	return s, nil
}

// Get returns the session if it is still active and unexpired. Expired or
// terminated sessions fail with ErrSessionExpired regardless of whether a
// sweep has reclaimed them yet.
func (m *Manager) Get(ctx context.Context, sessionID string) (*UserSession, error) {
	sessionID, err := validate.SessionID(sessionID)
	if err != nil {
		return nil, err
	}
	s, _, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.IsActive || s.ExpiredAt(m.now(), m.timeout) {
		return nil, fmt.Errorf("%w: %s", ErrSessionExpired, sessionID)
	}
	return s, nil
}

// Touch updates the session's last-activity timestamp to now.
func (m *Manager) Touch(ctx context.Context, sessionID string) error {
	return m.TouchAt(ctx, sessionID, m.now())
}

// TouchAt updates last-activity to at, unless the stored timestamp is
// already later: concurrent touches converge on the most recent activity no
// matter which one lands last.
func (m *Manager) TouchAt(ctx context.Context, sessionID string, at time.Time) error {
	sessionID, err := validate.SessionID(sessionID)
	if err != nil {
		return err
	}
	return m.update(ctx, sessionID, func(s *UserSession) (bool, error) {
		if !s.IsActive || s.ExpiredAt(m.now(), m.timeout) {
			return false, fmt.Errorf("%w: %s", ErrSessionExpired, sessionID)
		}
		if !at.After(s.LastActivity) {
			return false, nil
		}
		s.LastActivity = at
		return true, nil
	})
}

// AppendTurn records one conversation turn and refreshes activity. The turn
// log is truncated oldest-first to the configured window. A zero QueryID or
// Timestamp is filled in.
func (m *Manager) AppendTurn(ctx context.Context, sessionID string, turn QueryHistory) (*UserSession, error) {
	sessionID, err := validate.SessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if turn.QueryID == "" {
		turn.QueryID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = m.now()
	}
	if err := turn.Validate(); err != nil {
		return nil, err
	}

	var out *UserSession
	err = m.update(ctx, sessionID, func(s *UserSession) (bool, error) {
		if !s.IsActive || s.ExpiredAt(m.now(), m.timeout) {
			return false, fmt.Errorf("%w: %s", ErrSessionExpired, sessionID)
		}
		s.ConversationContext.AddTurn(turn, m.maxHistory)
		if now := m.now(); now.After(s.LastActivity) {
			s.LastActivity = now
		}
		out = s
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sessionID, Language: turn.DetectedLanguage})
	m.log.DebugContext(ctx, "turn appended",
		slog.String("query_id", turn.QueryID),
		slog.Int("history_len", len(out.ConversationContext.PreviousQueries)))
	return out, nil
}

// RecentTurns returns a chronological snapshot of the session's last n
// turns.
func (m *Manager) RecentTurns(ctx context.Context, sessionID string, n int) ([]QueryHistory, error) {
	s, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.ConversationContext.RecentTurns(n), nil
}

// SetLanguage changes the session's language preference, applying the
// registry's fallback resolution first.
func (m *Manager) SetLanguage(ctx context.Context, sessionID, languageCode string) error {
	sessionID, err := validate.SessionID(sessionID)
	if err != nil {
		return err
	}
	lang, err := m.registry.Resolve(languageCode)
	if err != nil {
		return err
	}
	return m.update(ctx, sessionID, func(s *UserSession) (bool, error) {
		if !s.IsActive || s.ExpiredAt(m.now(), m.timeout) {
			return false, fmt.Errorf("%w: %s", ErrSessionExpired, sessionID)
		}
		if s.LanguagePreference == lang.Code {
			return false, nil
		}
		s.LanguagePreference = lang.Code
		s.ConversationContext.UserPreferences.PreferredLanguage = lang.Code
		return true, nil
	})
}

// Terminate deactivates the session. Idempotent: terminating a session that
// is already inactive succeeds without touching the record.
func (m *Manager) Terminate(ctx context.Context, sessionID string) error {
	sessionID, err := validate.SessionID(sessionID)
	if err != nil {
		return err
	}
	err = m.update(ctx, sessionID, func(s *UserSession) (bool, error) {
		if !s.IsActive {
			return false, nil
		}
		s.IsActive = false
		return true, nil
	})
	if err != nil {
		return err
	}
	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{SessionID: sessionID})
	m.log.InfoContext(ctx, "session terminated")
	return nil
}

// Sweep terminates every stored session that is past its timeout, returning
// how many it reclaimed. Termination goes through the same compare-and-swap
// as every other mutation, so a touch racing the sweep wins: the conflict
// forces a re-read that sees the fresh activity timestamp.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	opCtx, cancel := m.opCtx(ctx)
	ids, err := m.host.ListIDs(opCtx)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("sweep: list sessions: %w", err)
	}

	swept := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return swept, ctx.Err()
		}
		terminated, err := m.sweepOne(ctx, id)
		if err != nil {
			m.log.WarnContext(ctx, "sweep skipped session",
				slog.String("session_id", id), slog.String("err", err.Error()))
			continue
		}
		if terminated {
			swept++
		}
	}
	if swept > 0 {
		m.log.InfoContext(ctx, "sweep complete", slog.Int("terminated", swept))
	}
	return swept, nil
}

func (m *Manager) sweepOne(ctx context.Context, id string) (bool, error) {
	terminated := false
	err := m.update(ctx, id, func(s *UserSession) (bool, error) {
		if !s.IsActive || !s.ExpiredAt(m.now(), m.timeout) {
			terminated = false
			return false, nil
		}
		s.IsActive = false
		terminated = true
		return true, nil
	})
	if err != nil {
		// A corrupt record surfaces as not-found; nothing to reclaim.
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return terminated, nil
}

// RunSweeper runs Sweep on the given interval until ctx is canceled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sessions: sweep interval must be positive")
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if _, err := m.Sweep(ctx); err != nil && ctx.Err() == nil {
				m.log.ErrorContext(ctx, "sweep failed", slog.String("err", err.Error()))
			}
		}
	}
}

// load reads and decodes the stored session. A record that fails to decode
// is treated as absent rather than crashing the read path.
func (m *Manager) load(ctx context.Context, sessionID string) (*UserSession, int64, error) {
	opCtx, cancel := m.opCtx(ctx)
	defer cancel()
	rec, err := m.host.Get(opCtx, sessionID)
	if err != nil {
		return nil, 0, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	var s UserSession
	if err := wire.Decode(rec.Data, &s); err != nil {
		m.log.WarnContext(ctx, "stored session undecodable, treating as missing",
			slog.String("session_id", sessionID), slog.String("err", err.Error()))
		return nil, 0, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return &s, rec.Version, nil
}

// update applies mutate under the per-session compare-and-swap loop. The
// mutation callback returns false to signal a clean no-op (nothing is
// written) and may veto with an error. Conflicts reload and retry a bounded
// number of times.
func (m *Manager) update(ctx context.Context, sessionID string, mutate func(*UserSession) (bool, error)) error {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		s, version, err := m.load(ctx, sessionID)
		if err != nil {
			return err
		}
		dirty, err := mutate(s)
		if err != nil {
			return err
		}
		if !dirty {
			return nil
		}
		s.UpdatedAt = m.now()

		data, err := wire.Encode(s)
		if err != nil {
			return err
		}
		opCtx, cancel := m.opCtx(ctx)
		err = m.host.CompareAndSwap(opCtx, sessionID, version, data, m.recordTTL())
		cancel()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("update session: %w", err)
		}
		lastErr = err
	}
	return fmt.Errorf("update session %s: retries exhausted: %w", sessionID, lastErr)
}

func (m *Manager) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opTimeout)
}

func (m *Manager) recordTTL() time.Duration {
	return ttlGrace * m.timeout
}
