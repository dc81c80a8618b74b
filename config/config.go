// Package config loads process-level settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Settings holds everything a voicecore process reads from its environment.
// Defaults make a bare environment come up with the in-memory host and the
// built-in language set.
type Settings struct {
	// RedisAddr like "localhost:6379". When empty the in-memory host is
	// used. ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR"`
	// KeyPrefix for all session keys. ENV: SESSIONS_KEY_PREFIX
	KeyPrefix string `env:"SESSIONS_KEY_PREFIX,default=voice:sessions:"`

	// SupabaseURL and SupabaseKey select the relational language store.
	// When either is empty the built-in language set is used.
	SupabaseURL string `env:"SUPABASE_URL"`
	SupabaseKey string `env:"SUPABASE_ANON_KEY"`
	// LanguageTable is the table language configurations are read from.
	// ENV: LANGUAGE_TABLE
	LanguageTable string `env:"LANGUAGE_TABLE,default=language_configs"`

	// LanguageSeedFile, when set, is a JSON file of language configurations
	// watched for changes. ENV: LANGUAGE_SEED_FILE
	LanguageSeedFile string `env:"LANGUAGE_SEED_FILE"`

	// SessionTimeout is the inactivity window before a session expires.
	// ENV: SESSION_TIMEOUT
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT,default=30m"`
	// MaxHistory bounds the conversation window per session.
	// ENV: MAX_CONVERSATION_HISTORY
	MaxHistory int `env:"MAX_CONVERSATION_HISTORY,default=50"`
	// OpTimeout bounds each host round trip. ENV: OP_TIMEOUT
	OpTimeout time.Duration `env:"OP_TIMEOUT,default=5s"`
	// SweepInterval is the cadence of the expiry sweeper.
	// ENV: SWEEP_INTERVAL
	SweepInterval time.Duration `env:"SWEEP_INTERVAL,default=1m"`

	// LogLevel is one of debug, info, warn, error. ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info"`
	// LogFormat is "json" or "text". ENV: LOG_FORMAT
	LogFormat string `env:"LOG_FORMAT,default=json"`
}

// FromEnv populates Settings via envdecode.
func FromEnv() (*Settings, error) {
	var s Settings
	if err := envdecode.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings no process can run with.
func (s *Settings) Validate() error {
	if s.SessionTimeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be positive, got %s", s.SessionTimeout)
	}
	if s.MaxHistory <= 0 {
		return fmt.Errorf("MAX_CONVERSATION_HISTORY must be positive, got %d", s.MaxHistory)
	}
	if s.OpTimeout <= 0 {
		return fmt.Errorf("OP_TIMEOUT must be positive, got %s", s.OpTimeout)
	}
	if s.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", s.SweepInterval)
	}
	switch strings.ToLower(s.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", s.LogFormat)
	}
	if _, err := s.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// UseRedis reports whether a Redis session host is configured.
func (s *Settings) UseRedis() bool {
	return s.RedisAddr != ""
}

// UseSupabase reports whether the relational language store is configured.
func (s *Settings) UseSupabase() bool {
	return s.SupabaseURL != "" && s.SupabaseKey != ""
}

// SlogLevel maps LogLevel onto a slog.Level.
func (s *Settings) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s.LogLevel)
}
