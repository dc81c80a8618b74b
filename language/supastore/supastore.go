// Package supastore reads language configurations from a Supabase table and
// feeds them into a language.Registry. The table is read-mostly; rows are
// cached between refreshes so hot paths never block on the network.
package supastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/vaanihq/voicecore/language"
)

const defaultCacheTTL = 5 * time.Minute

// Config holds the Supabase connection settings.
type Config struct {
	URL    string
	APIKey string
	// Table defaults to "language_configs".
	Table string
	// CacheTTL bounds how stale a cached language set may get. Default: 5
	// minutes.
	CacheTTL time.Duration
}

// TableStore loads language configurations from one Supabase table.
type TableStore struct {
	client   *supabase.Client
	table    string
	cacheTTL time.Duration

	mu        sync.RWMutex
	cached    []language.LanguageConfig
	fetchedAt time.Time
}

// New creates a store. It does not contact Supabase; the first LoadAll does.
func New(cfg Config) (*TableStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	if cfg.Table == "" {
		cfg.Table = "language_configs"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}

	return &TableStore{
		client:   client,
		table:    cfg.Table,
		cacheTTL: cfg.CacheTTL,
	}, nil
}

// LoadAll returns every language configuration in the table. Results are
// served from cache until the cache TTL lapses.
func (s *TableStore) LoadAll(ctx context.Context) ([]language.LanguageConfig, error) {
	s.mu.RLock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.cacheTTL {
		out := make([]language.LanguageConfig, len(s.cached))
		copy(out, s.cached)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	var rows []language.LanguageConfig
	_, err := s.client.From(s.table).
		Select("*", "", false).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("load languages from %s: %w", s.table, err)
	}

	s.mu.Lock()
	s.cached = rows
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	out := make([]language.LanguageConfig, len(rows))
	copy(out, rows)
	return out, nil
}

// Refresh replaces the registry's language set with the current table
// contents. An empty table leaves the registry untouched so a wiped table
// cannot take down language resolution.
func (s *TableStore) Refresh(ctx context.Context, reg *language.Registry) error {
	configs, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		return nil
	}
	if err := reg.Replace(configs); err != nil {
		return fmt.Errorf("replace language set: %w", err)
	}
	return nil
}

// Seed inserts the given configurations when the table is empty. It is safe
// to call on every startup.
func (s *TableStore) Seed(ctx context.Context, configs []language.LanguageConfig) error {
	existing, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	_, _, err = s.client.From(s.table).
		Insert(configs, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("seed %s: %w", s.table, err)
	}

	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	return nil
}

// RunRefresher refreshes the registry on the given interval until the
// context is canceled.
func (s *TableStore) RunRefresher(ctx context.Context, reg *language.Registry, interval time.Duration, onError func(error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Invalidate()
			if err := s.Refresh(ctx, reg); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

// Invalidate drops the cached rows so the next LoadAll hits the table.
func (s *TableStore) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}
