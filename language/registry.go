package language

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/vaanihq/voicecore/validate"
)

// maxFallbackDepth bounds how far Resolve and Register follow a fallback
// chain. Chains longer than this fail registration with ErrFallbackCycle.
const maxFallbackDepth = 8

var (
	// ErrDuplicateLanguage is returned when registering a code that is
	// already present. Configuration-time fault, fatal at registry load.
	ErrDuplicateLanguage = errors.New("language: code already registered")

	// ErrInvalidFallback is returned when a fallback code does not resolve
	// to a registered, supported language.
	ErrInvalidFallback = errors.New("language: fallback does not resolve")

	// ErrFallbackCycle is returned when a fallback chain exceeds the depth
	// bound, which indicates a cycle or a misconfigured chain.
	ErrFallbackCycle = errors.New("language: fallback chain exceeds depth bound")

	// ErrUnsupportedLanguage is returned by Resolve when neither the
	// requested language nor any fallback ancestor is supported.
	ErrUnsupportedLanguage = errors.New("language: unsupported language")
)

// Registry is the in-memory language lookup table. It is safe for concurrent
// use: reads take a shared lock and Replace swaps the whole table atomically.
type Registry struct {
	mu    sync.RWMutex
	langs map[string]LanguageConfig
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{langs: make(map[string]LanguageConfig)}
}

// Register adds a language config. The code must not already be present and
// the fallback chain, if any, must terminate at a registered supported
// language within the depth bound.
func (r *Registry) Register(cfg LanguageConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.langs[cfg.Code]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLanguage, cfg.Code)
	}
	if err := r.checkFallbackLocked(cfg); err != nil {
		return err
	}
	r.langs[cfg.Code] = cfg
	return nil
}

// Replace atomically swaps the registry contents for the given set. Used by
// table refresh and the seed-file watcher. The whole set is validated before
// anything is applied, so a bad batch leaves the registry untouched.
func (r *Registry) Replace(cfgs []LanguageConfig) error {
	next := make(map[string]LanguageConfig, len(cfgs))
	for i := range cfgs {
		cfg := cfgs[i]
		if err := cfg.Validate(); err != nil {
			return err
		}
		if _, ok := next[cfg.Code]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateLanguage, cfg.Code)
		}
		next[cfg.Code] = cfg
	}
	for _, cfg := range next {
		if err := checkFallback(next, cfg); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.langs = next
	r.mu.Unlock()
	return nil
}

// Resolve returns the config for the given code. When the code is registered
// but not currently supported, the fallback chain is walked and the first
// supported ancestor is returned. Unregistered codes and exhausted chains
// fail with ErrUnsupportedLanguage.
func (r *Registry) Resolve(code string) (LanguageConfig, error) {
	code, err := validate.LanguageCode(code)
	if err != nil {
		return LanguageConfig{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cur, ok := r.langs[code]
	if !ok {
		return LanguageConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, code)
	}
	for depth := 0; depth <= maxFallbackDepth; depth++ {
		if cur.IsSupported {
			return cur, nil
		}
		if cur.FallbackLanguage == "" {
			break
		}
		next, ok := r.langs[cur.FallbackLanguage]
		if !ok {
			break
		}
		cur = next
	}
	return LanguageConfig{}, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, code)
}

// Get returns the raw config for a code without fallback resolution.
func (r *Registry) Get(code string) (LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.langs[code]
	return cfg, ok
}

// ListSupported yields the supported language configs ordered by code. The
// sequence is finite and restartable: each range starts from a fresh
// snapshot of the registry.
func (r *Registry) ListSupported() iter.Seq[LanguageConfig] {
	return func(yield func(LanguageConfig) bool) {
		r.mu.RLock()
		snapshot := make([]LanguageConfig, 0, len(r.langs))
		for _, cfg := range r.langs {
			if cfg.IsSupported {
				snapshot = append(snapshot, cfg)
			}
		}
		r.mu.RUnlock()

		sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Code < snapshot[j].Code })
		for _, cfg := range snapshot {
			if !yield(cfg) {
				return
			}
		}
	}
}

// SupportedCodes returns the sorted codes of all supported languages.
func (r *Registry) SupportedCodes() []string {
	var codes []string
	for cfg := range r.ListSupported() {
		codes = append(codes, cfg.Code)
	}
	return codes
}

// Len returns the number of registered languages, supported or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.langs)
}

func (r *Registry) checkFallbackLocked(cfg LanguageConfig) error {
	return checkFallback(r.langs, cfg)
}

// checkFallback verifies that cfg's fallback chain terminates at a supported
// language in table within the depth bound. cfg itself may not yet be in the
// table.
func checkFallback(table map[string]LanguageConfig, cfg LanguageConfig) error {
	if cfg.FallbackLanguage == "" {
		return nil
	}
	if cfg.FallbackLanguage == cfg.Code {
		return fmt.Errorf("%w: %s falls back to itself", ErrFallbackCycle, cfg.Code)
	}
	code := cfg.FallbackLanguage
	for depth := 0; ; depth++ {
		if depth >= maxFallbackDepth {
			return fmt.Errorf("%w: chain from %s", ErrFallbackCycle, cfg.Code)
		}
		next, ok := table[code]
		if !ok {
			return fmt.Errorf("%w: %s -> %s is not registered", ErrInvalidFallback, cfg.Code, code)
		}
		if next.IsSupported {
			return nil
		}
		if next.FallbackLanguage == "" {
			return fmt.Errorf("%w: chain from %s ends at unsupported %s", ErrInvalidFallback, cfg.Code, code)
		}
		code = next.FallbackLanguage
	}
}
