package language

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// LoadSeedFile reads a JSON array of LanguageConfig from path and replaces
// the registry contents with it.
func (r *Registry) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read language seed file: %w", err)
	}
	var cfgs []LanguageConfig
	if err := json.Unmarshal(raw, &cfgs); err != nil {
		return fmt.Errorf("parse language seed file %s: %w", path, err)
	}
	return r.Replace(cfgs)
}

// WatchSeedFile loads the seed file and reloads it whenever it changes,
// until ctx is canceled. A reload that fails validation is logged and
// skipped; the registry keeps serving the previous set. Blocks until ctx is
// done or the watcher cannot be established.
func (r *Registry) WatchSeedFile(ctx context.Context, path string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if err := r.LoadSeedFile(path); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer w.Close()

	// Watch the parent directory so atomic rename-over-file updates
	// (editor saves, configmap refreshes) are still observed.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.LoadSeedFile(path); err != nil {
				log.Warn("language seed reload failed, keeping previous set",
					slog.String("path", path), slog.String("err", err.Error()))
				continue
			}
			log.Info("language registry reloaded",
				slog.String("path", path), slog.Int("languages", r.Len()))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("language seed watcher error", slog.String("err", err.Error()))
		}
	}
}
