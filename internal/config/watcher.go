package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Change describes one difference between two configurations
type Change struct {
	Field     string
	Old       interface{}
	New       interface{}
	HotReload bool // true if the running pipeline can apply it without restart
}

// String renders the change as "field: old → new"
func (c Change) String() string {
	return fmt.Sprintf("%s: %v → %v", c.Field, c.Old, c.New)
}

// Diff compares two configurations.
//
// Only probe.report_every and probe.min_confidence are hot-reloadable; every
// other section is set on native elements before PLAYING and needs a restart.
func Diff(old, new *Config) []Change {
	var changes []Change

	if old.Probe.ReportEvery != new.Probe.ReportEvery {
		changes = append(changes, Change{"probe.report_every", old.Probe.ReportEvery, new.Probe.ReportEvery, true})
	}
	if old.Probe.MinConfidence != new.Probe.MinConfidence {
		changes = append(changes, Change{"probe.min_confidence", old.Probe.MinConfidence, new.Probe.MinConfidence, true})
	}

	sections := []struct {
		name     string
		old, new interface{}
	}{
		{"source", old.Source, new.Source},
		{"mux", old.Mux, new.Mux},
		{"inference", old.Inference, new.Inference},
		{"sink", old.Sink, new.Sink},
		{"probe.mode", old.Probe.Mode, new.Probe.Mode},
		{"probe.face_class_id", old.Probe.FaceClassID, new.Probe.FaceClassID},
		{"mqtt", old.MQTT, new.MQTT},
		{"health", old.Health, new.Health},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			changes = append(changes, Change{Field: s.name, Old: s.old, New: s.new})
		}
	}

	return changes
}

// ApplyFunc receives the new configuration and the hot-reloadable changes
type ApplyFunc func(cfg *Config, changes []Change)

// Watcher reloads the configuration file when it is written
type Watcher struct {
	path  string
	apply ApplyFunc

	mu      sync.Mutex
	current *Config
}

// NewWatcher creates a watcher for path starting from the already loaded cfg
func NewWatcher(path string, cfg *Config, apply ApplyFunc) *Watcher {
	return &Watcher{
		path:    filepath.Clean(path),
		apply:   apply,
		current: cfg,
	}
}

// Current returns the last successfully loaded configuration
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run watches the config directory until ctx is cancelled.
//
// The directory is watched instead of the file so that editors which
// replace the file (write + rename) keep triggering reloads.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("config: failed to watch %s: %w", w.path, err)
	}

	slog.Info("face-detection: watching config for changes", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("face-detection: config watcher error", "error", err)
		}
	}
}

// reload loads the file and applies hot-reloadable changes.
// Invalid files are logged and ignored; the previous config stays active.
func (w *Watcher) reload() {
	next, err := Load(w.path)
	if err != nil {
		slog.Warn("face-detection: ignoring invalid config update", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	prev := w.current
	w.mu.Unlock()

	changes := Diff(prev, next)
	if len(changes) == 0 {
		return
	}

	var hot []Change
	for _, c := range changes {
		if c.HotReload {
			hot = append(hot, c)
			slog.Info("face-detection: config changed", "change", c.String())
		} else {
			slog.Warn("face-detection: config change requires restart", "field", c.Field)
		}
	}

	if len(hot) == 0 {
		return
	}

	// Keep restart-only sections as they are running now
	applied := *prev
	applied.Probe.ReportEvery = next.Probe.ReportEvery
	applied.Probe.MinConfidence = next.Probe.MinConfidence

	w.mu.Lock()
	w.current = &applied
	w.mu.Unlock()

	if w.apply != nil {
		w.apply(&applied, hot)
	}
}
