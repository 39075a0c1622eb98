package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/panelreplay/internal/domain"
	"github.com/bft-labs/panelreplay/internal/ports"
)

// DefaultDebounceDelay is the wait after a file change before reloading.
const DefaultDebounceDelay = 100 * time.Millisecond

// LoadFunc builds a replay configuration from the current config file.
type LoadFunc func() (domain.ReplayConfig, error)

// Watcher reloads the config file when it changes and publishes the new
// replay configuration. Invalid edits are logged and skipped.
type Watcher struct {
	path     string
	load     LoadFunc
	logger   ports.Logger
	debounce time.Duration

	updates chan domain.ReplayConfig

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for path. A non-positive debounce uses DefaultDebounceDelay.
func NewWatcher(path string, load LoadFunc, logger ports.Logger, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounceDelay
	}
	return &Watcher{
		path:     path,
		load:     load,
		logger:   logger,
		debounce: debounce,
		updates:  make(chan domain.ReplayConfig, 1),
	}
}

// Updates returns the channel of reloaded configurations.
// It holds at most the latest one and is closed when Run returns.
func (w *Watcher) Updates() <-chan domain.ReplayConfig {
	return w.updates
}

// Run watches the directory of the config file until ctx is canceled.
// The directory is watched rather than the file so editors that replace
// the file on save are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.updates)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	name := filepath.Base(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	w.logger.Info("watching config", ports.String("path", w.path))

	reload := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(reload)

		case <-reload:
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceReload(reload chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	rc, err := w.load()
	if err != nil {
		w.logger.Error("config reload failed, keeping current sequence",
			ports.String("path", w.path),
			ports.Err(err),
		)
		return
	}

	// Replace any update the supervisor has not picked up yet.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- rc

	w.logger.Info("config reloaded",
		ports.String("path", w.path),
		ports.Int("commands", len(rc.Sequence)),
	)
}
