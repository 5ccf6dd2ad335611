package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultReloadDebounce coalesces the burst of events an editor produces on save
const DefaultReloadDebounce = 500 * time.Millisecond

// EnvWatcher reloads the .env file when it changes and hands the new
// configuration to a callback.
type EnvWatcher struct {
	path     string
	onChange func(*Config)
	debounce time.Duration
	watcher  *fsnotify.Watcher

	timer   *time.Timer
	timerMu sync.Mutex

	running bool
	mu      sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEnvWatcher creates a watcher for envFile. onChange runs on the watcher
// goroutine after each successful reload.
func NewEnvWatcher(envFile string, onChange func(*Config)) (*EnvWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(envFile)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &EnvWatcher{
		path:     absPath,
		onChange: onChange,
		debounce: DefaultReloadDebounce,
		watcher:  fsWatcher,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching. The parent directory is watched so that files replaced
// by rename are still picked up.
func (w *EnvWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.running = true
	w.wg.Add(1)
	go w.eventLoop()

	log.Info().Str("path", w.path).Msg("Env file watcher started")
	return nil
}

// Stop stops the watcher and cancels any pending reload
func (w *EnvWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.cancel()
	w.watcher.Close()
	w.wg.Wait()

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	log.Info().Msg("Env file watcher stopped")
}

func (w *EnvWatcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Env file watcher error")
		}
	}
}

// scheduleReload starts or resets the debounce timer
func (w *EnvWatcher) scheduleReload() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *EnvWatcher) reload() {
	w.timerMu.Lock()
	w.timer = nil
	w.timerMu.Unlock()

	if w.ctx.Err() != nil {
		return
	}

	cfg, err := Reload(w.path)
	if err != nil {
		log.Error().Err(err).Str("path", w.path).Msg("Failed to reload env file; keeping previous configuration")
		return
	}

	log.Info().Str("path", w.path).Msg("Env file reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
