package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads the settings file when it changes and hands the new
// configuration to a callback.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	load     func() (*Config, error)
	done     chan struct{}
	path     string
	debounce time.Duration
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher watches the global settings file and calls onChange after each
// successful Reload.
func NewWatcher(onChange func(*Config)) (*Watcher, error) {
	return newWatcher(SettingsPath(), Reload, onChange, defaultDebounce)
}

func newWatcher(path string, load func() (*Config, error), onChange func(*Config), debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create settings watcher: %w", err)
	}
	// Watch the directory: editors replace files by rename, which drops a
	// watch placed on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		watcher:  fw,
		onChange: onChange,
		load:     load,
		done:     make(chan struct{}),
		path:     filepath.Clean(path),
		debounce: debounce,
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop stops watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) run() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := w.load()
			if err != nil {
				log.Warn().Err(err).Str("path", w.path).Msg("Settings reload failed; keeping previous configuration")
				continue
			}
			log.Info().Str("path", w.path).Msg("Settings reloaded")
			if w.onChange != nil {
				w.onChange(cfg)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Settings watcher error")
		}
	}
}
