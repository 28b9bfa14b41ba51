package config

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/trigon/engine/core"
)

// Watcher reloads the configuration file whenever it is written and applies
// the settings that can change at runtime. Only the log level does today; the
// window and renderer settings are read once at startup.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	onChange func(*Config)

	mutex    sync.Mutex
	current  *Config
	isClosed bool
	done     chan struct{}
	stopped  chan struct{}
}

// WatchConfig starts watching path. onChange may be nil; it runs on the
// watcher goroutine after the new config was applied.
func WatchConfig(path string, onChange func(*Config)) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatch.Close()
		return nil, err
	}
	// editors often replace the file, so watch its directory
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		fsnotify: fsWatch,
		onChange: onChange,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.start()
	return w, nil
}

// Current returns the last configuration loaded by the watcher, or nil before
// the first change.
func (w *Watcher) Current() *Config {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.current
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return errors.New("config watcher already closed")
	}
	w.isClosed = true
	w.mutex.Unlock()

	close(w.done)
	<-w.stopped
	return nil
}

func (w *Watcher) start() {
	defer close(w.stopped)
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.reload()
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", err)

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		// keep running with the previous settings
		core.LogWarn("ignoring config change: %s", err)
		return
	}
	if cfg.Log.Level != core.GetLogLevel() {
		if err := core.SetLogLevel(cfg.Log.Level); err == nil {
			core.LogInfo("log level set to %s", cfg.Log.Level)
		}
	}

	w.mutex.Lock()
	w.current = cfg
	w.mutex.Unlock()

	if w.onChange != nil {
		w.onChange(cfg)
	}
}
