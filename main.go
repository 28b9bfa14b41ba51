/*
Trigon opens a window and presents a triangle every frame, rebuilding the
swapchain whenever the window is resized, minimized or moved to a monitor
with a different scale.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/trigon/engine"
	"github.com/spaghettifunk/trigon/engine/config"
	"github.com/spaghettifunk/trigon/engine/core"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML configuration file")
	backend := flag.String("backend", "", "hal backend to render with (vulkan, headless)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("%s", err)
	}
	if *backend != "" {
		cfg.Renderer.Backend = *backend
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := core.SetLogLevel(cfg.Log.Level); err != nil {
		core.LogFatal("%s", err)
	}

	if *configPath != "" {
		watcher, err := config.WatchConfig(*configPath, nil)
		if err != nil {
			core.LogWarn("config changes will not be picked up: %s", err)
		} else {
			defer watcher.Close()
		}
	}

	if err := run(cfg); err != nil {
		core.LogFatal("%s", err)
	}
}

// run returns only after the engine has been shut down, so a fatal error is
// reported once every GPU object is gone.
func run(cfg *config.Config) (err error) {
	e, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := e.Shutdown(); shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}()

	if err := e.Initialize(); err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	defer close(done)
	go stopOnSignal(sigCh, done, e.Stop)

	return e.Run()
}

// stopOnSignal calls stop on the first signal. It returns once done is closed.
func stopOnSignal(sigCh <-chan os.Signal, done <-chan struct{}, stop func()) {
	select {
	case <-sigCh:
		core.LogInfo("Signal received, shutting down.")
		stop()
	case <-done:
	}
}
