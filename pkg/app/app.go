// Package app wires configuration, logging, signal handling, and an
// AppAdapter's lifecycle into a single bootstrap call made from the
// process's main thread.
package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/davrell/appshell/pkg/appadapter"
	"github.com/davrell/appshell/pkg/appconfig"
)

type runConfig struct {
	log        logr.Logger
	logSet     bool
	cfg        *appconfig.Config
	cfgPath    string
	signalCh   <-chan os.Signal
	onExit     func(code int)
	background []func()
}

// Option defines a functional option for Run.
type Option func(*runConfig)

// WithLogger sets a custom logger. When absent, Run logs to stderr
// through stdr at the config's log verbosity.
func WithLogger(logger logr.Logger) Option {
	return func(rc *runConfig) {
		rc.log = logger
		rc.logSet = true
	}
}

// WithConfig supplies the app config directly, skipping file loading.
func WithConfig(cfg appconfig.Config) Option {
	return func(rc *runConfig) {
		rc.cfg = &cfg
	}
}

// WithConfigPath loads the app config from a TOML file. A missing file
// falls back to defaults.
func WithConfigPath(path string) Option {
	return func(rc *runConfig) {
		rc.cfgPath = path
	}
}

// WithSignalChannel allows using a custom channel for shutdown signals
// (useful for tests).
func WithSignalChannel(ch <-chan os.Signal) Option {
	return func(rc *runConfig) {
		rc.signalCh = ch
	}
}

// WithOnExit sets a callback for the exit code.
func WithOnExit(f func(code int)) Option {
	return func(rc *runConfig) {
		rc.onExit = f
	}
}

// WithBackground spawns f on its own goroutine once the adapter has
// started and the app config is applied, so f may push main-thread
// work right away without racing the bootstrap. May be given more
// than once.
func WithBackground(f func()) Option {
	return func(rc *runConfig) {
		rc.background = append(rc.background, f)
	}
}

// Run drives the canonical bootstrap on the calling goroutine, which
// becomes the main thread: start the adapter, apply the app config,
// then run the main thread event loop to completion. It blocks for the
// process's entire foreground life and returns after the loop exits.
//
// SIGINT/SIGTERM request shutdown by pushing a main-thread Runnable
// that calls DoExitMainThreadEventLoop, so the headless adapter's
// main-thread-only exit contract holds.
func Run(adapter appadapter.AppAdapter, opts ...Option) error {
	rc := runConfig{log: logr.Discard()}
	for _, opt := range opts {
		opt(&rc)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cfg := appconfig.Default()
	if rc.cfg != nil {
		cfg = *rc.cfg
	} else if rc.cfgPath != "" {
		var err error
		if cfg, err = appconfig.Load(rc.cfgPath); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}
	if !rc.logSet {
		stdr.SetVerbosity(cfg.LogVerbosity)
		rc.log = stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	}
	logger := rc.log.WithValues("app", cfg.Name)

	adapter.OnMainThreadStartApp()

	reconcileGraphics(logger, adapter, cfg)
	adapter.DoApplyAppConfig()
	logger.V(1).Info("app config applied")

	var sigCh <-chan os.Signal
	if rc.signalCh != nil {
		// Use provided channel (mocked for tests).
		sigCh = rc.signalCh
	} else {
		c := make(chan os.Signal, 2)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(c)
		sigCh = c
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			adapter.DoPushMainThreadRunnable(func() {
				adapter.DoExitMainThreadEventLoop()
			})
		case <-stop:
		}
	}()

	for _, f := range rc.background {
		go f()
	}

	adapter.RunMainThreadEventLoopToCompletion()

	if rc.onExit != nil {
		rc.onExit(0)
	}
	return nil
}

// reconcileGraphics warns about config preferences the active adapter
// cannot honor.
func reconcileGraphics(logger logr.Logger, adapter appadapter.AppAdapter, cfg appconfig.Config) {
	if cfg.Graphics.VSync && !adapter.SupportsVSync() {
		logger.Info("vsync requested but not supported by this adapter")
	}
	if cfg.Graphics.MaxFPS > 0 && !adapter.SupportsMaxFPS() {
		logger.Info("max-fps requested but not supported by this adapter", "max-fps", cfg.Graphics.MaxFPS)
	}
	if cfg.Graphics.Fullscreen && !adapter.CanToggleFullscreen() {
		logger.Info("fullscreen requested but not supported by this adapter")
	}
}
