package appadapter

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/davrell/appshell/pkg/eventloop"
)

// Lifecycle states of a Headless adapter.
type state int

const (
	stateUninitialized state = iota
	stateStarted
	stateRunning
	stateExited
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateStarted:
		return "started"
	case stateRunning:
		return "running"
	case stateExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Option defines a functional option for adapter construction.
type Option func(*Headless)

// WithLogger sets a custom logger. The default discards everything.
func WithLogger(log logr.Logger) Option {
	return func(h *Headless) {
		h.log = log
	}
}

// Headless is the no-display AppAdapter. It is not embedded into any
// host event system, so it spins up its very own event loop for the
// main thread and forwards all lifecycle calls to it.
type Headless struct {
	graphics GraphicsServer
	log      logr.Logger

	mu          sync.Mutex
	state       state
	mainLoop    *eventloop.EventLoop
	suspended   bool
	suspendedAt time.Time
}

// NewHeadless creates the headless adapter. The graphics collaborator
// is required; passing nil panics.
func NewHeadless(graphics GraphicsServer, opts ...Option) *Headless {
	if graphics == nil {
		panic("appadapter: nil graphics server")
	}
	h := &Headless{
		graphics: graphics,
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Headless) OnMainThreadStartApp() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != stateUninitialized {
		panic(fmt.Sprintf("appadapter: OnMainThreadStartApp called twice (state %s)", h.state))
	}
	// The calling goroutine becomes the main thread by wrapping it in
	// the loop rather than spawning one.
	h.mainLoop = eventloop.New(eventloop.IdentityMain, eventloop.WrapCurrent,
		eventloop.WithLogger(h.log))
	h.state = stateStarted
	h.log.V(1).Info("headless adapter started")
}

func (h *Headless) DoApplyAppConfig() {
	loop := h.loopOrPanic("DoApplyAppConfig")
	// Graphical adapters kick off screen creation here, which leads to
	// the remaining app bootstrapping. Posting a null-graphics switch
	// has the same effect without a display. Posted rather than called
	// inline: the caller may not be the main thread.
	loop.PushRunnable(func() {
		h.graphics.SetNullGraphics()
	})
}

func (h *Headless) RunMainThreadEventLoopToCompletion() {
	h.mu.Lock()
	if h.state != stateStarted {
		h.mu.Unlock()
		panic(fmt.Sprintf("appadapter: RunMainThreadEventLoopToCompletion in state %s", h.state))
	}
	loop := h.mainLoop
	if !loop.RunningOnOwner() {
		h.mu.Unlock()
		panic("appadapter: RunMainThreadEventLoopToCompletion called off the main thread")
	}
	h.state = stateRunning
	h.mu.Unlock()

	loop.RunToCompletion()

	h.mu.Lock()
	h.state = stateExited
	h.mu.Unlock()
	h.log.V(1).Info("main thread event loop completed")
}

func (h *Headless) DoPushMainThreadRunnable(r eventloop.Runnable) {
	// After exit the loop itself absorbs the push silently.
	h.loopOrPanic("DoPushMainThreadRunnable").PushRunnable(r)
}

func (h *Headless) DoExitMainThreadEventLoop() {
	loop := h.loopOrPanic("DoExitMainThreadEventLoop")
	// Headless keeps the strict variant of the contract: exit requests
	// must originate on the main thread.
	if !loop.RunningOnOwner() {
		panic("appadapter: DoExitMainThreadEventLoop called off the main thread")
	}
	loop.Exit()
}

func (h *Headless) ManagesMainThreadEventLoop() bool { return true }

// SuspendApp pauses the main loop. Unlike host-driven adapters, the
// headless variant accepts suspend/unsuspend from any goroutine: with
// the main thread parked inside the loop there is no other place the
// calls could come from.
func (h *Headless) SuspendApp() {
	loop := h.loopOrPanic("SuspendApp")
	h.mu.Lock()
	if h.suspended {
		h.mu.Unlock()
		h.log.Info("SuspendApp called with app already suspended")
		return
	}
	h.suspended = true
	h.suspendedAt = time.Now()
	h.mu.Unlock()
	loop.Pause()
	h.log.V(1).Info("app suspended")
}

func (h *Headless) UnsuspendApp() {
	loop := h.loopOrPanic("UnsuspendApp")
	h.mu.Lock()
	if !h.suspended {
		h.mu.Unlock()
		h.log.Info("UnsuspendApp called with app not in suspended state")
		return
	}
	h.suspended = false
	since := time.Since(h.suspendedAt)
	h.mu.Unlock()
	loop.Resume()
	h.log.V(1).Info("app unsuspended", "suspended-for", since)
}

// No display, so nothing display-related is supported.
func (h *Headless) CanToggleFullscreen() bool { return false }
func (h *Headless) SupportsVSync() bool       { return false }
func (h *Headless) SupportsMaxFPS() bool      { return false }

// loopOrPanic returns the owned loop, panicking if the adapter has not
// been started yet.
func (h *Headless) loopOrPanic(op string) *eventloop.EventLoop {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == stateUninitialized {
		panic(fmt.Sprintf("appadapter: %s before OnMainThreadStartApp", op))
	}
	return h.mainLoop
}
