// Package appadapter abstracts over how different host environments own
// an application's main thread. Each adapter forwards lifecycle calls
// into whatever event system the host provides; the headless adapter
// owns its own loop because no host event system exists.
package appadapter

import "github.com/davrell/appshell/pkg/eventloop"

// GraphicsServer is the narrow surface of the graphics subsystem this
// package touches. It is injected explicitly at adapter construction;
// there is no ambient process-wide graphics handle.
type GraphicsServer interface {
	// SetNullGraphics switches the graphics subsystem to a no-op mode
	// in which no screen surface exists. Must be called on the main
	// thread; adapters arrange that by posting the call as a Runnable.
	SetNullGraphics()
}

// AppAdapter declares the lifecycle operations every host integration
// implements. Violating a thread-affinity or ordering precondition is a
// programming defect in the host integration and panics; it is not a
// runtime condition callers are expected to handle.
type AppAdapter interface {
	// OnMainThreadStartApp bootstraps the adapter on what will become
	// the main thread. Called exactly once; a second call panics.
	OnMainThreadStartApp()

	// DoApplyAppConfig applies the active app config. Callable in any
	// state after start, from any goroutine; main-thread effects (such
	// as graphics mode changes) are posted as Runnables, never run
	// inline.
	DoApplyAppConfig()

	// RunMainThreadEventLoopToCompletion blocks the calling goroutine,
	// which must be the main thread, for the remainder of the
	// process's foreground life. Only meaningful when the adapter
	// manages the main thread event loop itself.
	RunMainThreadEventLoopToCompletion()

	// DoPushMainThreadRunnable enqueues r to run on the main thread.
	// Callable from any goroutine in any state after start; after exit
	// the runnable is silently dropped.
	DoPushMainThreadRunnable(r eventloop.Runnable)

	// DoExitMainThreadEventLoop requests that the main thread event
	// loop stop. The headless adapter requires the call to come from
	// the main thread; variants integrating with a host-owned loop may
	// relax that.
	DoExitMainThreadEventLoop()

	// ManagesMainThreadEventLoop reports whether the adapter owns the
	// main thread event loop itself (true) or defers to a host-owned
	// event system (false).
	ManagesMainThreadEventLoop() bool

	// SuspendApp pauses main-thread work, for hosts that background
	// the process. UnsuspendApp lifts it. Suspending an already
	// suspended app (or the converse) logs a warning and returns.
	SuspendApp()
	UnsuspendApp()

	// Capability queries for the active host environment.
	CanToggleFullscreen() bool
	SupportsVSync() bool
	SupportsMaxFPS() bool
}
