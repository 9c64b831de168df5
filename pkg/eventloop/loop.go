// Package eventloop provides goroutine-affine FIFO work queues. A loop
// is owned by exactly one goroutine, which drains and executes queued
// Runnables one at a time; every other goroutine is a producer only.
package eventloop

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/go-logr/logr"
)

// IdentityMain is the identity of the loop representing the process's
// main thread.
const IdentityMain = "main"

// ThreadSource selects where a loop's owning goroutine comes from.
type ThreadSource int

const (
	// WrapCurrent makes the goroutine calling New the owner. No
	// goroutine is started; the caller is expected to invoke
	// RunToCompletion itself.
	WrapCurrent ThreadSource = iota
	// SpawnNew starts a dedicated goroutine whose first action is to
	// become the owner and drive the loop to completion.
	SpawnNew
)

func (s ThreadSource) String() string {
	switch s {
	case WrapCurrent:
		return "wrap-current"
	case SpawnNew:
		return "spawn-new"
	default:
		return fmt.Sprintf("ThreadSource(%d)", int(s))
	}
}

// EventLoop is a thread-affine FIFO work queue plus a blocking
// run-to-completion driver.
//
// Queue mutations are safe from any goroutine. Execution happens
// exclusively on the owning goroutine, one Runnable at a time, in the
// order pushes won the queue lock. Work pushed after Exit is silently
// dropped; callers racing against shutdown are not penalized for losing.
type EventLoop struct {
	identity string
	source   ThreadSource
	ownerID  uint64
	log      logr.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	pending   []Runnable
	exited    bool
	paused    bool
	running   bool
	ranOnce   bool
	completed bool

	doneCh   chan struct{}
	doneOnce sync.Once
}

// Option defines a functional option for EventLoop.
type Option func(*EventLoop)

// WithLogger sets a custom logger. The default discards everything.
func WithLogger(log logr.Logger) Option {
	return func(l *EventLoop) {
		l.log = log
	}
}

// New creates the loop for identity. At most one loop per identity may
// exist at a time; creating a second before the first is torn down is a
// programming error and panics.
//
// Owning goroutines are pinned to their OS thread (SpawnNew does this
// itself; WrapCurrent callers that need thread affinity should call
// runtime.LockOSThread before New).
func New(identity string, source ThreadSource, opts ...Option) *EventLoop {
	if identity == "" {
		panic("eventloop: empty loop identity")
	}
	l := &EventLoop{
		identity: identity,
		source:   source,
		log:      logr.Discard(),
		doneCh:   make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	for _, opt := range opts {
		opt(l)
	}
	register(l)

	switch source {
	case WrapCurrent:
		l.ownerID = currentGoroutineID()
	case SpawnNew:
		started := make(chan struct{})
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			l.ownerID = currentGoroutineID()
			close(started)
			l.RunToCompletion()
		}()
		<-started
	default:
		deregister(l)
		panic(fmt.Sprintf("eventloop: unknown thread source %d", int(source)))
	}
	l.log.V(1).Info("event loop created", "loop", identity, "source", source.String())
	return l
}

// Identity returns the loop's identity tag.
func (l *EventLoop) Identity() string { return l.identity }

// Source returns the thread-source mode the loop was created with.
func (l *EventLoop) Source() ThreadSource { return l.source }

// RunningOnOwner reports whether the calling goroutine owns this loop.
func (l *EventLoop) RunningOnOwner() bool {
	return currentGoroutineID() == l.ownerID
}

// Done returns a channel that is closed once the loop has torn down and
// no further Runnable will ever execute.
func (l *EventLoop) Done() <-chan struct{} {
	return l.doneCh
}

// push enqueues r and reports whether the loop accepted it.
func (l *EventLoop) push(r Runnable) bool {
	if r == nil {
		panic("eventloop: nil runnable")
	}
	l.mu.Lock()
	if l.exited {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, r)
	l.cond.Signal()
	l.mu.Unlock()
	return true
}

// PushRunnable enqueues r at the tail of the pending queue. Callable
// from any goroutine, including the owner. Fire-and-forget: after Exit
// the runnable is dropped and no failure is reported.
func (l *EventLoop) PushRunnable(r Runnable) {
	if !l.push(r) {
		l.log.V(1).Info("dropping runnable pushed after exit", "loop", l.identity)
	}
}

// CallSynchronous runs fn on the owning goroutine and blocks until it
// has finished. Must not be called from the owner itself (it would
// deadlock waiting on work only the caller can run) — that panics.
// If the loop exits before fn runs, CallSynchronous returns without
// running it, mirroring the fire-and-forget drop semantics.
func (l *EventLoop) CallSynchronous(fn func()) {
	if l.RunningOnOwner() {
		panic(fmt.Sprintf("eventloop: CallSynchronous on loop %q from its owning goroutine", l.identity))
	}
	done := make(chan struct{})
	if !l.push(func() {
		defer close(done)
		fn()
	}) {
		l.log.V(1).Info("dropping synchronous call after exit", "loop", l.identity)
		return
	}
	select {
	case <-done:
	case <-l.doneCh:
	}
}

// RunToCompletion drives the loop on the calling goroutine, which must
// be the owner. It blocks until work arrives, executes it in strict
// FIFO order one Runnable at a time, and returns once Exit has been
// requested. Runnables still queued at exit are discarded unexecuted.
func (l *EventLoop) RunToCompletion() {
	l.assertOwner("RunToCompletion")
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		panic(fmt.Sprintf("eventloop: loop %q is already running", l.identity))
	}
	if l.completed {
		ranOnce := l.ranOnce
		l.mu.Unlock()
		if !ranOnce {
			// Exited before ever running; the queue was already
			// dropped at exit time and there is nothing to drain.
			return
		}
		panic(fmt.Sprintf("eventloop: loop %q has already run to completion", l.identity))
	}
	l.running = true
	l.ranOnce = true
	for {
		for !l.exited && (len(l.pending) == 0 || l.paused) {
			l.cond.Wait()
		}
		if l.exited {
			break
		}
		r := l.pending[0]
		l.pending[0] = nil
		if len(l.pending) == 1 {
			l.pending = l.pending[:0]
		} else {
			l.pending = l.pending[1:]
		}
		l.mu.Unlock()
		r()
		l.mu.Lock()
	}
	dropped := len(l.pending)
	l.pending = nil
	l.running = false
	l.completed = true
	l.mu.Unlock()
	if dropped > 0 {
		l.log.V(1).Info("discarding runnables queued at exit", "loop", l.identity, "count", dropped)
	}
	l.teardown()
}

// Exit requests that the loop stop. Callable from any goroutine and
// idempotent; it wakes the owner if it is blocked waiting for work.
// Queued work that has not started yet will never run.
func (l *EventLoop) Exit() {
	l.mu.Lock()
	if l.exited {
		l.mu.Unlock()
		return
	}
	l.exited = true
	running := l.running
	var dropped int
	if !running {
		// Nothing will ever drain the queue: the loop finishes right
		// here, and once it is completed it can never be driven again,
		// so the identity frees up for a replacement immediately.
		l.completed = true
		dropped = len(l.pending)
		l.pending = nil
	}
	l.cond.Broadcast()
	l.mu.Unlock()
	l.log.V(1).Info("exit requested", "loop", l.identity)
	if !running {
		if dropped > 0 {
			l.log.V(1).Info("discarding runnables queued at exit", "loop", l.identity, "count", dropped)
		}
		l.teardown()
	}
}

// Pause stops the owner from dequeuing further work until Resume.
// Producers may keep pushing; Exit overrides a pause.
func (l *EventLoop) Pause() {
	l.mu.Lock()
	already := l.paused
	l.paused = true
	l.mu.Unlock()
	if !already {
		l.log.V(1).Info("loop paused", "loop", l.identity)
	}
}

// Resume lifts a Pause and wakes the owner.
func (l *EventLoop) Resume() {
	l.mu.Lock()
	paused := l.paused
	l.paused = false
	if paused {
		l.cond.Broadcast()
	}
	l.mu.Unlock()
	if paused {
		l.log.V(1).Info("loop resumed", "loop", l.identity)
	}
}

func (l *EventLoop) teardown() {
	l.doneOnce.Do(func() {
		close(l.doneCh)
		deregister(l)
	})
}
