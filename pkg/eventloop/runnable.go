package eventloop

// Runnable is a single-shot unit of deferred work. It carries no return
// value and no error channel; once executed (or dropped at exit) it is
// never referenced again by the loop.
type Runnable func()
