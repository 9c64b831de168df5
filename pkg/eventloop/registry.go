package eventloop

import (
	"fmt"
	"sync"
)

// A loop identity may exist at most once per process until torn down.
// Teardown happens when the loop finishes running (or is exited before
// ever running), after which the identity may be reused.
var (
	registryMu sync.Mutex
	registry   = make(map[string]*EventLoop)
)

func register(l *EventLoop) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[l.identity]; ok {
		panic(fmt.Sprintf("eventloop: loop %q already exists; tear it down before recreating it", l.identity))
	}
	registry[l.identity] = l
}

// deregister removes l's identity, but only if l still holds it.
func deregister(l *EventLoop) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if registry[l.identity] == l {
		delete(registry, l.identity)
	}
}
