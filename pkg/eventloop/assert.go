package eventloop

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// currentGoroutineID extracts the numeric id of the calling goroutine
// from the "goroutine N [...]" header emitted by runtime.Stack.
func currentGoroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		panic("eventloop: cannot determine goroutine id: " + err.Error())
	}
	return id
}

// assertOwner panics unless called on the loop's owning goroutine.
func (l *EventLoop) assertOwner(op string) {
	if id := currentGoroutineID(); id != l.ownerID {
		panic(fmt.Sprintf(
			"eventloop: %s on loop %q called from goroutine %d, owned by goroutine %d",
			op, l.identity, id, l.ownerID))
	}
}
