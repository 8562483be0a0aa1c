package fabric

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID extracts the numeric goroutine id from the runtime stack
// trace header ("goroutine 123 [running]:"). Go deliberately exposes no
// stable goroutine identity; this is the same trick the standard runtime's
// own race detector output and several pool/tracing libraries in the wild
// rely on. It is used here only to answer one question fast: "is the
// caller currently running as one of this pool's/loop's own goroutines",
// so Shutdown/Terminate can refuse to deadlock against themselves.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}

// goroutineLocal maps goroutine ids to an arbitrary marker value. Each
// SecondLoop owns one instance to mark its loop goroutine; all Pools share
// the package-level workerID instance to mark their worker goroutines.
type goroutineLocal struct {
	mu  sync.Mutex
	ids map[uint64]int
}

func newGoroutineLocal() *goroutineLocal {
	return &goroutineLocal{ids: make(map[uint64]int)}
}

func (g *goroutineLocal) Set(v int) {
	g.mu.Lock()
	g.ids[goroutineID()] = v
	g.mu.Unlock()
}

func (g *goroutineLocal) Clear() {
	g.mu.Lock()
	delete(g.ids, goroutineID())
	g.mu.Unlock()
}

// Current returns the marker value for the calling goroutine, or -1 if the
// calling goroutine never called Set.
func (g *goroutineLocal) Current() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.ids[goroutineID()]
	if !ok {
		return -1
	}
	return v
}
