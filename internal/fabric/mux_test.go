package fabric

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestChainedMuxRunsTasksInPostOrder(t *testing.T) {
	p := NewPool(8)
	defer p.Shutdown()
	m := NewChainedMux(p)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		m.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("expected strictly ordered completion, got %v at index %d in %v", v, i, order)
		}
	}
}

func TestChainedMuxNeverRunsTwoTasksConcurrently(t *testing.T) {
	p := NewPool(8)
	defer p.Shutdown()
	m := NewChainedMux(p)

	var running int32
	var maxObserved int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		m.Post(func() {
			n := atomic.AddInt32(&running, 1)
			for {
				cur := atomic.LoadInt32(&maxObserved)
				if n <= cur || atomic.CompareAndSwapInt32(&maxObserved, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&running, -1)
			wg.Done()
		})
	}
	wg.Wait()

	if maxObserved > 1 {
		t.Fatalf("expected at most 1 concurrent task on a single mux, observed %d", maxObserved)
	}
}

func TestChainedMuxCompletionOrderExtendsPostOrder(t *testing.T) {
	// Invariant: the sequence of completion timestamps for tasks posted to
	// a single ChainedMux is a strict extension of the sequence in which
	// they were posted.
	p := NewPool(4)
	defer p.Shutdown()
	m := NewChainedMux(p)

	const n = 20
	completions := make([]time.Time, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		m.Post(func() {
			completions[i] = time.Now()
			wg.Done()
		})
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if completions[i].Before(completions[i-1]) {
			t.Fatalf("completion order violated post order at index %d", i)
		}
	}
}

func TestChainedMuxDestroyWhileLockedPanics(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()
	m := NewChainedMux(p)

	started := make(chan struct{})
	release := make(chan struct{})
	m.Post(func() {
		close(started)
		<-release
	})
	<-started

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected Destroy to panic while the mux is locked")
			}
		}()
		m.Destroy()
	}()

	close(release)
}

func TestChainedMuxDestroyWhenIdleSucceeds(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()
	m := NewChainedMux(p)

	var wg sync.WaitGroup
	wg.Add(1)
	m.Post(func() { wg.Done() })
	wg.Wait()

	deadline := time.Now().Add(time.Second)
	for m.Locked() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	m.Destroy()
}
