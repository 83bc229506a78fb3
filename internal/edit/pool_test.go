package edit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPoolRunsAllTasks(t *testing.T) {
	pool := NewPool(3, 8, zerolog.Nop())

	var ran int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		pool.Dispatch(func() {
			defer wg.Done()
			atomic.AddInt64(&ran, 1)
		})
	}
	wg.Wait()
	pool.Stop()

	if got := atomic.LoadInt64(&ran); got != 20 {
		t.Fatalf("ran %d tasks, want 20", got)
	}
}

func TestPoolDispatchNeverBlocksWhenQueueFull(t *testing.T) {
	pool := NewPool(1, 1, zerolog.Nop())
	defer pool.Stop()

	release := make(chan struct{})
	var ran int64
	for i := 0; i < 5; i++ {
		pool.Dispatch(func() {
			<-release
			atomic.AddInt64(&ran, 1)
		})
	}

	// All five dispatches returned even though the single worker is stuck;
	// the overflow spilled into goroutines.
	close(release)
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt64(&ran) != 5 {
		select {
		case <-deadline:
			t.Fatalf("only %d of 5 tasks ran", atomic.LoadInt64(&ran))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPoolStopIsIdempotentAndDropsLateTasks(t *testing.T) {
	pool := NewPool(2, 4, zerolog.Nop())
	pool.Stop()
	pool.Stop()

	// Must not panic or run the task.
	pool.Dispatch(func() {
		t.Errorf("task ran after stop")
	})
	time.Sleep(20 * time.Millisecond)
}
