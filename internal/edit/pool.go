package edit

import (
	"sync"

	"github.com/rs/zerolog"
)

// Dispatcher schedules a unit of background work without blocking the
// caller.
type Dispatcher interface {
	Dispatch(task func())
}

// Pool runs dispatched tasks on a fixed set of workers fed by a buffered
// queue. When the queue is full the task spills into its own goroutine, so
// Dispatch never blocks the request path that triggered it.
type Pool struct {
	mu      sync.RWMutex
	tasks   chan func()
	wg      sync.WaitGroup
	logger  zerolog.Logger
	stopped bool
}

// NewPool starts workers goroutines consuming from a queue of queueSize.
func NewPool(workers, queueSize int, logger zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	p := &Pool{
		tasks:  make(chan func(), queueSize),
		logger: logger.With().Str("component", "edit_pool").Logger(),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

var _ Dispatcher = (*Pool)(nil)

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Dispatch enqueues the task. Tasks dispatched after Stop are dropped with
// a log line; by then the process is shutting down and the edit stays
// queued, which is the documented crash-mid-run behavior.
func (p *Pool) Dispatch(task func()) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.logger.Warn().Msg("pool stopped, dropping task")
		return
	}
	select {
	case p.tasks <- task:
	default:
		p.logger.Warn().Int("queue", cap(p.tasks)).Msg("queue full, spilling task to goroutine")
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			task()
		}()
	}
}

// Stop closes the queue and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
