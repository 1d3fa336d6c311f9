package workerpool

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("worker pool closed")

type Task func(ctx context.Context) error

type Result struct {
	Name string
	Err  error
}

type job struct {
	name string
	run  Task
}

// Pool runs submitted tasks on a fixed number of goroutines, optionally
// throttled to a number of task starts per second.
type Pool struct {
	workers int
	tasks   chan job
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	rate    <-chan time.Time
	ticker  *time.Ticker
}

func New(workers, buffer int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &Pool{
		workers: workers,
		tasks:   make(chan job, buffer),
	}
}

func (p *Pool) SetRateLimit(rps int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
		p.rate = nil
	}
	if rps <= 0 {
		return
	}
	p.ticker = time.NewTicker(time.Second / time.Duration(rps))
	p.rate = p.ticker.C
}

// Submit enqueues t without blocking. It fails with ErrClosed after Close and
// reports false when the buffer is full.
func (p *Pool) Submit(name string, t Task) (bool, error) {
	if p == nil || t == nil {
		return false, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false, ErrClosed
	}
	select {
	case p.tasks <- job{name: name, run: t}:
		return true, nil
	default:
		return false, nil
	}
}

// Close stops accepting tasks. Queued tasks still run.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
		p.rate = nil
	}
	close(p.tasks)
}

// Run starts the workers. The returned channel is closed once every worker
// has exited; callers must drain it.
func (p *Pool) Run(ctx context.Context) <-chan Result {
	if p == nil {
		out := make(chan Result)
		close(out)
		return out
	}
	out := make(chan Result, p.workers*64)

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-p.tasks:
					if !ok {
						return
					}
					p.mu.RLock()
					rate := p.rate
					p.mu.RUnlock()
					if rate != nil {
						select {
						case <-ctx.Done():
							return
						case <-rate:
						}
					}
					err := j.run(ctx)
					select {
					case <-ctx.Done():
						return
					case out <- Result{Name: j.name, Err: err}:
					}
				}
			}
		}()
	}

	go func() {
		p.wg.Wait()
		close(out)
	}()

	return out
}
