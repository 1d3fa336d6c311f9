package swipe

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"studnet/internal/domain/profile"
	"studnet/internal/infrastructure/api"
	"studnet/internal/pkg/workerpool"
)

// Sender is the part of the backend that records decisions.
type Sender interface {
	Like(ctx context.Context, profileID, userID int64) (api.LikeResult, error)
	Pass(ctx context.Context, profileID, userID int64) error
	RespondToLike(ctx context.Context, targetUserID int64, action api.RespondAction) (api.LikeResult, error)
}

// Action is one decision to be reported to the backend.
type Action struct {
	UserID   int64
	Tab      Tab
	Decision Decision
	Profile  profile.Profile
}

type Outcome struct {
	Matched bool
	Err     error
}

// Delivery reports decisions after they were applied locally. Deliver must not
// block the caller; done runs exactly once, on another goroutine.
type Delivery interface {
	Deliver(a Action, done func(Outcome))
	Close()
}

var errDeliveryClosed = errors.New("decision delivery closed")

// send performs the single backend call that matches a.
func send(ctx context.Context, s Sender, a Action) Outcome {
	if a.Tab == TabIncoming {
		action := api.RespondDecline
		if a.Decision == Like {
			action = api.RespondAccept
		}
		res, err := s.RespondToLike(ctx, a.Profile.UserID, action)
		return Outcome{Matched: err == nil && action == api.RespondAccept && res.Matched, Err: err}
	}
	if a.Decision == Like {
		res, err := s.Like(ctx, a.Profile.ID, a.UserID)
		return Outcome{Matched: err == nil && res.Matched, Err: err}
	}
	return Outcome{Err: s.Pass(ctx, a.Profile.ID, a.UserID)}
}

// FireAndForget makes one attempt per decision. Failures are only logged.
type FireAndForget struct {
	sender  Sender
	timeout time.Duration
	logger  *log.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var _ Delivery = (*FireAndForget)(nil)

func NewFireAndForget(sender Sender, timeout time.Duration, logger *log.Logger) *FireAndForget {
	return &FireAndForget{sender: sender, timeout: timeout, logger: logger}
}

func (f *FireAndForget) Deliver(a Action, done func(Outcome)) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		go finish(done, Outcome{Err: errDeliveryClosed})
		return
	}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		ctx, cancel := withOptionalTimeout(context.Background(), f.timeout)
		defer cancel()

		out := send(ctx, f.sender, a)
		if out.Err != nil && f.logger != nil {
			f.logger.Printf("[Swipe] Decision not delivered decision=%s profile_id=%d err=%v", a.Decision, a.Profile.ID, out.Err)
		}
		finish(done, out)
	}()
}

// Close waits for decisions already handed over.
func (f *FireAndForget) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.wg.Wait()
}

// RetryQueue retries decisions that failed for transient reasons (transport
// errors, 429, 5xx) on a small worker pool.
type RetryQueue struct {
	sender   Sender
	pool     *workerpool.Pool
	attempts int
	backoff  time.Duration
	timeout  time.Duration
	logger   *log.Logger

	cancel  context.CancelFunc
	drained chan struct{}
	once    sync.Once
}

var _ Delivery = (*RetryQueue)(nil)

type RetryOptions struct {
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
	Workers  int
	Buffer   int
}

func NewRetryQueue(sender Sender, opts RetryOptions, logger *log.Logger) *RetryQueue {
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &RetryQueue{
		sender:   sender,
		pool:     workerpool.New(opts.Workers, opts.Buffer),
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		timeout:  opts.Timeout,
		logger:   logger,
		cancel:   cancel,
		drained:  make(chan struct{}),
	}

	results := q.pool.Run(ctx)
	go func() {
		defer close(q.drained)
		for r := range results {
			if r.Err != nil && q.logger != nil {
				q.logger.Printf("[Swipe] Decision dropped after retries task=%s err=%v", r.Name, r.Err)
			}
		}
	}()
	return q
}

func (q *RetryQueue) Deliver(a Action, done func(Outcome)) {
	name := a.Decision.String() + ":" + strconv.FormatInt(a.Profile.ID, 10)
	ok, err := q.pool.Submit(name, func(ctx context.Context) error {
		out := q.attempt(ctx, a)
		finish(done, out)
		return out.Err
	})
	if err != nil || !ok {
		if err == nil {
			err = errors.New("decision queue full")
		}
		if q.logger != nil {
			q.logger.Printf("[Swipe] Decision not queued task=%s err=%v", name, err)
		}
		go finish(done, Outcome{Err: err})
	}
}

func (q *RetryQueue) attempt(ctx context.Context, a Action) Outcome {
	var out Outcome
	for i := 0; i < q.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return Outcome{Err: ctx.Err()}
			case <-time.After(q.backoff * time.Duration(i)):
			}
		}
		callCtx, cancel := withOptionalTimeout(ctx, q.timeout)
		out = send(callCtx, q.sender, a)
		cancel()
		if out.Err == nil || !api.Retryable(out.Err) {
			return out
		}
	}
	return out
}

// Close stops accepting decisions and waits until queued ones finished.
func (q *RetryQueue) Close() {
	q.once.Do(func() {
		q.pool.Close()
		<-q.drained
		q.cancel()
	})
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func finish(done func(Outcome), out Outcome) {
	if done != nil {
		done(out)
	}
}
