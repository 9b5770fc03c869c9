package analyzer

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sambabib/depfresh/pkg/logger"
)

// EventKind identifies a pool progress event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventCompleted
)

// Event is emitted when a lookup is dispatched and when it completes.
type Event struct {
	Kind    EventKind
	Request DependencyRequest
	Result  *LookupResult // set for EventCompleted
	Total   int
	Done    int // completed lookups so far, including this one
}

// Observer receives pool events. Calls are serialized by the pool.
type Observer func(Event)

// PoolOptions configures a Pool.
type PoolOptions struct {
	Concurrency  int           // lookups in flight at once, runtime.NumCPU() when <= 0
	Retries      int           // extra attempts for transport failures
	RetryBackoff time.Duration // multiplied by the attempt number
	RateLimit    float64       // lookups per second, unlimited when <= 0
	Observer     Observer
}

// Pool runs registry lookups with bounded concurrency.
type Pool struct {
	registry     Registry
	concurrency  int
	retries      int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	observer     Observer
	mu           sync.Mutex // serializes observer calls
}

// DefaultConcurrency is the number of lookups kept in flight when none is configured.
func DefaultConcurrency() int {
	return runtime.NumCPU()
}

// NewPool builds a pool that resolves versions through registry.
func NewPool(registry Registry, opts PoolOptions) (*Pool, error) {
	if registry == nil {
		return nil, errors.New("pool requires a registry")
	}
	if opts.Retries < 0 {
		return nil, errors.New("pool retries must not be negative")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency()
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	p := &Pool{
		registry:     registry,
		concurrency:  opts.Concurrency,
		retries:      opts.Retries,
		retryBackoff: opts.RetryBackoff,
		observer:     opts.Observer,
	}
	if opts.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return p, nil
}

// Concurrency returns the maximum number of lookups in flight.
func (p *Pool) Concurrency() int {
	return p.concurrency
}

// RunAll looks up every request and returns one result per dispatched request,
// in completion order. Failed lookups are returned as results, never as an error.
// When ctx is cancelled no further requests are dispatched; RunAll returns the
// results gathered so far together with ctx.Err().
func (p *Pool) RunAll(ctx context.Context, requests []DependencyRequest) ([]LookupResult, error) {
	total := len(requests)
	results := make(chan LookupResult, total)
	sem := semaphore.NewWeighted(int64(p.concurrency))

	collected := make(chan []LookupResult, 1)
	go func() {
		out := make([]LookupResult, 0, total)
		for res := range results {
			out = append(out, res)
			p.emit(Event{Kind: EventCompleted, Request: res.Request, Result: &res, Total: total, Done: len(out)})
		}
		collected <- out
	}()

	var wg sync.WaitGroup
	var dispatchErr error
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			dispatchErr = err
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			dispatchErr = err
			break
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				sem.Release(1)
				dispatchErr = err
				break
			}
		}
		p.emit(Event{Kind: EventStarted, Request: req, Total: total})
		wg.Add(1)
		go func(i int, req DependencyRequest) {
			defer wg.Done()
			defer sem.Release(1)
			results <- p.lookup(ctx, i, req)
		}(i, req)
	}
	wg.Wait()
	close(results)
	out := <-collected

	if dispatchErr != nil {
		if ctx.Err() != nil {
			dispatchErr = ctx.Err()
		}
		logger.Warnf("[pool] stopped after %d of %d lookups: %v", len(out), total, dispatchErr)
		return out, dispatchErr
	}
	return out, nil
}

// Check runs every request and builds the report.
func (p *Pool) Check(ctx context.Context, requests []DependencyRequest) (Report, error) {
	results, err := p.RunAll(ctx, requests)
	return Build(results), err
}

func (p *Pool) lookup(ctx context.Context, index int, req DependencyRequest) LookupResult {
	var err error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			logger.Debugf("[pool] retrying %s (attempt %d): %v", req.Name, attempt+1, err)
			if werr := p.backoff(ctx, attempt); werr != nil {
				return LookupResult{Index: index, Request: req, Err: &FetchError{Kind: FetchTransport, Package: req.Name, Err: werr}}
			}
		}
		var latest string
		latest, err = p.registry.FetchLatest(ctx, req.Name)
		if err == nil {
			return LookupResult{Index: index, Request: req, Latest: latest}
		}
		if !retryable(err) {
			break
		}
	}
	logger.Debugf("[pool] lookup for %s failed: %v", req.Name, err)
	return LookupResult{Index: index, Request: req, Err: err}
}

// backoff waits attempt*retryBackoff or until ctx is done.
func (p *Pool) backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt) * p.retryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return true
	}
	return fe.Kind == FetchTransport
}

func (p *Pool) emit(ev Event) {
	if p.observer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer(ev)
}
