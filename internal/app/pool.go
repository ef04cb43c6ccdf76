package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/metrics"
)

// Default pool sizes.
const (
	DefaultConcurrency       = 6
	DefaultDetailConcurrency = 10
)

// Pool bounds how many tasks run at once. The bound is held by the pool,
// so it applies across every RunPool call sharing the pool.
//
// A task must not call RunPool on the pool it is running in.
type Pool struct {
	name    string
	size    int
	sem     *semaphore.Weighted
	metrics *metrics.Metrics
}

// NewPool creates a pool of the given size; sizes below one become one.
func NewPool(name string, concurrency int, m *metrics.Metrics) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		name:    name,
		size:    concurrency,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		metrics: m,
	}
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Size returns the concurrency bound.
func (p *Pool) Size() int { return p.size }

// Task processes one id.
type Task[T any] func(ctx context.Context, id string) (T, error)

// PoolResult holds the outputs of a RunPool call. Order is completion
// order, not input order.
type PoolResult[T any] struct {
	Values   []T
	Failures []domain.Failure
}

// RunPool runs task once per id on p and waits for all of them.
//
// A failing or panicking task becomes a Failure and does not affect its
// siblings. Ids not yet dispatched when ctx is done are recorded as
// failures carrying the context error.
func RunPool[T any](ctx context.Context, p *Pool, ids []string, task Task[T]) PoolResult[T] {
	var (
		res PoolResult[T]
		mu  sync.Mutex
		wg  sync.WaitGroup
	)
	if len(ids) == 0 {
		return res
	}

	fail := func(id string, err error) {
		mu.Lock()
		res.Failures = append(res.Failures, failureFor(p.name, id, err))
		mu.Unlock()
	}

	for i, id := range ids {
		err := ctx.Err()
		if err == nil {
			err = p.sem.Acquire(ctx, 1)
		}
		if err != nil {
			for _, rest := range ids[i:] {
				fail(rest, err)
			}
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.sem.Release(1)
			p.metrics.PoolStarted(p.name)
			defer p.metrics.PoolFinished(p.name)

			v, err := runTask(ctx, id, task)
			if err != nil {
				fail(id, err)
				return
			}
			mu.Lock()
			res.Values = append(res.Values, v)
			mu.Unlock()
		}()
	}

	wg.Wait()
	return res
}

func runTask[T any](ctx context.Context, id string, task Task[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", id, r)
		}
	}()
	return task(ctx, id)
}

// failureFor attributes err to the fetch domain it names, or to the pool.
func failureFor(pool, id string, err error) domain.Failure {
	f := domain.Failure{Key: id, Domain: pool, Err: err}
	var fe *domain.FetchError
	if errors.As(err, &fe) && fe.Domain != "" {
		f.Domain = fe.Domain
	}
	return f
}
