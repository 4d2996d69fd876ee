package execution

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// WorkerPool runs fetch tasks, at most size of them at a time.
type WorkerPool struct {
	slots *semaphore.Weighted
	size  int
	wg    sync.WaitGroup
}

func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{
		slots: semaphore.NewWeighted(int64(size)),
		size:  size,
	}
}

func (p *WorkerPool) Size() int {
	return p.size
}

// Go runs the task once a slot is free and sends its result on the returned channel.
// If the context is done before a slot frees up, the task isn't run at all and the context error is sent instead.
func (p *WorkerPool) Go(ctx context.Context, task func(ctx context.Context) error) <-chan error {
	out := make(chan error, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.slots.Acquire(ctx, 1); err != nil {
			out <- err
			return
		}
		defer p.slots.Release(1)

		out <- runTask(ctx, task)
	}()
	return out
}

func runTask(ctx context.Context, task func(ctx context.Context) error) (outErr error) {
	defer func() {
		if r := recover(); r != nil {
			outErr = errors.Errorf("fetch task panicked: %v", r)
		}
	}()
	return task(ctx)
}

// Wait blocks until all submitted tasks have finished.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
