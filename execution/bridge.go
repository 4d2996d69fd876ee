package execution

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

const DefaultChannelCapacity = 64

// ProduceFn hands a decoded record over to the consumer.
// It blocks while the consumer is behind, and fails once the consumer is gone.
type ProduceFn func(rec *Record) error

// ReadyFn signals that the fetch has received the first byte of its response.
type ReadyFn func()

// FetchFunc performs a blocking fetch, decodes the response and produces its records in order.
// It should return promptly once its context is cancelled or produce fails.
type FetchFunc func(ctx context.Context, produce ProduceFn, ready ReadyFn) error

// Bridge turns blocking fetches into pull based record streams.
type Bridge struct {
	pool            *WorkerPool
	channelCapacity int
	waitForReady    bool
}

type BridgeOption func(bridge *Bridge)

func WithChannelCapacity(capacity int) BridgeOption {
	return func(bridge *Bridge) {
		bridge.channelCapacity = capacity
	}
}

// WithWaitForReady makes Open wait for the first byte of the response,
// so that connection failures are returned by Open instead of the first Next.
func WithWaitForReady(wait bool) BridgeOption {
	return func(bridge *Bridge) {
		bridge.waitForReady = wait
	}
}

func NewBridge(pool *WorkerPool, opts ...BridgeOption) *Bridge {
	bridge := &Bridge{
		pool:            pool,
		channelCapacity: DefaultChannelCapacity,
	}
	for _, opt := range opts {
		opt(bridge)
	}
	return bridge
}

// Open starts the fetch on the worker pool and returns the stream of its records.
// Cancelling ctx cancels the fetch.
func (b *Bridge) Open(ctx context.Context, source string, fetch FetchFunc) (*BridgeStream, error) {
	channel, err := NewBoundedChannel(b.channelCapacity)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create record channel")
	}

	taskCtx, cancel := context.WithCancel(ctx)
	task := newFetchTask(source, cancel)

	ready := make(chan struct{})
	var readyOnce sync.Once
	markReady := func() {
		readyOnce.Do(func() {
			close(ready)
		})
	}

	produce := func(rec *Record) error {
		markReady()
		return channel.Put(taskCtx, rec)
	}

	result := b.pool.Go(taskCtx, func(ctx context.Context) error {
		return fetch(ctx, produce, markReady)
	})

	go func() {
		err := <-result
		switch {
		case taskCtx.Err() != nil && (err == nil || IsCancellation(err) || errors.Cause(err) == context.Canceled || errors.Cause(err) == context.DeadlineExceeded):
			err = cancellation(taskCtx.Err())
			channel.Fail(err)
		case err != nil:
			err = NewFetchError(source, err)
			log.Printf("bridge: fetch task %s of %s failed: %s", task.ID, source, err)
			channel.Fail(err)
		default:
			if finishErr := channel.Finish(taskCtx); finishErr != nil {
				err = finishErr
			}
		}
		task.finish(err)
	}()

	stream := &BridgeStream{
		source:  source,
		channel: channel,
		task:    task,
	}

	if b.waitForReady {
		select {
		case <-ready:
		case <-task.Done():
			if err := task.Err(); err != nil && !isReady(ready) {
				stream.Close()
				return nil, err
			}
		case <-ctx.Done():
			stream.Close()
			return nil, cancellation(ctx.Err())
		}
	}

	return stream, nil
}

func isReady(ready <-chan struct{}) bool {
	select {
	case <-ready:
		return true
	default:
		return false
	}
}

// BridgeStream is the consumer side of a bridged fetch.
type BridgeStream struct {
	source  string
	channel *BoundedChannel
	task    *FetchTask

	closeOnce sync.Once
	closed    int32
}

func (s *BridgeStream) Next(ctx context.Context) (*Record, error) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return nil, ErrStreamCancelled
	}
	rec, err := s.channel.Take(ctx)
	if err != nil && err != ErrEndOfStream && ctx.Err() != nil {
		// The consumer is gone, there's no point in fetching any further.
		s.task.Cancel()
	}
	return rec, err
}

// Close cancels the fetch if it's still running and waits for the worker to wind down.
func (s *BridgeStream) Close() error {
	s.closeOnce.Do(func() {
		atomic.StoreInt32(&s.closed, 1)
		if !s.channel.Ended() && s.task.Cancel() {
			log.Printf("bridge: cancelled fetch task %s of %s", s.task.ID, s.source)
		}
		s.channel.Abandon()
		<-s.task.Done()
	})
	return nil
}

func (s *BridgeStream) Task() *FetchTask {
	return s.task
}

// Buffered returns the count of records fetched but not consumed yet.
func (s *BridgeStream) Buffered() int {
	return s.channel.Len()
}
