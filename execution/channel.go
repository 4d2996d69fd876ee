package execution

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// BoundedChannel hands records over from a single producer to a single consumer.
// The producer blocks while the channel is full, which throttles it to the pace of the consumer.
//
// A successful producer finishes the channel with the end of stream marker.
// A failing producer stores its error in the channel instead. The first error wins.
// Records buffered before the failure are still delivered, the error comes after them.
type BoundedChannel struct {
	records chan *Record

	abandoned   chan struct{}
	abandonOnce sync.Once

	failed   chan struct{}
	failOnce sync.Once
	err      error

	finishOnce sync.Once

	ended int32
}

func NewBoundedChannel(capacity int) (*BoundedChannel, error) {
	if capacity < 1 {
		return nil, errors.Errorf("channel capacity must be positive, got %d", capacity)
	}
	return &BoundedChannel{
		records:   make(chan *Record, capacity),
		abandoned: make(chan struct{}),
		failed:    make(chan struct{}),
	}, nil
}

// Put blocks until there's room for the record, the channel is abandoned or the context is done.
func (c *BoundedChannel) Put(ctx context.Context, rec *Record) error {
	select {
	case <-c.abandoned:
		return ErrStreamCancelled
	default:
	}

	select {
	case c.records <- rec:
		return nil
	case <-c.abandoned:
		return ErrStreamCancelled
	case <-ctx.Done():
		return cancellation(ctx.Err())
	}
}

// Finish enqueues the end of stream marker. Calls after the first one are no-ops.
func (c *BoundedChannel) Finish(ctx context.Context) error {
	var err error
	c.finishOnce.Do(func() {
		err = c.Put(ctx, endOfStream)
	})
	return err
}

// Fail stores the error and wakes up a consumer blocked on Take.
func (c *BoundedChannel) Fail(err error) {
	c.failOnce.Do(func() {
		c.err = err
		close(c.failed)
	})
}

// Abandon releases all blocked producers and consumers. It's idempotent.
func (c *BoundedChannel) Abandon() {
	c.abandonOnce.Do(func() {
		close(c.abandoned)
	})
}

// Take blocks until a record, the end of stream or a failure arrives.
// Once the end of stream has been received, every further call returns ErrEndOfStream.
func (c *BoundedChannel) Take(ctx context.Context) (*Record, error) {
	if c.Ended() {
		return nil, ErrEndOfStream
	}

	select {
	case rec := <-c.records:
		return c.deliver(rec)
	default:
	}

	select {
	case rec := <-c.records:
		return c.deliver(rec)
	case <-c.failed:
		select {
		case rec := <-c.records:
			return c.deliver(rec)
		default:
		}
		return nil, c.err
	case <-c.abandoned:
		return nil, c.failureOr(ErrStreamCancelled)
	case <-ctx.Done():
		return nil, c.failureOr(cancellation(ctx.Err()))
	}
}

func (c *BoundedChannel) deliver(rec *Record) (*Record, error) {
	if rec == endOfStream {
		atomic.StoreInt32(&c.ended, 1)
		return nil, ErrEndOfStream
	}
	return rec, nil
}

// failureOr always prefers the captured error over a bare cancellation.
func (c *BoundedChannel) failureOr(err error) error {
	select {
	case <-c.failed:
		return c.err
	default:
		return err
	}
}

// Ended reports whether the consumer has received the end of stream marker.
func (c *BoundedChannel) Ended() bool {
	return atomic.LoadInt32(&c.ended) == 1
}

// Len returns the count of buffered, not yet consumed elements.
func (c *BoundedChannel) Len() int {
	return len(c.records)
}

func (c *BoundedChannel) Cap() int {
	return cap(c.records)
}
