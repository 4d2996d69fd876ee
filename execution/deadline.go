package execution

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
)

const (
	deadlineScheduled int32 = iota
	deadlineCancelled
	deadlineFired
)

// DeadlineStream closes the underlying stream if it hasn't been closed by the consumer within the timeout.
// Every read after the deadline has fired fails with ErrStreamTimedOut.
type DeadlineStream struct {
	source  RecordStream
	timeout time.Duration
	timer   clock.Timer

	state     int32
	closeOnce sync.Once
	closeErr  error
}

// NewDeadlineStream arms the deadline right away. A non-positive timeout disables it.
func NewDeadlineStream(source RecordStream, timeout time.Duration, clk clock.Clock) *DeadlineStream {
	s := &DeadlineStream{
		source:  source,
		timeout: timeout,
	}
	if timeout <= 0 {
		s.state = deadlineCancelled
		return s
	}
	s.timer = clk.AfterFunc(timeout, s.fire)
	return s
}

func (s *DeadlineStream) fire() {
	if !atomic.CompareAndSwapInt32(&s.state, deadlineScheduled, deadlineFired) {
		return
	}
	log.Printf("deadline: stream not closed within %s, closing it", s.timeout)
	s.closeSource()
}

func (s *DeadlineStream) Next(ctx context.Context) (*Record, error) {
	if s.TimedOut() {
		return nil, ErrStreamTimedOut
	}
	rec, err := s.source.Next(ctx)
	if err != nil && s.TimedOut() {
		return nil, ErrStreamTimedOut
	}
	return rec, err
}

// Close disarms the deadline and closes the underlying stream. It's idempotent.
func (s *DeadlineStream) Close() error {
	if atomic.CompareAndSwapInt32(&s.state, deadlineScheduled, deadlineCancelled) {
		s.timer.Stop()
	}
	return s.closeSource()
}

func (s *DeadlineStream) closeSource() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.source.Close()
	})
	return s.closeErr
}

// TimedOut reports whether the deadline has fired.
func (s *DeadlineStream) TimedOut() bool {
	return atomic.LoadInt32(&s.state) == deadlineFired
}
