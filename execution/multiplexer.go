package execution

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Supplier creates a fresh stream of the same logical dataset each time it's called.
type Supplier func(ctx context.Context) (RecordStream, error)

// Multiplexer lets many consumers traverse one dataset, each of them exactly once and in the original order,
// without re-issuing the fetch for the first limit records.
//
// The records drawn from the primary stream are kept in a buffer of at most limit elements.
// A consumer inside the buffered prefix reads it directly. A consumer at the end of the buffer
// becomes the driver: it pulls one record from the primary stream and appends it to the buffer.
// Once the buffer is full, the first consumer to reach its end takes over the primary stream,
// every other one gets a fresh stream from the supplier, positioned right after the records it has already seen.
type Multiplexer struct {
	ctx      context.Context
	supplier Supplier
	limit    int

	// driver is a token held while advancing the primary stream, so that only one consumer does it at a time.
	// It's never held together with mu across a blocking call.
	driver chan struct{}

	// mu guards the state below.
	mu             sync.Mutex
	buffer         []*Record
	primary        RecordStream
	primaryClaimed bool
	exhausted      bool
	failure        error
	closed         bool

	fallbacks int64
}

// NewMultiplexer creates a multiplexer. The supplier is called with ctx, and lazily,
// only once a consumer actually needs records.
func NewMultiplexer(ctx context.Context, limit int, supplier Supplier) *Multiplexer {
	if limit < 0 {
		limit = 0
	}
	return &Multiplexer{
		ctx:      ctx,
		supplier: supplier,
		limit:    limit,
		driver:   make(chan struct{}, 1),
		buffer:   make([]*Record, 0, limit),
	}
}

// Attach returns a new independent consumer stream, starting at the beginning of the dataset.
func (m *Multiplexer) Attach() RecordStream {
	return &sharedStream{m: m}
}

// Fallbacks returns how many consumers had to re-fetch the dataset from the supplier.
func (m *Multiplexer) Fallbacks() int {
	return int(atomic.LoadInt64(&m.fallbacks))
}

// Buffered returns the count of records currently held in the shared buffer.
func (m *Multiplexer) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.buffer)
}

// Close closes the primary stream, unless a consumer has taken it over.
// Attached consumers may still read the buffered prefix.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	primary := m.primary
	m.primary = nil
	m.closed = true
	m.mu.Unlock()

	if primary != nil {
		if err := primary.Close(); err != nil {
			return errors.Wrap(err, "couldn't close primary stream")
		}
	}
	return nil
}

type cursorState int

const (
	cursorBuffered cursorState = iota
	cursorExhausted
	cursorFailed
	cursorClosed
	cursorFrontier
	cursorBufferFull
)

// stateAt must be called with mu held.
func (m *Multiplexer) stateAt(cursor int) cursorState {
	switch {
	case cursor < len(m.buffer):
		return cursorBuffered
	case m.exhausted:
		return cursorExhausted
	case m.failure != nil:
		return cursorFailed
	case m.closed:
		return cursorClosed
	case len(m.buffer) < m.limit:
		return cursorFrontier
	default:
		return cursorBufferFull
	}
}

func (m *Multiplexer) read(cursor int) (*Record, cursorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := m.stateAt(cursor)
	switch state {
	case cursorBuffered:
		return m.buffer[cursor], state, nil
	case cursorFailed:
		return nil, state, m.failure
	}
	return nil, state, nil
}

// acquireDriver waits for the driver token. A consumer whose context is done gives up waiting.
func (m *Multiplexer) acquireDriver(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return cancellation(err)
	}
	select {
	case m.driver <- struct{}{}:
		return nil
	case <-ctx.Done():
		return cancellation(ctx.Err())
	}
}

func (m *Multiplexer) releaseDriver() {
	<-m.driver
}

// drive pulls the next record from the primary stream into the buffer.
// If another consumer has advanced the primary stream in the meantime, it does nothing,
// and the caller should just read the buffer again.
// The pull itself runs on behalf of all consumers, so it goes on even if the calling consumer gives up on it.
func (m *Multiplexer) drive(ctx context.Context, cursor int) error {
	if err := m.acquireDriver(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	state := m.stateAt(cursor)
	m.mu.Unlock()

	if state != cursorFrontier {
		m.releaseDriver()
		return nil
	}

	pulled := make(chan error, 1)
	go func() {
		defer m.releaseDriver()
		pulled <- m.pull()
	}()

	select {
	case err := <-pulled:
		return err
	case <-ctx.Done():
		return cancellation(ctx.Err())
	}
}

// pull appends the next record of the primary stream to the buffer, opening the stream first if needed.
// It's bound to the multiplexer context, never to the context of a single consumer.
// Must be called with the driver token held.
func (m *Multiplexer) pull() error {
	m.mu.Lock()
	primary := m.primary
	m.mu.Unlock()

	if primary == nil {
		var err error
		primary, err = m.supplier(m.ctx)
		if err != nil {
			err = errors.Wrap(err, "couldn't open primary stream")
			m.mu.Lock()
			m.failure = err
			m.mu.Unlock()
			return err
		}
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			primary.Close()
			return nil
		}
		m.primary = primary
		m.mu.Unlock()
	}

	rec, err := primary.Next(m.ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case err == ErrEndOfStream:
		m.exhausted = true
	case err != nil && IsCancellation(err) && (m.closed || m.ctx.Err() != nil):
		// The multiplexer itself is going away, that's not a failure of the source.
		return err
	case err != nil:
		m.failure = err
		return err
	default:
		m.buffer = append(m.buffer, rec)
	}
	return nil
}

// takeOver hands the primary stream over to the first consumer reaching the end of a full buffer.
// Returns nil if it's already been taken.
func (m *Multiplexer) takeOver(ctx context.Context, cursor int) (RecordStream, error) {
	if err := m.acquireDriver(ctx); err != nil {
		return nil, err
	}
	defer m.releaseDriver()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateAt(cursor) != cursorBufferFull || m.primaryClaimed || m.primary == nil {
		return nil, nil
	}
	primary := m.primary
	m.primary = nil
	m.primaryClaimed = true
	return &claimedStream{m: m, source: primary}, nil
}

// claimedStream is the primary stream after a takeover.
// If it ends right away, the dataset was exactly as long as the buffer,
// so consumers still at the end of the buffer don't need to re-fetch anything.
type claimedStream struct {
	m      *Multiplexer
	source RecordStream
	read   bool
}

func (s *claimedStream) Next(ctx context.Context) (*Record, error) {
	rec, err := s.source.Next(ctx)
	if err == ErrEndOfStream && !s.read {
		s.m.mu.Lock()
		s.m.exhausted = true
		s.m.mu.Unlock()
	}
	s.read = true
	return rec, err
}

func (s *claimedStream) Close() error {
	return s.source.Close()
}

func (m *Multiplexer) fallback(cursor int) (RecordStream, error) {
	source, err := m.supplier(m.ctx)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't open fallback stream")
	}
	atomic.AddInt64(&m.fallbacks, 1)
	log.Printf("multiplexer: shared buffer of %d records full, consumer re-fetching after %d records", m.limit, cursor)
	return NewSkipStream(cursor, source), nil
}

type sharedStream struct {
	m      *Multiplexer
	cursor int

	mu      sync.Mutex
	private RecordStream
	closed  bool
}

func (s *sharedStream) Next(ctx context.Context) (*Record, error) {
	for {
		s.mu.Lock()
		closed, private := s.closed, s.private
		s.mu.Unlock()

		if closed {
			return nil, ErrStreamCancelled
		}
		if private != nil {
			return private.Next(ctx)
		}

		rec, state, err := s.m.read(s.cursor)
		switch state {
		case cursorBuffered:
			s.cursor++
			return rec, nil
		case cursorExhausted:
			return nil, ErrEndOfStream
		case cursorFailed:
			return nil, err
		case cursorClosed:
			return nil, ErrStreamCancelled
		case cursorFrontier:
			if err := s.m.drive(ctx, s.cursor); err != nil {
				return nil, err
			}
		case cursorBufferFull:
			claimed, err := s.m.takeOver(ctx, s.cursor)
			if err != nil {
				return nil, err
			}
			if claimed == nil {
				if claimed, err = s.m.fallback(s.cursor); err != nil {
					return nil, err
				}
			}
			if err := s.setPrivate(claimed); err != nil {
				return nil, err
			}
		}
	}
}

func (s *sharedStream) setPrivate(private RecordStream) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		private.Close()
		return ErrStreamCancelled
	}
	s.private = private
	return nil
}

func (s *sharedStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	private := s.private
	s.mu.Unlock()

	if private != nil {
		return private.Close()
	}
	return nil
}
