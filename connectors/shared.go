package connectors

import (
	"context"
	"sync"

	"github.com/cube2222/octofetch/execution"
)

// Shared makes concurrent readers of a dataset share a single fetch.
// The first limit records are buffered and served to every reader,
// readers getting further than that re-fetch the rest on their own.
type Shared struct {
	ForwardingDataset
	ctx   context.Context
	limit int

	mu          sync.Mutex
	multiplexer *execution.Multiplexer
}

// NewShared creates a shared dataset. The underlying fetches are bound to ctx.
func NewShared(ctx context.Context, dataset Dataset, limit int) *Shared {
	return &Shared{
		ForwardingDataset: ForwardingDataset{Delegate: dataset},
		ctx:               ctx,
		limit:             limit,
	}
}

func (s *Shared) Data(ctx context.Context) (execution.RecordStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.multiplexer == nil {
		s.multiplexer = execution.NewMultiplexer(s.ctx, s.limit, s.Delegate.Data)
	}
	return s.multiplexer.Attach(), nil
}

// Fallbacks returns how many readers had to re-fetch the dataset in the current generation.
func (s *Shared) Fallbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.multiplexer == nil {
		return 0
	}
	return s.multiplexer.Fallbacks()
}

// Reset starts a new generation: readers requested afterwards trigger a new fetch.
// Readers of the previous generation can finish reading what's already buffered.
func (s *Shared) Reset() error {
	s.mu.Lock()
	multiplexer := s.multiplexer
	s.multiplexer = nil
	s.mu.Unlock()

	if multiplexer == nil {
		return nil
	}
	return multiplexer.Close()
}
