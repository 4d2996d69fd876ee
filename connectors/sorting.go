package connectors

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/datasources/memory"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

// Sorting sorts datasets in memory when their source can't sort them itself.
type Sorting struct {
	Forwarding
}

func NewSorting(connector Connector) *Sorting {
	return &Sorting{
		Forwarding: Forwarding{Delegate: connector},
	}
}

func (s *Sorting) GetDataset(ctx context.Context, id string) (Dataset, error) {
	dataset, err := s.Delegate.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	return &sortingDataset{
		ForwardingDataset: ForwardingDataset{Delegate: dataset},
	}, nil
}

type sortingDataset struct {
	ForwardingDataset
}

func (d *sortingDataset) SortedData(ctx context.Context, ordering octofetch.Ordering) (execution.RecordStream, error) {
	stream, err := d.Delegate.SortedData(ctx, ordering)
	if err == nil {
		return stream, nil
	}
	if !errors.Is(err, ErrOrderingNotSupported) {
		return nil, err
	}

	stream, err = d.Delegate.Data(ctx)
	if err != nil {
		return nil, err
	}
	return memory.SortStream(ctx, d.Delegate.Schema(), stream, ordering)
}
