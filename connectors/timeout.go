package connectors

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

// Timeout closes every stream of its datasets which hasn't been closed by the consumer in time.
type Timeout struct {
	Forwarding
	timeout time.Duration
	clock   clock.Clock
}

func NewTimeout(connector Connector, timeout time.Duration, clk clock.Clock) (*Timeout, error) {
	if timeout <= 0 {
		return nil, errors.Errorf("timeout must be greater than 0, got %s", timeout)
	}
	return &Timeout{
		Forwarding: Forwarding{Delegate: connector},
		timeout:    timeout,
		clock:      clk,
	}, nil
}

func (t *Timeout) GetDataset(ctx context.Context, id string) (Dataset, error) {
	dataset, err := t.Delegate.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	return &timeoutDataset{
		ForwardingDataset: ForwardingDataset{Delegate: dataset},
		timeout:           t.timeout,
		clock:             t.clock,
	}, nil
}

type timeoutDataset struct {
	ForwardingDataset
	timeout time.Duration
	clock   clock.Clock
}

func (d *timeoutDataset) Data(ctx context.Context) (execution.RecordStream, error) {
	stream, err := d.Delegate.Data(ctx)
	if err != nil {
		return nil, err
	}
	return execution.NewDeadlineStream(stream, d.timeout, d.clock), nil
}

func (d *timeoutDataset) SortedData(ctx context.Context, ordering octofetch.Ordering) (execution.RecordStream, error) {
	stream, err := d.Delegate.SortedData(ctx, ordering)
	if err != nil {
		return nil, err
	}
	return execution.NewDeadlineStream(stream, d.timeout, d.clock), nil
}
