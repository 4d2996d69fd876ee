package connectors

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

var (
	ErrNotFound             = errors.New("dataset not found")
	ErrReadOnly             = errors.New("connector is read only")
	ErrOrderingNotSupported = errors.New("ordering not supported")
)

// Dataset is a handle to a named, externally stored dataset.
// Getting the handle is cheap, the data is only fetched once a stream is requested and consumed.
type Dataset interface {
	Schema() octofetch.Schema
	// Data returns the records in the natural order of the source.
	Data(ctx context.Context) (execution.RecordStream, error)
	// SortedData returns the records sorted by the ordering, or ErrOrderingNotSupported.
	SortedData(ctx context.Context, ordering octofetch.Ordering) (execution.RecordStream, error)
}

// Connector resolves dataset identifiers into datasets.
type Connector interface {
	CanHandle(id string) bool
	GetDataset(ctx context.Context, id string) (Dataset, error)
	PutDataset(ctx context.Context, id string, dataset Dataset) (Dataset, error)
}

// Forwarding delegates everything to the wrapped connector.
// Connectors decorating another one embed it and override only what they change.
type Forwarding struct {
	Delegate Connector
}

func (f *Forwarding) CanHandle(id string) bool {
	return f.Delegate.CanHandle(id)
}

func (f *Forwarding) GetDataset(ctx context.Context, id string) (Dataset, error) {
	return f.Delegate.GetDataset(ctx, id)
}

func (f *Forwarding) PutDataset(ctx context.Context, id string, dataset Dataset) (Dataset, error) {
	return f.Delegate.PutDataset(ctx, id, dataset)
}

// ForwardingDataset delegates everything to the wrapped dataset.
type ForwardingDataset struct {
	Delegate Dataset
}

func (f *ForwardingDataset) Schema() octofetch.Schema {
	return f.Delegate.Schema()
}

func (f *ForwardingDataset) Data(ctx context.Context) (execution.RecordStream, error) {
	return f.Delegate.Data(ctx)
}

func (f *ForwardingDataset) SortedData(ctx context.Context, ordering octofetch.Ordering) (execution.RecordStream, error) {
	return f.Delegate.SortedData(ctx, ordering)
}

// ReadOnly can be embedded by connectors which don't support writes.
type ReadOnly struct{}

func (ReadOnly) PutDataset(ctx context.Context, id string, dataset Dataset) (Dataset, error) {
	return nil, errors.Wrapf(ErrReadOnly, "couldn't put dataset %s", id)
}
