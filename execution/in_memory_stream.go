package execution

import (
	"context"
	"sync/atomic"
)

// InMemoryStream replays records held in memory.
// Every record is copied on the way out, so consumers never share instances with each other or with the source slice.
type InMemoryStream struct {
	data   []*Record
	index  int
	closed int32
}

func NewInMemoryStream(data []*Record) *InMemoryStream {
	return &InMemoryStream{
		data: data,
	}
}

func (ims *InMemoryStream) Close() error {
	atomic.StoreInt32(&ims.closed, 1)
	return nil
}

func (ims *InMemoryStream) Next(ctx context.Context) (*Record, error) {
	if atomic.LoadInt32(&ims.closed) == 1 {
		return nil, ErrStreamCancelled
	}
	if err := ctx.Err(); err != nil {
		return nil, cancellation(err)
	}
	if ims.index >= len(ims.data) {
		return nil, ErrEndOfStream
	}

	recordToReturn := ims.data[ims.index].Copy()
	ims.index++

	return recordToReturn, nil
}
