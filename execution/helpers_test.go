package execution

import (
	"context"
	"sync/atomic"

	"github.com/cube2222/octofetch/octofetch"
)

func intRecords(n int) []*Record {
	out := make([]*Record, n)
	for i := range out {
		out[i] = NewRecord(octofetch.NewInt(i + 1))
	}
	return out
}

func ints(records []*Record) []int {
	out := make([]int, len(records))
	for i := range records {
		out[i] = records[i].Value(0).Int
	}
	return out
}

// countingSupplier replays the records and counts how many times it's been called.
type countingSupplier struct {
	records []*Record
	calls   int64
}

func (s *countingSupplier) supply(ctx context.Context) (RecordStream, error) {
	atomic.AddInt64(&s.calls, 1)
	return NewInMemoryStream(s.records), nil
}

func (s *countingSupplier) Calls() int {
	return int(atomic.LoadInt64(&s.calls))
}

// closeTrackingStream records whether it has been closed.
type closeTrackingStream struct {
	RecordStream
	closed int32
}

func (s *closeTrackingStream) Close() error {
	atomic.StoreInt32(&s.closed, 1)
	return s.RecordStream.Close()
}

func (s *closeTrackingStream) Closed() bool {
	return atomic.LoadInt32(&s.closed) == 1
}
