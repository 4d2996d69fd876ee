package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cube2222/octofetch/execution"
)

// tap hands the live stream over to the driving caller, capturing a copy of everything that passes through.
// Draining it publishes the captured records, a failure or an early close discards them.
type tap struct {
	cache  *Cache
	key    RequestKey
	flight *flight
	source execution.RecordStream

	captured   []*execution.Record
	settleOnce sync.Once
}

func newTap(cache *Cache, key RequestKey, f *flight, source execution.RecordStream) *tap {
	return &tap{
		cache:  cache,
		key:    key,
		flight: f,
		source: source,
	}
}

func (t *tap) Next(ctx context.Context) (*execution.Record, error) {
	rec, err := t.source.Next(ctx)
	switch {
	case err == execution.ErrEndOfStream:
		t.settle(newEntry(t.key, t.captured), nil)
		return nil, err

	case execution.IsCancellation(err):
		t.settle(nil, nil)
		return nil, err

	case err != nil:
		compErr := &ComputationError{Key: t.key, err: err}
		if t.settle(nil, compErr) {
			atomic.AddInt64(&t.cache.loadFailures, 1)
			return nil, compErr
		}
		return nil, err
	}

	t.captured = append(t.captured, rec.Copy())
	return rec, nil
}

// settle reports whether this call was the one that settled the flight.
func (t *tap) settle(entry *Entry, err error) bool {
	settled := false
	t.settleOnce.Do(func() {
		settled = true
		t.captured = nil
		t.cache.settle(t.key, t.flight, entry, err)
	})
	return settled
}

func (t *tap) Close() error {
	t.settle(nil, nil)
	return t.source.Close()
}
