package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplexer_ConcurrentConsumers(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		records   int
		consumers int
	}{
		{name: "limit smaller than dataset", limit: 3, records: 50, consumers: 4},
		{name: "limit equal to dataset", limit: 50, records: 50, consumers: 4},
		{name: "limit larger than dataset", limit: 100, records: 50, consumers: 4},
		{name: "no buffer", limit: 0, records: 20, consumers: 3},
		{name: "empty dataset", limit: 2, records: 0, consumers: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			supplier := &countingSupplier{records: intRecords(tt.records)}
			m := NewMultiplexer(ctx, tt.limit, supplier.supply)
			defer m.Close()

			results := make([][]*Record, tt.consumers)
			errs := make([]error, tt.consumers)
			var wg sync.WaitGroup
			for i := 0; i < tt.consumers; i++ {
				i := i
				stream := m.Attach()
				wg.Add(1)
				go func() {
					defer wg.Done()
					results[i], errs[i] = ReadAll(ctx, stream)
				}()
			}
			wg.Wait()

			for i := range results {
				require.NoError(t, errs[i])
				assert.Equal(t, ints(supplier.records), ints(results[i]), "consumer %d", i)
			}
			assert.LessOrEqual(t, supplier.Calls(), tt.consumers)
			assert.LessOrEqual(t, m.Buffered(), tt.limit)
		})
	}
}

func TestMultiplexer_StaggeredConsumers(t *testing.T) {
	ctx := context.Background()
	supplier := &countingSupplier{records: intRecords(5)}
	m := NewMultiplexer(ctx, 2, supplier.supply)
	defer m.Close()

	first := m.Attach()
	rec, err := first.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Value(0).Int)

	second, err := ReadAll(ctx, m.Attach())
	require.NoError(t, err)

	rest, err := ReadAll(ctx, first)
	require.NoError(t, err)

	third, err := ReadAll(ctx, m.Attach())
	require.NoError(t, err)

	want := []int{1, 2, 3, 4, 5}
	assert.Equal(t, want, append([]int{1}, ints(rest)...))
	assert.Equal(t, want, ints(second))
	assert.Equal(t, want, ints(third))

	// The second consumer took over the primary stream, the other two re-fetched past the buffer.
	assert.Equal(t, 3, supplier.Calls())
	assert.Equal(t, 2, m.Fallbacks())
}

func TestMultiplexer_SingleFetchWithinLimit(t *testing.T) {
	ctx := context.Background()
	for _, limit := range []int{5, 10} {
		supplier := &countingSupplier{records: intRecords(5)}
		m := NewMultiplexer(ctx, limit, supplier.supply)

		for i := 0; i < 3; i++ {
			got, err := ReadAll(ctx, m.Attach())
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2, 3, 4, 5}, ints(got))
		}
		assert.Equal(t, 1, supplier.Calls(), "limit %d", limit)
		assert.Equal(t, 0, m.Fallbacks())
		require.NoError(t, m.Close())
	}
}

func TestMultiplexer_Lazy(t *testing.T) {
	supplier := &countingSupplier{records: intRecords(3)}
	m := NewMultiplexer(context.Background(), 2, supplier.supply)

	stream := m.Attach()
	assert.Equal(t, 0, supplier.Calls())
	require.NoError(t, stream.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, 0, supplier.Calls())
}

type failingStream struct {
	records []*Record
	err     error
}

func (s *failingStream) Next(ctx context.Context) (*Record, error) {
	if len(s.records) == 0 {
		return nil, s.err
	}
	rec := s.records[0]
	s.records = s.records[1:]
	return rec, nil
}

func (s *failingStream) Close() error {
	return nil
}

func TestMultiplexer_SourceFailure(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("source went away")
	m := NewMultiplexer(ctx, 10, func(ctx context.Context) (RecordStream, error) {
		return &failingStream{records: intRecords(2), err: failure}, nil
	})
	defer m.Close()

	got, err := ReadAll(ctx, m.Attach())
	assert.Equal(t, failure, err)
	assert.Equal(t, []int{1, 2}, ints(got))

	got, err = ReadAll(ctx, m.Attach())
	assert.Equal(t, failure, err)
	assert.Equal(t, []int{1, 2}, ints(got), "the buffered prefix should still be served")
}

func TestMultiplexer_SupplierFailure(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("couldn't connect")
	m := NewMultiplexer(ctx, 10, func(ctx context.Context) (RecordStream, error) {
		return nil, failure
	})

	_, err := m.Attach().Next(ctx)
	assert.Equal(t, failure, errors.Cause(err))
}

func TestMultiplexer_ClosedConsumer(t *testing.T) {
	ctx := context.Background()
	supplier := &countingSupplier{records: intRecords(5)}
	m := NewMultiplexer(ctx, 10, supplier.supply)
	defer m.Close()

	stream := m.Attach()
	_, err := stream.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	_, err = stream.Next(ctx)
	assert.Equal(t, ErrStreamCancelled, err)

	got, err := ReadAll(ctx, m.Attach())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ints(got), "other consumers aren't affected")
}

func TestMultiplexer_Close(t *testing.T) {
	ctx := context.Background()
	primary := &closeTrackingStream{RecordStream: NewInMemoryStream(intRecords(5))}
	m := NewMultiplexer(ctx, 10, func(ctx context.Context) (RecordStream, error) {
		return primary, nil
	})

	first := m.Attach()
	for i := 0; i < 2; i++ {
		_, err := first.Next(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, m.Close())
	assert.True(t, primary.Closed())

	got, err := ReadAll(ctx, m.Attach())
	assert.Equal(t, ErrStreamCancelled, err)
	assert.Equal(t, []int{1, 2}, ints(got))
}

func TestMultiplexer_CancelledConsumer(t *testing.T) {
	supplier := &countingSupplier{records: intRecords(5)}
	m := NewMultiplexer(context.Background(), 10, supplier.supply)
	defer m.Close()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Attach().Next(cancelled)
	assert.True(t, IsCancellation(err))

	got, err := ReadAll(context.Background(), m.Attach())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ints(got))
	assert.Equal(t, 1, supplier.Calls())
}

func TestMultiplexer_ConsumerGivesUpOnBridgedFetch(t *testing.T) {
	release := make(chan struct{})
	bridge := NewBridge(NewWorkerPool(2))
	var primary *BridgeStream
	m := NewMultiplexer(context.Background(), 10, func(ctx context.Context) (RecordStream, error) {
		stream, err := bridge.Open(ctx, "numbers", func(ctx context.Context, produce ProduceFn, ready ReadyFn) error {
			select {
			case <-release:
			case <-ctx.Done():
				return ctx.Err()
			}
			for _, rec := range intRecords(5) {
				if err := produce(rec); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		primary = stream
		return stream, nil
	})
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	impatient := m.Attach()
	result := make(chan error, 1)
	go func() {
		_, err := impatient.Next(ctx)
		result <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-result:
		assert.True(t, IsCancellation(err))
	case <-time.After(time.Second):
		t.Fatal("consumer didn't give up after its context was cancelled")
	}

	close(release)
	got, err := ReadAll(context.Background(), m.Attach())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ints(got))
	assert.False(t, primary.Task().Cancelled(), "the shared fetch should keep running")

	got, err = ReadAll(context.Background(), impatient)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ints(got), "the consumer can resume from where it gave up")
}

func TestSkipStream(t *testing.T) {
	ctx := context.Background()

	got, err := ReadAll(ctx, NewSkipStream(3, NewInMemoryStream(intRecords(5))))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, ints(got))

	got, err = ReadAll(ctx, NewSkipStream(10, NewInMemoryStream(intRecords(5))))
	require.NoError(t, err)
	assert.Empty(t, got)
}
