package cache

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/execution"
)

// Loader opens the live stream of the requested dataset.
type Loader func(ctx context.Context) (execution.RecordStream, error)

type Options struct {
	// MaxRecords bounds the total count of records held by all entries.
	MaxRecords int64
	// TTL is the lifetime of an entry, zero means entries don't expire.
	TTL time.Duration
	// NumCounters is the count of keys tracked for admission, 10x the expected entry count is a good start.
	NumCounters int64
}

type Stats struct {
	Hits         int64
	Misses       int64
	Loads        int64
	LoadFailures int64
	// Rejections counts results the store refused to keep, e.g. ones larger than MaxRecords.
	Rejections int64
}

// Cache memoizes dataset results.
// Concurrent requests for the same key share a single fetch: the first caller drives it,
// the others wait for it to settle and then replay its result.
// Only fully drained, successful fetches get cached.
type Cache struct {
	store *ristretto.Cache
	ttl   time.Duration

	mu      sync.Mutex
	flights map[RequestKey]*flight
	closed  bool

	hits, misses, loads, loadFailures, rejections int64
}

// flight is a fetch in progress. Exactly one of entry and err is set once done is closed,
// unless the driver abandoned the fetch, in which case both are nil.
type flight struct {
	done  chan struct{}
	entry *Entry
	err   error
}

func New(opts Options) (*Cache, error) {
	if opts.MaxRecords < 1 {
		return nil, errors.Errorf("cache record limit must be positive, got %d", opts.MaxRecords)
	}
	if opts.NumCounters < 1 {
		opts.NumCounters = 10 * opts.MaxRecords
	}
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        opts.NumCounters,
		MaxCost:            opts.MaxRecords,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create cache store")
	}

	return &Cache{
		store:   store,
		ttl:     opts.TTL,
		flights: make(map[RequestKey]*flight),
	}, nil
}

// GetOrCompute returns a stream of the dataset identified by key, computing it with loader if needed.
func (c *Cache) GetOrCompute(ctx context.Context, key RequestKey, loader Loader) (execution.RecordStream, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		if f, ok := c.flights[key]; ok {
			c.mu.Unlock()

			select {
			case <-f.done:
			case <-ctx.Done():
				return nil, errors.Wrapf(execution.ErrStreamCancelled, "couldn't wait for %s: %s", key, ctx.Err())
			}
			switch {
			case f.entry != nil:
				atomic.AddInt64(&c.hits, 1)
				return f.entry.Stream(), nil
			case f.err != nil:
				return nil, f.err
			}
			// The driver abandoned the fetch, so somebody has to take over.
			continue
		}
		if entry, ok := c.get(key); ok {
			c.mu.Unlock()
			atomic.AddInt64(&c.hits, 1)
			return entry.Stream(), nil
		}

		f := &flight{done: make(chan struct{})}
		c.flights[key] = f
		c.mu.Unlock()

		atomic.AddInt64(&c.misses, 1)
		return c.drive(ctx, key, f, loader)
	}
}

func (c *Cache) drive(ctx context.Context, key RequestKey, f *flight, loader Loader) (execution.RecordStream, error) {
	settled := false
	defer func() {
		// The loader panicked, waiters shouldn't hang.
		if !settled {
			c.settle(key, f, nil, nil)
		}
	}()

	atomic.AddInt64(&c.loads, 1)
	stream, err := loader(ctx)
	if err != nil {
		settled = true
		if execution.IsCancellation(err) {
			c.settle(key, f, nil, nil)
			return nil, err
		}
		atomic.AddInt64(&c.loadFailures, 1)
		compErr := &ComputationError{Key: key, err: err}
		c.settle(key, f, nil, compErr)
		return nil, compErr
	}
	settled = true
	return newTap(c, key, f, stream), nil
}

// settle publishes the outcome of a flight. It's called exactly once per flight.
func (c *Cache) settle(key RequestKey, f *flight, entry *Entry, err error) {
	if entry != nil && !c.put(key, entry) {
		atomic.AddInt64(&c.rejections, 1)
		log.Printf("cache: entry %s with %d records not admitted", key, entry.Len())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f.entry = entry
	f.err = err
	if c.flights[key] == f {
		delete(c.flights, key)
	}
	close(f.done)
}

// put stores the entry and reports whether it's readable afterwards, which makes it visible before the flight disappears.
// The store drops writes when its buffers are contended, so a dropped write is retried once.
func (c *Cache) put(key RequestKey, entry *Entry) bool {
	for attempt := 0; attempt < 2; attempt++ {
		if c.ttl > 0 {
			c.store.SetWithTTL(key.String(), entry, entry.cost(), c.ttl)
		} else {
			c.store.Set(key.String(), entry, entry.cost())
		}
		c.store.Wait()
		if _, ok := c.store.Get(key.String()); ok {
			return true
		}
	}
	return false
}

func (c *Cache) get(key RequestKey) (*Entry, bool) {
	value, ok := c.store.Get(key.String())
	if !ok {
		return nil, false
	}
	return value.(*Entry), true
}

// Get returns the cached entry without computing anything.
func (c *Cache) Get(key RequestKey) (*Entry, bool) {
	return c.get(key)
}

// Invalidate drops the cached entry. A fetch in progress isn't affected.
func (c *Cache) Invalidate(key RequestKey) {
	c.store.Del(key.String())
	c.store.Wait()
}

// Wait blocks until all pending writes to the store have been applied.
func (c *Cache) Wait() {
	c.store.Wait()
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:         atomic.LoadInt64(&c.hits),
		Misses:       atomic.LoadInt64(&c.misses),
		Loads:        atomic.LoadInt64(&c.loads),
		LoadFailures: atomic.LoadInt64(&c.loadFailures),
		Rejections:   atomic.LoadInt64(&c.rejections),
	}
}

// Close releases the store. Streams already handed out keep working.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.store.Close()
}
