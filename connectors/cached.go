package connectors

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/cube2222/octofetch/cache"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

// Cached memoizes both the dataset handles and their data.
// Handles are kept for the lifetime of the connector, data is kept in the cache,
// separately for the natural order and for each requested ordering.
type Cached struct {
	Forwarding
	cache *cache.Cache

	group singleflight.Group

	mu       sync.Mutex
	datasets map[string]*cachedDataset
}

func NewCached(connector Connector, c *cache.Cache) *Cached {
	return &Cached{
		Forwarding: Forwarding{Delegate: connector},
		cache:      c,
		datasets:   make(map[string]*cachedDataset),
	}
}

func (c *Cached) GetDataset(ctx context.Context, id string) (Dataset, error) {
	c.mu.Lock()
	dataset, ok := c.datasets[id]
	c.mu.Unlock()
	if ok {
		return dataset, nil
	}

	// The handle outlives the caller, so creating it mustn't depend on the caller staying around.
	results := c.group.DoChan(id, func() (interface{}, error) {
		c.mu.Lock()
		dataset, ok := c.datasets[id]
		c.mu.Unlock()
		if ok {
			return dataset, nil
		}

		delegate, err := c.Delegate.GetDataset(detached{ctx}, id)
		if err != nil {
			return nil, err
		}
		dataset = &cachedDataset{
			ForwardingDataset: ForwardingDataset{Delegate: delegate},
			id:                id,
			cache:             c.cache,
			keys:              make(map[cache.RequestKey]struct{}),
		}

		c.mu.Lock()
		c.datasets[id] = dataset
		c.mu.Unlock()
		return dataset, nil
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, errors.Wrapf(res.Err, "couldn't get dataset %s", id)
		}
		return res.Val.(*cachedDataset), nil
	case <-ctx.Done():
		return nil, errors.Wrapf(execution.ErrStreamCancelled, "couldn't wait for dataset %s: %s", id, ctx.Err())
	}
}

// detached keeps the values of its parent but is never cancelled.
type detached struct {
	parent context.Context
}

func (detached) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detached) Done() <-chan struct{}       { return nil }
func (detached) Err() error                  { return nil }

func (d detached) Value(key interface{}) interface{} {
	return d.parent.Value(key)
}

// PutDataset writes through to the underlying connector and drops everything cached for the identifier.
func (c *Cached) PutDataset(ctx context.Context, id string, dataset Dataset) (Dataset, error) {
	out, err := c.Delegate.PutDataset(ctx, id, dataset)
	if err != nil {
		return nil, err
	}
	c.Invalidate(id)
	return out, nil
}

// Invalidate drops the dataset handle and all data cached for the identifier.
func (c *Cached) Invalidate(id string) {
	c.mu.Lock()
	dataset, ok := c.datasets[id]
	delete(c.datasets, id)
	c.mu.Unlock()

	if ok {
		dataset.invalidate()
	}
}

type cachedDataset struct {
	ForwardingDataset
	id    string
	cache *cache.Cache

	mu   sync.Mutex
	keys map[cache.RequestKey]struct{}
}

func (d *cachedDataset) Data(ctx context.Context) (execution.RecordStream, error) {
	key := d.track(cache.NewRequestKey(d.id, nil))
	return d.cache.GetOrCompute(ctx, key, d.Delegate.Data)
}

func (d *cachedDataset) SortedData(ctx context.Context, ordering octofetch.Ordering) (execution.RecordStream, error) {
	if len(ordering) == 0 {
		return d.Data(ctx)
	}
	key := d.track(cache.NewRequestKey(d.id, ordering))
	return d.cache.GetOrCompute(ctx, key, func(ctx context.Context) (execution.RecordStream, error) {
		return d.Delegate.SortedData(ctx, ordering)
	})
}

func (d *cachedDataset) track(key cache.RequestKey) cache.RequestKey {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.keys[key] = struct{}{}
	return key
}

func (d *cachedDataset) invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key := range d.keys {
		d.cache.Invalidate(key)
	}
	d.keys = make(map[cache.RequestKey]struct{})
}
