package datasources

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/datasources/csv"
	"github.com/cube2222/octofetch/datasources/json"
	"github.com/cube2222/octofetch/datasources/memory"
	"github.com/cube2222/octofetch/datasources/parquet"
	"github.com/cube2222/octofetch/datasources/postgres"
	"github.com/cube2222/octofetch/execution"
)

// Creator builds the dataset described by a single data source configuration.
type Creator func(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (connectors.Dataset, error)

var Creators = map[string]Creator{
	"memory": func(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (connectors.Dataset, error) {
		return memory.Creator(ctx, name, dbConfig, bridge)
	},
	"csv": func(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (connectors.Dataset, error) {
		return csv.Creator(ctx, name, dbConfig, bridge)
	},
	"json": func(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (connectors.Dataset, error) {
		return json.Creator(ctx, name, dbConfig, bridge)
	},
	"parquet": func(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (connectors.Dataset, error) {
		return parquet.Creator(ctx, name, dbConfig, bridge)
	},
	"postgres": func(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (connectors.Dataset, error) {
		return postgres.Creator(ctx, name, dbConfig, bridge)
	},
}

// Connector serves the configured data sources. Each one is created on first use, at most once.
// Datasets put into the connector are held in memory and shadow configured ones with the same name.
type Connector struct {
	creators map[string]Creator
	bridge   *execution.Bridge

	configured map[string]*lazyDataset

	mu  sync.RWMutex
	put map[string]connectors.Dataset
}

type lazyDataset struct {
	config  config.DataSourceConfig
	once    sync.Once
	dataset connectors.Dataset
	err     error
}

func NewConnector(dataSources []config.DataSourceConfig, creators map[string]Creator, bridge *execution.Bridge) (*Connector, error) {
	configured := make(map[string]*lazyDataset, len(dataSources))
	for _, ds := range dataSources {
		if _, ok := creators[ds.Type]; !ok {
			return nil, errors.Errorf("unknown type %s of data source %s", ds.Type, ds.Name)
		}
		configured[ds.Name] = &lazyDataset{config: ds}
	}

	return &Connector{
		creators:   creators,
		bridge:     bridge,
		configured: configured,
		put:        make(map[string]connectors.Dataset),
	}, nil
}

func (c *Connector) CanHandle(id string) bool {
	if _, ok := c.configured[id]; ok {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.put[id]
	return ok
}

func (c *Connector) GetDataset(ctx context.Context, id string) (connectors.Dataset, error) {
	c.mu.RLock()
	dataset, ok := c.put[id]
	c.mu.RUnlock()
	if ok {
		return dataset, nil
	}

	lazy, ok := c.configured[id]
	if !ok {
		return nil, errors.Wrapf(connectors.ErrNotFound, "no data source named %s", id)
	}
	lazy.once.Do(func() {
		lazy.dataset, lazy.err = c.creators[lazy.config.Type](ctx, lazy.config.Name, lazy.config.Config, c.bridge)
	})
	if lazy.err != nil {
		return nil, errors.Wrapf(lazy.err, "couldn't create %s data source %s", lazy.config.Type, id)
	}
	return lazy.dataset, nil
}

// PutDataset drains the dataset into memory and serves it under id from now on.
func (c *Connector) PutDataset(ctx context.Context, id string, dataset connectors.Dataset) (connectors.Dataset, error) {
	stream, err := dataset.Data(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't get data of %s", id)
	}
	stored, err := memory.FromStream(ctx, dataset.Schema(), stream)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't store %s", id)
	}

	c.mu.Lock()
	c.put[id] = stored
	c.mu.Unlock()

	return stored, nil
}

// Names lists the names of all data sources, configured and put, in alphabetical order.
func (c *Connector) Names() []string {
	names := make([]string, 0, len(c.configured))
	for name := range c.configured {
		names = append(names, name)
	}
	c.mu.RLock()
	for name := range c.put {
		if _, ok := c.configured[name]; !ok {
			names = append(names, name)
		}
	}
	c.mu.RUnlock()
	sort.Strings(names)
	return names
}
