package cmd

import (
	"context"

	"github.com/juju/clock"
	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/cache"
	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/datasources"
	"github.com/cube2222/octofetch/execution"
)

// environment is everything needed to serve datasets: the worker pool running fetches,
// the result cache, and the connector chain in front of the data sources.
type environment struct {
	pool      *execution.WorkerPool
	cache     *cache.Cache
	sources   *datasources.Connector
	connector connectors.Connector
}

// newEnvironment composes the connectors, outermost first:
// predicate, aliases, timeout, cache, in-memory sorting, and the router over data sources and files.
func newEnvironment(ctx context.Context, cfg *config.Config, clk clock.Clock) (*environment, error) {
	pool := execution.NewWorkerPool(cfg.Streaming.Workers)
	bridge := execution.NewBridge(
		pool,
		execution.WithChannelCapacity(cfg.Streaming.ChannelCapacity),
		execution.WithWaitForReady(cfg.Streaming.WaitForReady),
	)

	sources, err := datasources.NewConnector(cfg.DataSources, datasources.Creators, bridge)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create data sources")
	}
	routes := []connectors.Connector{sources}
	if cfg.Routing.Files {
		routes = append(routes, datasources.NewFiles(datasources.Creators, bridge))
	}

	resultCache, err := cache.New(cache.Options{
		MaxRecords: cfg.Cache.MaxRecords,
		TTL:        cfg.Cache.TTL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "couldn't create cache")
	}

	var connector connectors.Connector = connectors.NewSorting(connectors.NewRouter(routes...))
	connector = connectors.NewCached(connector, resultCache)
	if cfg.Streaming.Timeout > 0 {
		if connector, err = connectors.NewTimeout(connector, cfg.Streaming.Timeout, clk); err != nil {
			resultCache.Close()
			return nil, err
		}
	}
	for _, alias := range cfg.Routing.Aliases {
		if connector, err = connectors.NewRegex(connector, alias.Pattern, alias.Replacement); err != nil {
			resultCache.Close()
			return nil, err
		}
	}
	if len(cfg.Routing.Hidden) > 0 {
		predicates := make([]connectors.IdentifierPredicate, len(cfg.Routing.Hidden))
		for i := range cfg.Routing.Hidden {
			predicates[i] = connectors.Not(connectors.HasPrefix(cfg.Routing.Hidden[i]))
		}
		connector = connectors.NewPredicate(connector, true, predicates...)
	}

	return &environment{
		pool:      pool,
		cache:     resultCache,
		sources:   sources,
		connector: connector,
	}, nil
}

// Close waits for the fetches still winding down and releases the cache.
func (env *environment) Close() {
	env.pool.Wait()
	env.cache.Close()
}
