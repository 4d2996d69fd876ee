package connectors

import (
	"context"

	"github.com/pkg/errors"
)

// Router dispatches each identifier to the first connector able to handle it.
type Router struct {
	connectors []Connector
}

func NewRouter(connectors ...Connector) *Router {
	return &Router{
		connectors: connectors,
	}
}

func (r *Router) route(id string) (Connector, error) {
	for _, connector := range r.connectors {
		if connector.CanHandle(id) {
			return connector, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "no connector can handle %s", id)
}

func (r *Router) CanHandle(id string) bool {
	_, err := r.route(id)
	return err == nil
}

func (r *Router) GetDataset(ctx context.Context, id string) (Dataset, error) {
	connector, err := r.route(id)
	if err != nil {
		return nil, err
	}
	return connector.GetDataset(ctx, id)
}

func (r *Router) PutDataset(ctx context.Context, id string, dataset Dataset) (Dataset, error) {
	connector, err := r.route(id)
	if err != nil {
		return nil, err
	}
	return connector.PutDataset(ctx, id, dataset)
}
