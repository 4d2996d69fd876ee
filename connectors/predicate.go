package connectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type IdentifierPredicate func(id string) bool

func HasPrefix(prefix string) IdentifierPredicate {
	return func(id string) bool {
		return strings.HasPrefix(id, prefix)
	}
}

func Not(predicate IdentifierPredicate) IdentifierPredicate {
	return func(id string) bool {
		return !predicate(id)
	}
}

// NotAllowedError is returned by a raising predicate connector for rejected identifiers.
type NotAllowedError struct {
	ID string
}

func (e *NotAllowedError) Error() string {
	return fmt.Sprintf("[%s] is not allowed", e.ID)
}

// Predicate only lets through identifiers accepted by all of its predicates.
// If raise is set, rejected identifiers are reported as errors instead of being silently not handled.
type Predicate struct {
	Forwarding
	raise      bool
	predicates []IdentifierPredicate
}

func NewPredicate(connector Connector, raise bool, predicates ...IdentifierPredicate) *Predicate {
	return &Predicate{
		Forwarding: Forwarding{Delegate: connector},
		raise:      raise,
		predicates: predicates,
	}
}

// Check returns an error if the identifier is rejected, nil otherwise.
func (p *Predicate) Check(id string) error {
	for _, predicate := range p.predicates {
		if !predicate(id) {
			if p.raise {
				return &NotAllowedError{ID: id}
			}
			return errors.Wrapf(ErrNotFound, "couldn't get dataset %s", id)
		}
	}
	return nil
}

func (p *Predicate) CanHandle(id string) bool {
	return p.Check(id) == nil && p.Delegate.CanHandle(id)
}

func (p *Predicate) GetDataset(ctx context.Context, id string) (Dataset, error) {
	if err := p.Check(id); err != nil {
		return nil, err
	}
	return p.Delegate.GetDataset(ctx, id)
}

func (p *Predicate) PutDataset(ctx context.Context, id string, dataset Dataset) (Dataset, error) {
	if err := p.Check(id); err != nil {
		return nil, err
	}
	return p.Delegate.PutDataset(ctx, id, dataset)
}
