package connectors

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
)

// Regex rewrites identifiers fully matching the pattern before passing them on.
// The replacement may reference capture groups, as in regexp.Regexp.ReplaceAllString.
type Regex struct {
	Forwarding
	pattern     *regexp.Regexp
	replacement string
}

func NewRegex(connector Connector, pattern, replacement string) (*Regex, error) {
	compiled, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't compile identifier pattern %s", pattern)
	}
	return &Regex{
		Forwarding:  Forwarding{Delegate: connector},
		pattern:     compiled,
		replacement: replacement,
	}, nil
}

// Rewrite returns the identifier passed on to the underlying connector.
func (r *Regex) Rewrite(id string) string {
	if !r.pattern.MatchString(id) {
		return id
	}
	return r.pattern.ReplaceAllString(id, r.replacement)
}

func (r *Regex) CanHandle(id string) bool {
	return r.Delegate.CanHandle(r.Rewrite(id))
}

func (r *Regex) GetDataset(ctx context.Context, id string) (Dataset, error) {
	return r.Delegate.GetDataset(ctx, r.Rewrite(id))
}

func (r *Regex) PutDataset(ctx context.Context, id string, dataset Dataset) (Dataset, error) {
	return r.Delegate.PutDataset(ctx, r.Rewrite(id), dataset)
}
