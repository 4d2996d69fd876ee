package cache

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrClosed = errors.New("cache closed")

// ComputationError is returned when the fetch backing a cache entry failed.
// The driving caller and every caller waiting on the same key get the same instance.
type ComputationError struct {
	Key RequestKey
	err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("couldn't compute %s: %s", e.Key, e.err)
}

func (e *ComputationError) Cause() error {
	return e.err
}

func (e *ComputationError) Unwrap() error {
	return e.err
}
