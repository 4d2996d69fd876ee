package execution

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrStreamCancelled is returned when the consumer closed the stream or its context was cancelled.
// It's distinct from a FetchError, so callers can tell a deliberate cancellation from a failure.
var ErrStreamCancelled = errors.New("stream cancelled")

// ErrStreamTimedOut is returned by a stream that was forcibly closed by its deadline.
// It also matches ErrStreamCancelled.
var ErrStreamTimedOut error = timeoutClosure{}

type timeoutClosure struct{}

func (timeoutClosure) Error() string {
	return "stream closed after deadline"
}

func (timeoutClosure) Is(target error) bool {
	return target == ErrStreamCancelled
}

// FetchError is an I/O or protocol failure of the underlying fetch.
// The original cause is kept, it's available through errors.Cause and errors.As.
type FetchError struct {
	Source string
	err    error
}

func NewFetchError(source string, err error) *FetchError {
	return &FetchError{Source: source, err: err}
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("couldn't fetch %s: %s", e.Source, e.err)
}

func (e *FetchError) Cause() error {
	return e.err
}

func (e *FetchError) Unwrap() error {
	return e.err
}

func cancellation(cause error) error {
	if cause == nil {
		return ErrStreamCancelled
	}
	return errors.WithMessage(ErrStreamCancelled, cause.Error())
}

// IsCancellation reports whether the error comes from closing or cancelling the stream, including deadlines.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrStreamCancelled)
}
