package execution

import (
	"context"

	"github.com/pkg/errors"
)

var ErrEndOfStream = errors.New("end of stream")

// RecordStream is a lazily consumed, cancelable sequence of records.
// Next returns ErrEndOfStream once all records have been delivered.
// Close may be called at any time, any number of times.
type RecordStream interface {
	Next(ctx context.Context) (*Record, error)
	Close() error
}

// ReadAll drains the stream and closes it.
func ReadAll(ctx context.Context, stream RecordStream) (_ []*Record, outErr error) {
	defer func() {
		if err := stream.Close(); err != nil && outErr == nil {
			outErr = errors.Wrap(err, "couldn't close stream")
		}
	}()

	var out []*Record
	for {
		rec, err := stream.Next(ctx)
		if err == ErrEndOfStream {
			return out, nil
		} else if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// ForEach calls fn for each record of the stream, then closes it.
func ForEach(ctx context.Context, stream RecordStream, fn func(rec *Record) error) (outErr error) {
	defer func() {
		if err := stream.Close(); err != nil && outErr == nil {
			outErr = errors.Wrap(err, "couldn't close stream")
		}
	}()

	for {
		rec, err := stream.Next(ctx)
		if err == ErrEndOfStream {
			return nil
		} else if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
