package execution

import (
	"context"
)

// SkipStream drops the first records of the underlying stream.
type SkipStream struct {
	source RecordStream
	skip   int
}

func NewSkipStream(skip int, source RecordStream) *SkipStream {
	return &SkipStream{
		source: source,
		skip:   skip,
	}
}

func (s *SkipStream) Next(ctx context.Context) (*Record, error) {
	for s.skip > 0 {
		if _, err := s.source.Next(ctx); err != nil {
			return nil, err
		}
		s.skip--
	}
	return s.source.Next(ctx)
}

func (s *SkipStream) Close() error {
	return s.source.Close()
}
