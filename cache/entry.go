package cache

import (
	"time"

	"github.com/cube2222/octofetch/execution"
)

// Entry is the complete result of a fully drained fetch. It never changes once published.
type Entry struct {
	Key       RequestKey
	CreatedAt time.Time

	records []*execution.Record
}

func newEntry(key RequestKey, records []*execution.Record) *Entry {
	return &Entry{
		Key:       key,
		CreatedAt: time.Now(),
		records:   records,
	}
}

func (e *Entry) Len() int {
	return len(e.records)
}

// Records returns copies of the captured records.
func (e *Entry) Records() []*execution.Record {
	out := make([]*execution.Record, len(e.records))
	for i := range e.records {
		out[i] = e.records[i].Copy()
	}
	return out
}

// Stream returns a fresh replay of the entry.
func (e *Entry) Stream() execution.RecordStream {
	return execution.NewInMemoryStream(e.records)
}

func (e *Entry) cost() int64 {
	if len(e.records) == 0 {
		return 1
	}
	return int64(len(e.records))
}
