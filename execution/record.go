package execution

import (
	"strings"

	"github.com/cube2222/octofetch/octofetch"
)

// Record is a single decoded row of a dataset.
// It's immutable once created, so it's safe to share between goroutines.
type Record struct {
	values []octofetch.Value
}

// endOfStream marks the end of a stream on a channel.
// It's only ever compared by identity, never by contents.
var endOfStream = &Record{}

func NewRecord(values ...octofetch.Value) *Record {
	data := make([]octofetch.Value, len(values))
	copy(data, values)
	return &Record{values: data}
}

// NewRecordFromGo normalizes raw Go values into a record.
func NewRecordFromGo(values ...interface{}) *Record {
	data := make([]octofetch.Value, len(values))
	for i := range values {
		data[i] = octofetch.NewValueFromGo(values[i])
	}
	return &Record{values: data}
}

func (r *Record) Len() int {
	return len(r.values)
}

func (r *Record) Value(i int) octofetch.Value {
	return r.values[i]
}

// Values returns a copy of the record values.
func (r *Record) Values() []octofetch.Value {
	out := make([]octofetch.Value, len(r.values))
	copy(out, r.values)
	return out
}

// Copy returns an independent record with the same values.
func (r *Record) Copy() *Record {
	return NewRecord(r.values...)
}

func (r *Record) Equal(other *Record) bool {
	if len(r.values) != len(other.values) {
		return false
	}
	for i := range r.values {
		if !r.values[i].Equal(other.values[i]) {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	builder := &strings.Builder{}
	builder.WriteString("{")
	for i := range r.values {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(r.values[i].String())
	}
	builder.WriteString("}")
	return builder.String()
}
