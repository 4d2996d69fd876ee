package formats

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	"github.com/cube2222/octofetch/octofetch"
)

// JSONFormatter writes one JSON object per line.
type JSONFormatter struct {
	buf    []byte
	arena  *fastjson.Arena
	w      io.Writer
	fields []octofetch.Field
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{
		buf:   make([]byte, 0, 1024),
		arena: new(fastjson.Arena),
		w:     w,
	}
}

func (t *JSONFormatter) SetSchema(schema octofetch.Schema) {
	t.fields = schema.Fields
}

func (t *JSONFormatter) Write(values []octofetch.Value) error {
	obj := t.arena.NewObject()
	for i := range t.fields {
		obj.Set(t.fields[i].Name, ValueToJson(t.arena, values[i]))
	}

	t.buf = obj.MarshalTo(t.buf)
	t.buf = append(t.buf, '\n')
	_, err := t.w.Write(t.buf)
	t.buf = t.buf[:0]
	t.arena.Reset()
	if err != nil {
		return errors.Wrap(err, "couldn't write json line")
	}
	return nil
}

func ValueToJson(arena *fastjson.Arena, value octofetch.Value) *fastjson.Value {
	switch value.TypeID {
	case octofetch.TypeIDInt:
		return arena.NewNumberInt(value.Int)
	case octofetch.TypeIDFloat:
		return arena.NewNumberFloat64(value.Float)
	case octofetch.TypeIDBoolean:
		if value.Boolean {
			return arena.NewTrue()
		}
		return arena.NewFalse()
	case octofetch.TypeIDString:
		return arena.NewString(value.Str)
	case octofetch.TypeIDTime:
		return arena.NewString(value.Time.Format(time.RFC3339Nano))
	case octofetch.TypeIDDuration:
		return arena.NewString(value.Duration.String())
	default:
		return arena.NewNull()
	}
}

func (t *JSONFormatter) Close() error {
	return nil
}
