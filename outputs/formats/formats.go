package formats

import (
	"io"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/octofetch"
)

// Formatter prints records of a single schema.
type Formatter interface {
	SetSchema(schema octofetch.Schema)
	Write(values []octofetch.Value) error
	// Close flushes everything written so far.
	Close() error
}

var Formatters = map[string]func(w io.Writer) Formatter{
	"table": func(w io.Writer) Formatter { return NewTableFormatter(w) },
	"csv":   func(w io.Writer) Formatter { return NewCSVFormatter(w) },
	"json":  func(w io.Writer) Formatter { return NewJSONFormatter(w) },
}

func New(name string, w io.Writer) (Formatter, error) {
	newFormatter, ok := Formatters[name]
	if !ok {
		return nil, errors.Errorf("unknown output format %s, expected table, csv or json", name)
	}
	return newFormatter(w), nil
}
