package formats

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/octofetch"
)

type CSVFormatter struct {
	writer *csv.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{
		writer: csv.NewWriter(w),
	}
}

func (t *CSVFormatter) SetSchema(schema octofetch.Schema) {
	t.writer.Write(schema.Names())
}

// Write prints nulls as empty cells.
func (t *CSVFormatter) Write(values []octofetch.Value) error {
	row := make([]string, len(values))
	for i := range values {
		if values[i].TypeID != octofetch.TypeIDNull {
			row[i] = values[i].String()
		}
	}
	return t.writer.Write(row)
}

func (t *CSVFormatter) Close() error {
	t.writer.Flush()
	if err := t.writer.Error(); err != nil {
		return errors.Wrap(err, "couldn't flush csv output")
	}
	return nil
}
