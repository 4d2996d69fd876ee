package formats

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/cube2222/octofetch/octofetch"
)

// TableFormatter buffers all rows and renders them on Close.
type TableFormatter struct {
	table *tablewriter.Table
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	table := tablewriter.NewWriter(w)
	table.SetColWidth(24)
	table.SetRowLine(false)
	table.SetAutoFormatHeaders(false)

	return &TableFormatter{
		table: table,
	}
}

func (t *TableFormatter) SetSchema(schema octofetch.Schema) {
	t.table.SetHeader(schema.Names())
}

func (t *TableFormatter) Write(values []octofetch.Value) error {
	row := make([]string, len(values))
	for i := range values {
		row[i] = values[i].String()
	}
	t.table.Append(row)
	return nil
}

func (t *TableFormatter) Close() error {
	t.table.Render()
	return nil
}
