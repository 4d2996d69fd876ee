package memory

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/datasources/internal/columns"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

// Dataset is a dataset held entirely in memory.
type Dataset struct {
	schema  octofetch.Schema
	records []*execution.Record
}

func NewDataset(schema octofetch.Schema, records []*execution.Record) *Dataset {
	return &Dataset{
		schema:  schema,
		records: records,
	}
}

// FromStream drains the stream into a new in-memory dataset.
func FromStream(ctx context.Context, schema octofetch.Schema, stream execution.RecordStream) (*Dataset, error) {
	records, err := execution.ReadAll(ctx, stream)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read records")
	}
	return NewDataset(schema, records), nil
}

func (d *Dataset) Schema() octofetch.Schema {
	return d.schema
}

func (d *Dataset) Len() int {
	return len(d.records)
}

func (d *Dataset) Data(ctx context.Context) (execution.RecordStream, error) {
	return execution.NewInMemoryStream(d.records), nil
}

func (d *Dataset) SortedData(ctx context.Context, ordering octofetch.Ordering) (execution.RecordStream, error) {
	sorted, err := Sort(d.schema, d.records, ordering)
	if err != nil {
		return nil, err
	}
	return execution.NewInMemoryStream(sorted), nil
}

// Creator reads a dataset declared inline in the configuration:
//  config:
//    columns: [id:int:identifier, name:string]
//    rows: [[1, Alice], [2, Bob]]
func Creator(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (*Dataset, error) {
	schema, ok, err := columns.FromConfig(dbConfig)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Errorf("memory dataset %s needs declared columns", name)
	}

	rows, err := config.GetInterfaceList(dbConfig, "rows", config.WithDefault([]interface{}{}))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get rows")
	}

	records := make([]*execution.Record, len(rows))
	for i := range rows {
		row, ok := rows[i].([]interface{})
		if !ok {
			return nil, errors.Errorf("row with index %d should be a list", i)
		}
		if len(row) != len(schema.Fields) {
			return nil, errors.Errorf("row with index %d has %d values, expected %d", i, len(row), len(schema.Fields))
		}
		values := make([]octofetch.Value, len(row))
		for j := range row {
			values[j] = octofetch.NewValueFromGo(row[j])
			if text, ok := row[j].(string); ok && schema.Fields[j].Type.TypeID != octofetch.TypeIDString {
				if values[j], err = octofetch.ParseValueAs(schema.Fields[j].Type, text); err != nil {
					return nil, errors.Wrapf(err, "invalid value in row %d", i)
				}
			}
			if !schema.Fields[j].Type.Accepts(values[j].TypeID) {
				return nil, errors.Errorf("value %s in row %d doesn't match column %s of type %s", values[j], i, schema.Fields[j].Name, schema.Fields[j].Type)
			}
		}
		records[i] = execution.NewRecord(values...)
	}

	return NewDataset(schema, records), nil
}
