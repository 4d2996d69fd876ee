package parquet

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/segmentio/parquet-go"

	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

// Dataset reads the flat, top level columns of a local parquet file.
// Nested and repeated columns are skipped.
type Dataset struct {
	name   string
	path   string
	schema octofetch.Schema
	// columns holds the parquet leaf column index of each schema field.
	columns []int
	bridge  *execution.Bridge
}

func Creator(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (*Dataset, error) {
	path, err := config.GetString(dbConfig, "path")
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get path")
	}

	f, pf, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var fields []octofetch.Field
	var columns []int
	column := 0
	for _, field := range pf.Schema().Fields() {
		t, ok := getFieldType(field)
		if ok {
			fields = append(fields, octofetch.Field{
				Name: field.Name(),
				Type: t,
				Role: octofetch.RoleMeasure,
			})
			columns = append(columns, column)
		} else {
			log.Printf("parquet: skipping unsupported column %s of %s", field.Name(), name)
		}
		column += leafCount(field)
	}

	return &Dataset{
		name:    name,
		path:    path,
		schema:  octofetch.NewSchema(fields...),
		columns: columns,
		bridge:  bridge,
	}, nil
}

func openFile(path string) (*os.File, *parquet.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "couldn't open file")
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrap(err, "couldn't stat file")
	}

	pf, err := parquet.OpenFile(f, stat.Size(), &parquet.FileConfig{
		SkipPageIndex:    true,
		SkipBloomFilters: true,
	})
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrap(err, "couldn't open parquet file")
	}
	return f, pf, nil
}

func leafCount(node parquet.Node) int {
	if node.Leaf() {
		return 1
	}
	count := 0
	for _, child := range node.Fields() {
		count += leafCount(child)
	}
	return count
}

func getFieldType(node parquet.Node) (octofetch.Type, bool) {
	if !node.Leaf() || node.Repeated() {
		return octofetch.Type{}, false
	}
	if node.Type().String() == "NULL" {
		return octofetch.Type{}, false
	}

	var out octofetch.Type
	switch node.Type().Kind() {
	case parquet.Boolean:
		out = octofetch.Boolean
	case parquet.Int32, parquet.Int64:
		out = octofetch.Int
	case parquet.Float, parquet.Double:
		out = octofetch.Float
	case parquet.Int96, parquet.ByteArray, parquet.FixedLenByteArray:
		out = octofetch.String
	default:
		return octofetch.Type{}, false
	}

	if node.Optional() {
		out = out.WithNullable()
	}
	return out, true
}

func (d *Dataset) Schema() octofetch.Schema {
	return d.schema
}

func (d *Dataset) Data(ctx context.Context) (execution.RecordStream, error) {
	stream, err := d.bridge.Open(ctx, d.name, d.fetch)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (d *Dataset) SortedData(ctx context.Context, ordering octofetch.Ordering) (execution.RecordStream, error) {
	return nil, errors.Wrapf(connectors.ErrOrderingNotSupported, "couldn't sort parquet dataset %s", d.name)
}

func (d *Dataset) fetch(ctx context.Context, produce execution.ProduceFn, ready execution.ReadyFn) error {
	f, pf, err := openFile(d.path)
	if err != nil {
		return err
	}
	defer f.Close()
	ready()

	positions := make(map[int]int, len(d.columns))
	for i, column := range d.columns {
		positions[column] = i
	}

	var row parquet.Row
	pr := parquet.NewReader(pf)
	for {
		row, err = pr.ReadRow(row)
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "couldn't read row")
		}

		values := make([]octofetch.Value, len(d.columns))
		for i := range values {
			values[i] = octofetch.NewNull()
		}
		for _, v := range row {
			if i, ok := positions[v.Column()]; ok {
				values[i] = getValue(v)
			}
		}

		if err := produce(execution.NewRecord(values...)); err != nil {
			return errors.Wrap(err, "couldn't produce record")
		}
	}
}

func getValue(src parquet.Value) octofetch.Value {
	if src.IsNull() {
		return octofetch.NewNull()
	}

	switch src.Kind() {
	case parquet.Boolean:
		return octofetch.NewBoolean(src.Boolean())
	case parquet.Int32:
		return octofetch.NewInt(int(src.Int32()))
	case parquet.Int64:
		return octofetch.NewInt(int(src.Int64()))
	case parquet.Int96:
		return octofetch.NewString(src.Int96().String())
	case parquet.Float:
		return octofetch.NewFloat(float64(src.Float()))
	case parquet.Double:
		return octofetch.NewFloat(src.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return octofetch.NewString(string(src.ByteArray()))
	default:
		return octofetch.NewNull()
	}
}
