package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/datasources/internal/body"
	"github.com/cube2222/octofetch/datasources/internal/columns"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

type Dataset struct {
	name      string
	source    body.Source
	client    *http.Client
	separator rune
	header    bool
	schema    octofetch.Schema
	bridge    *execution.Bridge
}

func Creator(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (*Dataset, error) {
	path, err := config.GetString(dbConfig, "path")
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get path")
	}
	hasColumns, err := config.GetBool(dbConfig, "headerRow", config.WithDefault(true))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get headerRow")
	}
	separator, err := config.GetString(dbConfig, "separator", config.WithDefault(","))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get separator")
	}
	r, _ := utf8.DecodeRuneInString(separator)
	if r == utf8.RuneError {
		return nil, errors.Errorf("couldn't decode separator %s to rune", separator)
	}
	compression, err := config.GetString(dbConfig, "compression", config.WithDefault("auto"))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get compression")
	}
	sampleRows, err := config.GetInt(dbConfig, "schemaSampleRows", config.WithDefault(10))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get schemaSampleRows")
	}

	d := &Dataset{
		name: name,
		source: body.Source{
			Location:    path,
			Compression: compression,
		},
		client:    http.DefaultClient,
		separator: r,
		header:    hasColumns,
		bridge:    bridge,
	}

	schema, ok, err := columns.FromConfig(dbConfig)
	if err != nil {
		return nil, err
	}
	if !ok {
		if schema, err = d.inferSchema(ctx, sampleRows); err != nil {
			return nil, errors.Wrapf(err, "couldn't infer schema of %s", name)
		}
	}
	d.schema = schema

	return d, nil
}

func (d *Dataset) newReader(r io.Reader) *csv.Reader {
	decoder := csv.NewReader(r)
	decoder.Comma = d.separator
	decoder.TrimLeadingSpace = true
	decoder.ReuseRecord = true
	return decoder
}

func (d *Dataset) inferSchema(ctx context.Context, sampleRows int) (octofetch.Schema, error) {
	f, err := body.Open(ctx, d.client, d.source)
	if err != nil {
		return octofetch.Schema{}, err
	}
	defer f.Close()

	decoder := d.newReader(f)
	row, err := decoder.Read()
	if err != nil {
		return octofetch.Schema{}, errors.Wrap(err, "couldn't decode csv header row")
	}

	names := make([]string, len(row))
	var sample [][]octofetch.Value
	if d.header {
		copy(names, row)
	} else {
		for i := range names {
			names[i] = fmt.Sprintf("column_%d", i+1)
		}
		sample = append(sample, parseRow(row))
	}

	for len(sample) < sampleRows {
		row, err := decoder.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return octofetch.Schema{}, errors.Wrap(err, "couldn't decode csv row")
		}
		sample = append(sample, parseRow(row))
	}

	return columns.Infer(names, sample), nil
}

func parseRow(row []string) []octofetch.Value {
	out := make([]octofetch.Value, len(row))
	for i := range row {
		if row[i] == "" {
			out[i] = octofetch.NewNull()
			continue
		}
		out[i] = octofetch.ParseValue(row[i])
	}
	return out
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
	return nil, errors.Wrapf(connectors.ErrOrderingNotSupported, "couldn't sort csv dataset %s", d.name)
}

func (d *Dataset) fetch(ctx context.Context, produce execution.ProduceFn, ready execution.ReadyFn) error {
	f, err := body.Open(ctx, d.client, d.source)
	if err != nil {
		return err
	}
	defer f.Close()
	ready()

	decoder := d.newReader(f)
	decoder.FieldsPerRecord = len(d.schema.Fields)
	if d.header {
		if _, err := decoder.Read(); err != nil {
			return errors.Wrap(err, "couldn't decode csv header row")
		}
	}

	for line := 1; ; line++ {
		row, err := decoder.Read()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "couldn't decode csv row")
		}

		values := make([]octofetch.Value, len(row))
		for i := range row {
			if values[i], err = octofetch.ParseValueAs(d.schema.Fields[i].Type, row[i]); err != nil {
				return errors.Wrapf(err, "invalid value in row %d column %s", line, d.schema.Fields[i].Name)
			}
		}

		if err := produce(execution.NewRecord(values...)); err != nil {
			return errors.Wrap(err, "couldn't produce record")
		}
	}
}
