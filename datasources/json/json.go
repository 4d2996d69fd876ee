package json

import (
	"bufio"
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/connectors"
	"github.com/cube2222/octofetch/datasources/internal/body"
	"github.com/cube2222/octofetch/datasources/internal/columns"
	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

const maxLineSize = 1024 * 1024

// Dataset reads newline delimited JSON objects, from a file or over HTTP.
type Dataset struct {
	name   string
	source body.Source
	client *http.Client
	schema octofetch.Schema
	bridge *execution.Bridge
}

func Creator(ctx context.Context, name string, dbConfig map[string]interface{}, bridge *execution.Bridge) (*Dataset, error) {
	path, err := config.GetString(dbConfig, "path")
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get path")
	}
	compression, err := config.GetString(dbConfig, "compression", config.WithDefault("auto"))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get compression")
	}
	headersUntyped, err := config.GetMap(dbConfig, "headers", config.WithDefault(map[string]interface{}{}))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get headers")
	}
	headers := make(map[string]string, len(headersUntyped))
	for k := range headersUntyped {
		if headers[k], err = config.GetString(headersUntyped, k); err != nil {
			return nil, errors.Wrapf(err, "couldn't get header %s", k)
		}
	}
	timeout, err := config.GetDuration(dbConfig, "requestTimeout", config.WithDefault(time.Duration(0)))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get requestTimeout")
	}
	sampleLines, err := config.GetInt(dbConfig, "schemaSampleLines", config.WithDefault(100))
	if err != nil {
		return nil, errors.Wrap(err, "couldn't get schemaSampleLines")
	}

	d := &Dataset{
		name: name,
		source: body.Source{
			Location:    path,
			Headers:     headers,
			Compression: compression,
		},
		client: &http.Client{Timeout: timeout},
		bridge: bridge,
	}

	schema, ok, err := columns.FromConfig(dbConfig)
	if err != nil {
		return nil, err
	}
	if !ok {
		if schema, err = d.inferSchema(ctx, sampleLines); err != nil {
			return nil, errors.Wrapf(err, "couldn't infer schema of %s", name)
		}
	}
	d.schema = schema

	return d, nil
}

func (d *Dataset) inferSchema(ctx context.Context, sampleLines int) (octofetch.Schema, error) {
	f, err := body.Open(ctx, d.client, d.source)
	if err != nil {
		return octofetch.Schema{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(nil, maxLineSize)

	var names []string
	var types []octofetch.Type
	positions := make(map[string]int)

	var p fastjson.Parser
	for sampled := 0; sampled < sampleLines && sc.Scan(); {
		if len(sc.Bytes()) == 0 {
			continue
		}
		v, err := p.ParseBytes(sc.Bytes())
		if err != nil {
			return octofetch.Schema{}, errors.Wrap(err, "couldn't parse json")
		}
		o, err := v.Object()
		if err != nil {
			return octofetch.Schema{}, errors.Errorf("expected JSON object, got '%s'", sc.Text())
		}

		seen := make([]bool, len(names))
		o.Visit(func(key []byte, v *fastjson.Value) {
			i, ok := positions[string(key)]
			if !ok {
				i = len(names)
				positions[string(key)] = i
				names = append(names, string(key))
				t := octofetch.Null
				if sampled > 0 {
					// Missing in the previous objects.
					t = t.Widen(octofetch.TypeIDNull)
				}
				types = append(types, t)
				seen = append(seen, false)
			}
			seen[i] = true
			types[i] = types[i].Widen(inferValue(v).TypeID)
		})
		for i := range seen {
			if !seen[i] {
				types[i] = types[i].Widen(octofetch.TypeIDNull)
			}
		}
		sampled++
	}
	if err := sc.Err(); err != nil {
		return octofetch.Schema{}, errors.Wrap(err, "couldn't read lines")
	}

	fields := make([]octofetch.Field, len(names))
	for i := range names {
		t := types[i]
		if t.TypeID == octofetch.TypeIDNull {
			t = octofetch.Any
		}
		fields[i] = octofetch.Field{Name: names[i], Type: t, Role: octofetch.RoleMeasure}
	}
	return octofetch.NewSchema(fields...), nil
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
	return nil, errors.Wrapf(connectors.ErrOrderingNotSupported, "couldn't sort json dataset %s", d.name)
}

func (d *Dataset) fetch(ctx context.Context, produce execution.ProduceFn, ready execution.ReadyFn) error {
	f, err := body.Open(ctx, d.client, d.source)
	if err != nil {
		return err
	}
	defer f.Close()
	ready()

	sc := bufio.NewScanner(f)
	sc.Buffer(nil, maxLineSize)

	var p fastjson.Parser
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		v, err := p.ParseBytes(sc.Bytes())
		if err != nil {
			return errors.Wrapf(err, "couldn't parse json on line %d", line)
		}
		o, err := v.Object()
		if err != nil {
			return errors.Errorf("expected JSON object on line %d, got '%s'", line, sc.Text())
		}

		values := make([]octofetch.Value, len(d.schema.Fields))
		for i := range values {
			var ok bool
			values[i], ok = getValue(d.schema.Fields[i].Type, o.Get(d.schema.Fields[i].Name))
			if !ok {
				return errors.Errorf("invalid value of %s on line %d, expected %s", d.schema.Fields[i].Name, line, d.schema.Fields[i].Type)
			}
		}

		if err := produce(execution.NewRecord(values...)); err != nil {
			return errors.Wrap(err, "couldn't produce record")
		}
	}
	return sc.Err()
}

// inferValue picks the most specific value for a JSON value, nested values are kept as JSON text.
func inferValue(value *fastjson.Value) octofetch.Value {
	if value == nil {
		return octofetch.NewNull()
	}
	switch value.Type() {
	case fastjson.TypeNull:
		return octofetch.NewNull()
	case fastjson.TypeNumber:
		if v, err := value.Int(); err == nil {
			return octofetch.NewInt(v)
		}
		v, _ := value.Float64()
		return octofetch.NewFloat(v)
	case fastjson.TypeTrue:
		return octofetch.NewBoolean(true)
	case fastjson.TypeFalse:
		return octofetch.NewBoolean(false)
	case fastjson.TypeString:
		v, _ := value.StringBytes()
		if parsed, err := time.Parse(time.RFC3339Nano, string(v)); err == nil {
			return octofetch.NewTime(parsed)
		}
		return octofetch.NewString(string(v))
	default:
		return octofetch.NewString(string(value.MarshalTo(nil)))
	}
}

func getValue(t octofetch.Type, value *fastjson.Value) (out octofetch.Value, ok bool) {
	if value == nil || value.Type() == fastjson.TypeNull {
		return octofetch.NewNull(), t.Accepts(octofetch.TypeIDNull)
	}

	switch t.TypeID {
	case octofetch.TypeIDInt:
		if v, err := value.Int(); err == nil {
			return octofetch.NewInt(v), true
		}
	case octofetch.TypeIDFloat:
		if value.Type() == fastjson.TypeNumber {
			v, _ := value.Float64()
			return octofetch.NewFloat(v), true
		}
	case octofetch.TypeIDBoolean:
		if value.Type() == fastjson.TypeTrue {
			return octofetch.NewBoolean(true), true
		} else if value.Type() == fastjson.TypeFalse {
			return octofetch.NewBoolean(false), true
		}
	case octofetch.TypeIDString:
		if value.Type() == fastjson.TypeString {
			v, _ := value.StringBytes()
			return octofetch.NewString(string(v)), true
		}
		return octofetch.NewString(string(value.MarshalTo(nil))), true
	case octofetch.TypeIDTime:
		if value.Type() == fastjson.TypeString {
			v, _ := value.StringBytes()
			if parsed, err := time.Parse(time.RFC3339Nano, string(v)); err == nil {
				return octofetch.NewTime(parsed), true
			}
		}
	case octofetch.TypeIDDuration:
		if value.Type() == fastjson.TypeString {
			v, _ := value.StringBytes()
			if parsed, err := time.ParseDuration(string(v)); err == nil {
				return octofetch.NewDuration(parsed), true
			}
		}
	case octofetch.TypeIDAny:
		return inferValue(value), true
	}

	return octofetch.ZeroValue, false
}
