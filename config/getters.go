package config

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("field not found")

type Option func(options *options)

type options struct {
	withDefault  bool
	defaultValue interface{}
}

func getOptions(opts ...Option) *options {
	out := &options{}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// WithDefault makes a missing field yield the given value. Its type has to match the getter.
func WithDefault(value interface{}) Option {
	return func(options *options) {
		options.withDefault = true
		options.defaultValue = value
	}
}

// GetInterface gets the given field irrespective of its type.
// Dots in the field name descend into nested maps, like "tls.certificate".
func GetInterface(config map[string]interface{}, field string, opts ...Option) (interface{}, error) {
	options := getOptions(opts...)

	current := config
	path := strings.Split(field, ".")
	for i, key := range path {
		element, ok := current[key]
		if !ok {
			if options.withDefault {
				return options.defaultValue, nil
			}
			return nil, errors.Wrapf(ErrNotFound, "%s", strings.Join(path[:i+1], "."))
		}
		if i == len(path)-1 {
			return element, nil
		}
		if current, ok = element.(map[string]interface{}); !ok {
			return nil, errors.Errorf("%s should be a map, got %v", strings.Join(path[:i+1], "."), reflect.TypeOf(element))
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%s", field)
}

// get looks up the field and converts it to the requested type.
func get[T any](config map[string]interface{}, field string, opts []Option, expected string, convert func(value interface{}) (T, error)) (T, error) {
	var zero T
	options := getOptions(opts...)

	value, err := GetInterface(config, field)
	if err != nil {
		if options.withDefault && errors.Cause(err) == ErrNotFound {
			return options.defaultValue.(T), nil
		}
		return zero, err
	}

	out, err := convert(value)
	if err != nil {
		return zero, errors.Wrapf(err, "invalid %s, expected %s", field, expected)
	}
	return out, nil
}

func typeMismatch(value interface{}) error {
	return errors.Errorf("got %v", reflect.TypeOf(value))
}

func GetInterfaceList(config map[string]interface{}, field string, opts ...Option) ([]interface{}, error) {
	return get(config, field, opts, "list", func(value interface{}) ([]interface{}, error) {
		if value == nil {
			return nil, nil
		}
		list, ok := value.([]interface{})
		if !ok {
			return nil, typeMismatch(value)
		}
		return list, nil
	})
}

func GetMap(config map[string]interface{}, field string, opts ...Option) (map[string]interface{}, error) {
	return get(config, field, opts, "map", func(value interface{}) (map[string]interface{}, error) {
		m, ok := value.(map[string]interface{})
		if !ok {
			return nil, typeMismatch(value)
		}
		return m, nil
	})
}

func GetString(config map[string]interface{}, field string, opts ...Option) (string, error) {
	return get(config, field, opts, "string", func(value interface{}) (string, error) {
		s, ok := value.(string)
		if !ok {
			return "", typeMismatch(value)
		}
		return s, nil
	})
}

func GetStringList(config map[string]interface{}, field string, opts ...Option) ([]string, error) {
	return get(config, field, opts, "string list", func(value interface{}) ([]string, error) {
		if value == nil {
			return nil, nil
		}
		list, ok := value.([]interface{})
		if !ok {
			return nil, typeMismatch(value)
		}
		out := make([]string, len(list))
		for i := range list {
			if out[i], ok = list[i].(string); !ok {
				return nil, errors.Wrapf(typeMismatch(list[i]), "at index %d", i)
			}
		}
		return out, nil
	})
}

func GetInt(config map[string]interface{}, field string, opts ...Option) (int, error) {
	return get(config, field, opts, "int", func(value interface{}) (int, error) {
		i, ok := value.(int)
		if !ok {
			return 0, typeMismatch(value)
		}
		return i, nil
	})
}

func GetBool(config map[string]interface{}, field string, opts ...Option) (bool, error) {
	return get(config, field, opts, "bool", func(value interface{}) (bool, error) {
		b, ok := value.(bool)
		if !ok {
			return false, typeMismatch(value)
		}
		return b, nil
	})
}

// GetDuration gets a duration written like "1m30s".
func GetDuration(config map[string]interface{}, field string, opts ...Option) (time.Duration, error) {
	return get(config, field, opts, "duration", func(value interface{}) (time.Duration, error) {
		switch value := value.(type) {
		case time.Duration:
			return value, nil
		case string:
			return time.ParseDuration(value)
		}
		return 0, typeMismatch(value)
	})
}

type hostPort struct {
	host string
	port int
}

// GetIPAddress gets a host:port address. The default, if any, is given as []interface{}{host, port}.
func GetIPAddress(config map[string]interface{}, field string, opts ...Option) (string, int, error) {
	options := getOptions(opts...)
	if options.withDefault {
		defaults := options.defaultValue.([]interface{})
		opts = append(opts, WithDefault(hostPort{host: defaults[0].(string), port: defaults[1].(int)}))
	}

	out, err := get(config, field, opts, "host:port address", func(value interface{}) (hostPort, error) {
		s, ok := value.(string)
		if !ok {
			return hostPort{}, typeMismatch(value)
		}
		i := strings.LastIndex(s, ":")
		if i == -1 {
			return hostPort{}, errors.Errorf("missing port in %s", s)
		}
		port, err := strconv.ParseUint(s[i+1:], 10, 16)
		if err != nil {
			return hostPort{}, errors.Wrap(err, "couldn't parse port")
		}
		return hostPort{host: s[:i], port: int(port)}, nil
	})
	return out.host, out.port, err
}
