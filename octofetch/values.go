package octofetch

import (
	"fmt"
	"strconv"
	"time"
)

var ZeroValue = Value{}

// Value is a single typed cell of a record.
// Values are plain data and are copied by assignment.
type Value struct {
	TypeID   TypeID
	Int      int
	Float    float64
	Boolean  bool
	Str      string
	Time     time.Time
	Duration time.Duration
}

func NewNull() Value {
	return Value{TypeID: TypeIDNull}
}

func NewInt(value int) Value {
	return Value{TypeID: TypeIDInt, Int: value}
}

func NewFloat(value float64) Value {
	return Value{TypeID: TypeIDFloat, Float: value}
}

func NewBoolean(value bool) Value {
	return Value{TypeID: TypeIDBoolean, Boolean: value}
}

func NewString(value string) Value {
	return Value{TypeID: TypeIDString, Str: value}
}

func NewTime(value time.Time) Value {
	return Value{TypeID: TypeIDTime, Time: value}
}

func NewDuration(value time.Duration) Value {
	return Value{TypeID: TypeIDDuration, Duration: value}
}

// NewValueFromGo normalizes a raw Go value, as returned by database drivers and decoders.
func NewValueFromGo(value interface{}) Value {
	switch value := value.(type) {
	case nil:
		return NewNull()
	case Value:
		return value
	case int:
		return NewInt(value)
	case int8:
		return NewInt(int(value))
	case int16:
		return NewInt(int(value))
	case int32:
		return NewInt(int(value))
	case int64:
		return NewInt(int(value))
	case uint8:
		return NewInt(int(value))
	case uint16:
		return NewInt(int(value))
	case uint32:
		return NewInt(int(value))
	case float32:
		return NewFloat(float64(value))
	case float64:
		return NewFloat(value)
	case bool:
		return NewBoolean(value)
	case string:
		return NewString(value)
	case []byte:
		return NewString(string(value))
	case time.Time:
		return NewTime(value)
	case time.Duration:
		return NewDuration(value)
	case fmt.Stringer:
		return NewString(value.String())
	default:
		return NewString(fmt.Sprint(value))
	}
}

// ParseValue tries to parse the given text into the most specific value it succeeds to.
// Returns a String value on failure.
func ParseValue(text string) Value {
	if integer, err := strconv.ParseInt(text, 10, 64); err == nil {
		return NewInt(int(integer))
	}
	if float, err := strconv.ParseFloat(text, 64); err == nil {
		return NewFloat(float)
	}
	if b, err := strconv.ParseBool(text); err == nil {
		return NewBoolean(b)
	}
	if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return NewTime(t)
	}
	return NewString(text)
}

// ParseValueAs parses the text as a value of the given type.
// Empty text is Null in nullable columns.
func ParseValueAs(t Type, text string) (Value, error) {
	if text == "" && (t.Nullable || t.TypeID == TypeIDNull) {
		return NewNull(), nil
	}

	switch t.TypeID {
	case TypeIDNull:
		return Value{}, fmt.Errorf("expected empty value, got '%s'", text)
	case TypeIDInt:
		integer, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("couldn't parse '%s' as int: %w", text, err)
		}
		return NewInt(int(integer)), nil
	case TypeIDFloat:
		float, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, fmt.Errorf("couldn't parse '%s' as float: %w", text, err)
		}
		return NewFloat(float), nil
	case TypeIDBoolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, fmt.Errorf("couldn't parse '%s' as boolean: %w", text, err)
		}
		return NewBoolean(b), nil
	case TypeIDString:
		return NewString(text), nil
	case TypeIDTime:
		parsed, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return Value{}, fmt.Errorf("couldn't parse '%s' as time: %w", text, err)
		}
		return NewTime(parsed), nil
	case TypeIDDuration:
		parsed, err := time.ParseDuration(text)
		if err != nil {
			return Value{}, fmt.Errorf("couldn't parse '%s' as duration: %w", text, err)
		}
		return NewDuration(parsed), nil
	default:
		if text == "" {
			return NewNull(), nil
		}
		return ParseValue(text), nil
	}
}

func (value Value) Compare(other Value) int {
	if value.TypeID != other.TypeID {
		if value.TypeID < other.TypeID {
			return -1
		}
		return 1
	}

	switch value.TypeID {
	case TypeIDNull:
		return 0

	case TypeIDInt:
		return compareOrdered(value.Int < other.Int, value.Int > other.Int)

	case TypeIDFloat:
		return compareOrdered(value.Float < other.Float, value.Float > other.Float)

	case TypeIDBoolean:
		return compareOrdered(!value.Boolean && other.Boolean, value.Boolean && !other.Boolean)

	case TypeIDString:
		return compareOrdered(value.Str < other.Str, value.Str > other.Str)

	case TypeIDTime:
		return compareOrdered(value.Time.Before(other.Time), value.Time.After(other.Time))

	case TypeIDDuration:
		return compareOrdered(value.Duration < other.Duration, value.Duration > other.Duration)

	default:
		panic("impossible, type switch bug")
	}
}

func compareOrdered(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}

func (value Value) Equal(other Value) bool {
	return value.Compare(other) == 0
}

func (value Value) String() string {
	switch value.TypeID {
	case TypeIDNull:
		return "<null>"
	case TypeIDInt:
		return strconv.Itoa(value.Int)
	case TypeIDFloat:
		return strconv.FormatFloat(value.Float, 'g', -1, 64)
	case TypeIDBoolean:
		return strconv.FormatBool(value.Boolean)
	case TypeIDString:
		return value.Str
	case TypeIDTime:
		return value.Time.Format(time.RFC3339Nano)
	case TypeIDDuration:
		return value.Duration.String()
	default:
		panic("impossible, type switch bug")
	}
}

func (value Value) ToRawGoValue() interface{} {
	switch value.TypeID {
	case TypeIDNull:
		return nil
	case TypeIDInt:
		return value.Int
	case TypeIDFloat:
		return value.Float
	case TypeIDBoolean:
		return value.Boolean
	case TypeIDString:
		return value.Str
	case TypeIDTime:
		return value.Time
	case TypeIDDuration:
		return value.Duration
	default:
		panic("invalid octofetch.Value to get Raw Go value for")
	}
}
