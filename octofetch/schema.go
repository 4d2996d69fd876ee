package octofetch

import (
	"fmt"
	"strings"
)

type Role int

const (
	RoleIdentifier Role = iota
	RoleMeasure
	RoleAttribute
)

func (r Role) String() string {
	switch r {
	case RoleIdentifier:
		return "identifier"
	case RoleMeasure:
		return "measure"
	case RoleAttribute:
		return "attribute"
	}
	return "unknown"
}

type Field struct {
	Name string
	Type Type
	Role Role
}

type Schema struct {
	Fields []Field
}

func NewSchema(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// FieldIndex returns the position of the named field, or -1.
func (s Schema) FieldIndex(name string) int {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i := range s.Fields {
		out[i] = s.Fields[i].Name
	}
	return out
}

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

type SortKey struct {
	Column    string
	Direction Direction
}

// Ordering is the requested order of a dataset, most significant column first.
// The empty ordering means the natural order of the source.
type Ordering []SortKey

// String is the canonical form of the ordering, suitable for use in cache keys.
func (o Ordering) String() string {
	parts := make([]string, len(o))
	for i := range o {
		parts[i] = o[i].Column + ":" + o[i].Direction.String()
	}
	return strings.Join(parts, ",")
}

// ParseOrdering parses orderings of the form "col[:asc|desc],...".
func ParseOrdering(text string) (Ordering, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var out Ordering
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		column, direction := part, "asc"
		if i := strings.LastIndex(part, ":"); i != -1 {
			column, direction = part[:i], strings.ToLower(part[i+1:])
		}
		if column == "" {
			return nil, fmt.Errorf("empty column name in ordering '%s'", text)
		}
		key := SortKey{Column: column}
		switch direction {
		case "asc":
			key.Direction = Ascending
		case "desc":
			key.Direction = Descending
		default:
			return nil, fmt.Errorf("invalid direction '%s' for column '%s'", direction, column)
		}
		out = append(out, key)
	}
	return out, nil
}

// Comparator resolves the ordering against the schema and returns a function
// comparing two value rows of that schema.
func (o Ordering) Comparator(schema Schema) (func(a, b []Value) int, error) {
	indices := make([]int, len(o))
	for i := range o {
		indices[i] = schema.FieldIndex(o[i].Column)
		if indices[i] == -1 {
			return nil, fmt.Errorf("unknown column '%s' in ordering", o[i].Column)
		}
	}
	return func(a, b []Value) int {
		for i, index := range indices {
			if cmp := a[index].Compare(b[index]); cmp != 0 {
				if o[i].Direction == Descending {
					return -cmp
				}
				return cmp
			}
		}
		return 0
	}, nil
}
