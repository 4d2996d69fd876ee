package columns

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/config"
	"github.com/cube2222/octofetch/octofetch"
)

// FromConfig reads an explicitly declared schema from the "columns" field.
// Each column is written as "name:type[:role]", e.g. "id:int:identifier" or "comment:string?".
// Returns false if there's no such field.
func FromConfig(dbConfig map[string]interface{}) (octofetch.Schema, bool, error) {
	declared, err := config.GetStringList(dbConfig, "columns", config.WithDefault([]string(nil)))
	if err != nil {
		return octofetch.Schema{}, false, errors.Wrap(err, "couldn't get columns")
	}
	if len(declared) == 0 {
		return octofetch.Schema{}, false, nil
	}

	fields := make([]octofetch.Field, len(declared))
	for i := range declared {
		field, err := ParseField(declared[i])
		if err != nil {
			return octofetch.Schema{}, false, errors.Wrapf(err, "invalid column with index %d", i)
		}
		fields[i] = field
	}
	return octofetch.NewSchema(fields...), true, nil
}

func ParseField(text string) (octofetch.Field, error) {
	parts := strings.Split(text, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return octofetch.Field{}, errors.Errorf("expected name:type[:role], got '%s'", text)
	}
	t, err := octofetch.ParseType(parts[1])
	if err != nil {
		return octofetch.Field{}, err
	}
	field := octofetch.Field{
		Name: parts[0],
		Type: t,
		Role: octofetch.RoleMeasure,
	}
	if len(parts) == 3 {
		switch strings.ToLower(parts[2]) {
		case "identifier":
			field.Role = octofetch.RoleIdentifier
		case "measure":
			field.Role = octofetch.RoleMeasure
		case "attribute":
			field.Role = octofetch.RoleAttribute
		default:
			return octofetch.Field{}, errors.Errorf("unknown role '%s'", parts[2])
		}
	}
	return field, nil
}

// Infer builds a schema from sampled rows of values.
// Columns with only nulls in the sample get the Any type.
func Infer(names []string, rows [][]octofetch.Value) octofetch.Schema {
	fields := make([]octofetch.Field, len(names))
	for i := range names {
		t := octofetch.Null
		for _, row := range rows {
			if i < len(row) {
				t = t.Widen(row[i].TypeID)
			}
		}
		if t.TypeID == octofetch.TypeIDNull {
			t = octofetch.Any
		}
		fields[i] = octofetch.Field{
			Name: names[i],
			Type: t,
			Role: octofetch.RoleMeasure,
		}
	}
	return octofetch.NewSchema(fields...)
}
