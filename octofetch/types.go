package octofetch

import (
	"fmt"
	"strings"
)

type TypeID int

const (
	TypeIDNull TypeID = iota
	TypeIDInt
	TypeIDFloat
	TypeIDBoolean
	TypeIDString
	TypeIDTime
	TypeIDDuration
	TypeIDAny
)

// Type describes the values of a single dataset column.
// A nullable column may also hold Null values next to its base type.
type Type struct {
	TypeID   TypeID
	Nullable bool
}

var (
	Null     = Type{TypeID: TypeIDNull}
	Int      = Type{TypeID: TypeIDInt}
	Float    = Type{TypeID: TypeIDFloat}
	Boolean  = Type{TypeID: TypeIDBoolean}
	String   = Type{TypeID: TypeIDString}
	Time     = Type{TypeID: TypeIDTime}
	Duration = Type{TypeID: TypeIDDuration}
	Any      = Type{TypeID: TypeIDAny}
)

func (t Type) WithNullable() Type {
	return Type{TypeID: t.TypeID, Nullable: true}
}

// Accepts reports whether a value with the given type id can be stored in a column of this type.
func (t Type) Accepts(id TypeID) bool {
	switch {
	case t.TypeID == TypeIDAny:
		return true
	case id == TypeIDNull:
		return t.Nullable || t.TypeID == TypeIDNull
	default:
		return t.TypeID == id
	}
}

func (t Type) String() string {
	out := t.TypeID.String()
	if t.Nullable && t.TypeID != TypeIDNull && t.TypeID != TypeIDAny {
		out += "?"
	}
	return out
}

func (id TypeID) String() string {
	switch id {
	case TypeIDNull:
		return "NULL"
	case TypeIDInt:
		return "Int"
	case TypeIDFloat:
		return "Float"
	case TypeIDBoolean:
		return "Boolean"
	case TypeIDString:
		return "String"
	case TypeIDTime:
		return "Time"
	case TypeIDDuration:
		return "Duration"
	case TypeIDAny:
		return "Any"
	}
	return "unknown"
}

// ParseType is the inverse of Type.String, used for types declared in configuration files.
func ParseType(text string) (Type, error) {
	nullable := strings.HasSuffix(text, "?")
	name := strings.ToLower(strings.TrimSuffix(text, "?"))

	var id TypeID
	switch name {
	case "null":
		id = TypeIDNull
	case "int", "integer":
		id = TypeIDInt
	case "float", "double":
		id = TypeIDFloat
	case "boolean", "bool":
		id = TypeIDBoolean
	case "string", "text":
		id = TypeIDString
	case "time", "timestamp":
		id = TypeIDTime
	case "duration":
		id = TypeIDDuration
	case "any":
		id = TypeIDAny
	default:
		return Type{}, fmt.Errorf("unknown type: '%s'", text)
	}
	return Type{TypeID: id, Nullable: nullable}, nil
}

// Widen returns the narrowest type holding values of both the type and the given type id.
// The non-nullable Null type means nothing has been seen yet, so it's the starting point of type inference.
func (t Type) Widen(id TypeID) Type {
	switch {
	case id == TypeIDNull:
		return Type{TypeID: t.TypeID, Nullable: true}
	case t.TypeID == TypeIDNull:
		return Type{TypeID: id, Nullable: t.Nullable}
	case t.TypeID == id:
		return t
	case t.TypeID == TypeIDInt && id == TypeIDFloat, t.TypeID == TypeIDFloat && id == TypeIDInt:
		return Type{TypeID: TypeIDFloat, Nullable: t.Nullable}
	default:
		return Type{TypeID: TypeIDAny, Nullable: t.Nullable}
	}
}
