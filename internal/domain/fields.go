package domain

import "fmt"

// FieldKind enumerates the canonical field kinds every engine backend maps
// into. Container kinds (Array, Map) carry an element type in FieldType.
type FieldKind int

// Canonical field kinds.
const (
	KindLong FieldKind = iota
	KindBoolean
	KindDate
	KindDouble
	KindBinary
	KindString
	KindTime
	KindTimestamp
	KindArray
	KindMap
)

// String returns the canonical lower-case name of the kind.
func (k FieldKind) String() string {
	switch k {
	case KindLong:
		return "long"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindDouble:
		return "double"
	case KindBinary:
		return "binary"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindTimestamp:
		return "timestamp"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldType is an engine-agnostic column type. Elem is set only for Array
// (element type) and Map (value type; map keys are always strings).
type FieldType struct {
	Kind FieldKind
	Elem *FieldType
}

// Scalar returns a FieldType for a non-container kind.
func Scalar(k FieldKind) FieldType {
	return FieldType{Kind: k}
}

// ArrayOf returns an array type with the given element type.
func ArrayOf(elem FieldType) FieldType {
	return FieldType{Kind: KindArray, Elem: &elem}
}

// MapOf returns a string-keyed map type with the given value type.
func MapOf(value FieldType) FieldType {
	return FieldType{Kind: KindMap, Elem: &value}
}

// String renders the type, e.g. "long", "array(string)", "map(string,long)".
func (t FieldType) String() string {
	switch t.Kind {
	case KindArray:
		return fmt.Sprintf("array(%s)", t.Elem)
	case KindMap:
		return fmt.Sprintf("map(string,%s)", t.Elem)
	default:
		return t.Kind.String()
	}
}

// Equal reports whether two field types are structurally identical.
func (t FieldType) Equal(other FieldType) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Elem == nil || other.Elem == nil {
		return t.Elem == other.Elem
	}
	return t.Elem.Equal(*other.Elem)
}

// SchemaField pairs a column name with its canonical type.
type SchemaField struct {
	Name string
	Type FieldType
}
