package presto

import (
	"fmt"

	"presto-adapter/internal/domain"
)

// TypeOf maps a raw Presto type token and its type parameters to a canonical
// field type. Pure and case-sensitive on the token. Container types consume
// parameters: array takes one element type, map takes a varchar key type and
// one value type. Container elements are mapped without their own parameters;
// nested generics are not resolved here. Unrecognized tokens map to binary.
func TypeOf(rawType string, params []string) (domain.FieldType, error) {
	switch rawType {
	case TypeBigint:
		return domain.Scalar(domain.KindLong), nil
	case TypeBoolean:
		return domain.Scalar(domain.KindBoolean), nil
	case TypeDate:
		return domain.Scalar(domain.KindDate), nil
	case TypeDouble:
		return domain.Scalar(domain.KindDouble), nil
	case TypeVarbinary, TypeHyperLogLog:
		return domain.Scalar(domain.KindBinary), nil
	case TypeVarchar:
		return domain.Scalar(domain.KindString), nil
	case TypeTime, TypeTimeWithTimeZone:
		return domain.Scalar(domain.KindTime), nil
	case TypeTimestamp, TypeTimestampWithTimeZone:
		return domain.Scalar(domain.KindTimestamp), nil
	case TypeArray:
		if len(params) < 1 {
			return domain.FieldType{}, fmt.Errorf("array type signature has no element type")
		}
		elem, err := TypeOf(params[0], nil)
		if err != nil {
			return domain.FieldType{}, fmt.Errorf("map array element type %q: %w", params[0], err)
		}
		return domain.ArrayOf(elem), nil
	case TypeMap:
		if len(params) < 2 {
			return domain.FieldType{}, fmt.Errorf("map type signature needs a key and a value type, got %d parameter(s)", len(params))
		}
		if params[0] != TypeVarchar {
			return domain.FieldType{}, fmt.Errorf("the first parameter of map must be %s, got %q", TypeVarchar, params[0])
		}
		value, err := TypeOf(params[1], nil)
		if err != nil {
			return domain.FieldType{}, fmt.Errorf("map map value type %q: %w", params[1], err)
		}
		return domain.MapOf(value), nil
	default:
		return domain.Scalar(domain.KindBinary), nil
	}
}
