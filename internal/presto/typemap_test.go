package presto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presto-adapter/internal/domain"
)

func TestTypeOf_Scalars(t *testing.T) {
	cases := []struct {
		raw  string
		want domain.FieldKind
	}{
		{TypeBigint, domain.KindLong},
		{TypeBoolean, domain.KindBoolean},
		{TypeDate, domain.KindDate},
		{TypeDouble, domain.KindDouble},
		{TypeVarbinary, domain.KindBinary},
		{TypeHyperLogLog, domain.KindBinary},
		{TypeVarchar, domain.KindString},
		{TypeTime, domain.KindTime},
		{TypeTimeWithTimeZone, domain.KindTime},
		{TypeTimestamp, domain.KindTimestamp},
		{TypeTimestampWithTimeZone, domain.KindTimestamp},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := TypeOf(tc.raw, nil)
			require.NoError(t, err)
			assert.True(t, got.Equal(domain.Scalar(tc.want)), "got %s, want %s", got, tc.want)

			// Parameters are ignored for scalar tokens.
			got, err = TypeOf(tc.raw, []string{TypeBigint})
			require.NoError(t, err)
			assert.True(t, got.Equal(domain.Scalar(tc.want)))
		})
	}
}

func TestTypeOf_Array(t *testing.T) {
	got, err := TypeOf(TypeArray, []string{TypeVarchar})
	require.NoError(t, err)
	assert.True(t, got.Equal(domain.ArrayOf(domain.Scalar(domain.KindString))))

	_, err = TypeOf(TypeArray, nil)
	require.Error(t, err)
}

func TestTypeOf_Map(t *testing.T) {
	got, err := TypeOf(TypeMap, []string{TypeVarchar, TypeBigint})
	require.NoError(t, err)
	assert.True(t, got.Equal(domain.MapOf(domain.Scalar(domain.KindLong))))
}

func TestTypeOf_MapKeyMustBeVarchar(t *testing.T) {
	_, err := TypeOf(TypeMap, []string{"integer", TypeBigint})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first parameter of map must be varchar")
}

func TestTypeOf_MapMissingParameters(t *testing.T) {
	_, err := TypeOf(TypeMap, []string{TypeVarchar})
	require.Error(t, err)
}

func TestTypeOf_UnknownTokenFallsBackToBinary(t *testing.T) {
	for _, raw := range []string{"row", "decimal", "ipaddress", "BIGINT"} {
		got, err := TypeOf(raw, nil)
		require.NoError(t, err)
		assert.True(t, got.Equal(domain.Scalar(domain.KindBinary)), "token %q", raw)
	}
}

func TestTypeOf_NestedContainerElementIsNotResolved(t *testing.T) {
	// Container elements are mapped without their own parameters, so an
	// element that itself needs parameters is rejected.
	_, err := TypeOf(TypeArray, []string{TypeArray})
	require.Error(t, err)

	_, err = TypeOf(TypeMap, []string{TypeVarchar, TypeMap})
	require.Error(t, err)
}
