package presto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeSignature_TypeParameters(t *testing.T) {
	sig := TypeSignature{
		RawType: TypeMap,
		Arguments: []TypeSignatureArgument{
			{Kind: ArgumentKindType, TypeSignature: &TypeSignature{RawType: TypeVarchar}},
			{Kind: "LONG"},
			{Kind: ArgumentKindType, TypeSignature: &TypeSignature{RawType: TypeBigint}},
		},
	}
	assert.Equal(t, []string{TypeVarchar, TypeBigint}, sig.TypeParameters())

	assert.Nil(t, TypeSignature{RawType: TypeBigint}.TypeParameters())
}

func TestQueryResults_Decode(t *testing.T) {
	payload := `{
		"id": "20240307_000000_00001_abcde",
		"nextUri": "http://coordinator/v1/statement/next/1",
		"columns": [
			{"name": "a", "type": "bigint", "typeSignature": {"rawType": "bigint"}},
			{"name": "m", "type": "map(varchar,bigint)", "typeSignature": {
				"rawType": "map",
				"arguments": [
					{"kind": "TYPE", "typeSignature": {"rawType": "varchar"}},
					{"kind": "TYPE", "typeSignature": {"rawType": "bigint"}}
				]
			}}
		],
		"data": [[1, {"x": 2}]],
		"stats": {"state": "RUNNING", "totalSplits": 10, "completedSplits": 5},
		"error": null
	}`

	var page QueryResults
	require.NoError(t, json.Unmarshal([]byte(payload), &page))
	assert.Equal(t, "http://coordinator/v1/statement/next/1", page.NextURI)
	require.Len(t, page.Columns, 2)
	assert.Equal(t, TypeMap, page.Columns[1].TypeSignature.RawType)
	assert.Equal(t, []string{TypeVarchar, TypeBigint}, page.Columns[1].TypeSignature.TypeParameters())
	require.Len(t, page.Data, 1)
	assert.Equal(t, "RUNNING", page.Stats.State)
	assert.Nil(t, page.Error)
}
