// Package presto holds the wire-level structures of the Presto statement
// protocol and the mapping from Presto type signatures and literals into the
// canonical domain types.
package presto

// Raw Presto type tokens, matched case-sensitively.
const (
	TypeBigint                = "bigint"
	TypeBoolean               = "boolean"
	TypeDate                  = "date"
	TypeDouble                = "double"
	TypeVarbinary             = "varbinary"
	TypeHyperLogLog           = "HyperLogLog"
	TypeVarchar               = "varchar"
	TypeTime                  = "time"
	TypeTimeWithTimeZone      = "time with time zone"
	TypeTimestamp             = "timestamp"
	TypeTimestampWithTimeZone = "timestamp with time zone"
	TypeArray                 = "array"
	TypeMap                   = "map"
)

// ArgumentKindType marks type-signature arguments that are themselves type
// signatures (as opposed to numeric literals or variables).
const ArgumentKindType = "TYPE"

// TypeSignature describes a possibly-parameterized Presto type,
// e.g. map(varchar, bigint).
type TypeSignature struct {
	RawType   string                  `json:"rawType"`
	Arguments []TypeSignatureArgument `json:"arguments,omitempty"`
}

// TypeSignatureArgument is one parameter of a type signature. TypeSignature
// is set only for TYPE-kind arguments; other kinds (length literals, named
// fields) carry nothing the adapter needs.
type TypeSignatureArgument struct {
	Kind          string         `json:"kind"`
	TypeSignature *TypeSignature `json:"typeSignature,omitempty"`
}

// TypeParameters returns the raw type tokens of the TYPE-kind arguments, in
// order, skipping every other argument kind.
func (s TypeSignature) TypeParameters() []string {
	var params []string
	for _, arg := range s.Arguments {
		if arg.Kind == ArgumentKindType && arg.TypeSignature != nil {
			params = append(params, arg.TypeSignature.RawType)
		}
	}
	return params
}

// Column is the per-column metadata carried by a results page.
type Column struct {
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	TypeSignature TypeSignature `json:"typeSignature"`
}

// StatementStats is the engine's raw progress snapshot for one query.
type StatementStats struct {
	State           string `json:"state"`
	Nodes           int    `json:"nodes"`
	TotalSplits     int    `json:"totalSplits"`
	QueuedSplits    int    `json:"queuedSplits"`
	RunningSplits   int    `json:"runningSplits"`
	CompletedSplits int    `json:"completedSplits"`
	UserTimeMillis  int64  `json:"userTimeMillis"`
	CPUTimeMillis   int64  `json:"cpuTimeMillis"`
	WallTimeMillis  int64  `json:"wallTimeMillis"`
	ProcessedRows   int64  `json:"processedRows"`
	ProcessedBytes  int64  `json:"processedBytes"`
}

// ErrorLocation is a 1-based position in the query text.
type ErrorLocation struct {
	LineNumber   int `json:"lineNumber"`
	ColumnNumber int `json:"columnNumber"`
}

// FailureInfo carries the failure message of a query error. The wire format
// also nests causes and stack traces; the adapter only needs the message.
type FailureInfo struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// ErrorInfo is the error payload embedded in a results page.
type ErrorInfo struct {
	Message       string         `json:"message"`
	SQLState      string         `json:"sqlState,omitempty"`
	ErrorCode     int            `json:"errorCode"`
	ErrorName     string         `json:"errorName,omitempty"`
	ErrorType     string         `json:"errorType,omitempty"`
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
	FailureInfo   *FailureInfo   `json:"failureInfo,omitempty"`
}

// QueryResults is one page of the statement protocol: optional column
// metadata, optional data batch, optional error, progress stats, and the URI
// of the next page (empty on the terminal page).
type QueryResults struct {
	ID      string         `json:"id"`
	InfoURI string         `json:"infoUri,omitempty"`
	NextURI string         `json:"nextUri,omitempty"`
	Columns []Column       `json:"columns,omitempty"`
	Data    [][]any        `json:"data,omitempty"`
	Stats   StatementStats `json:"stats"`
	Error   *ErrorInfo     `json:"error,omitempty"`
}
