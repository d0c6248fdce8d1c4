package domain

import "fmt"

// ExecutionTimeKey is the stats map key for wall-clock execution duration in
// milliseconds.
const ExecutionTimeKey = "execution_time_ms"

// QueryError describes a terminal engine-reported query failure. LineNumber
// and ColumnNumber are 1-based and nil when the engine provided no source
// location.
type QueryError struct {
	Message      string
	SQLState     string
	ErrorCode    int
	LineNumber   *int
	ColumnNumber *int
}

func (e *QueryError) Error() string {
	if e.SQLState == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (sqlState=%s, errorCode=%d)", e.Message, e.SQLState, e.ErrorCode)
}

// QueryResult is the terminal payload of one execution: either columns, rows
// and stats on success, or Err on failure, never both. It is constructed
// exactly once per execution and not mutated afterwards.
type QueryResult struct {
	Columns []SchemaField
	Rows    [][]any
	Stats   map[string]any
	Err     *QueryError
}

// NewQueryResult builds a success result.
func NewQueryResult(columns []SchemaField, rows [][]any, stats map[string]any) QueryResult {
	return QueryResult{Columns: columns, Rows: rows, Stats: stats}
}

// ErrorResult builds an error result. Columns and rows stay empty.
func ErrorResult(err *QueryError) QueryResult {
	return QueryResult{Err: err}
}

// Failed reports whether the result carries a query error.
func (r QueryResult) Failed() bool { return r.Err != nil }

// RowCount returns the number of accumulated rows.
func (r QueryResult) RowCount() int { return len(r.Rows) }
