package domain

import "time"

// QueryHistoryEntry records one completed execution for auditing.
type QueryHistoryEntry struct {
	ID           int64
	SQLText      string
	Status       QueryState
	ErrorMessage *string
	DurationMs   int64
	RowCount     int64
	CreatedAt    time.Time
}

// QueryHistoryFilter holds filter parameters for listing query history.
type QueryHistoryFilter struct {
	Status *QueryState
	Limit  int
}
