package domain

import "strings"

// QueryState is the case-normalized lifecycle state of a running query as
// reported by the engine.
type QueryState string

// Query lifecycle states reported by the engine.
const (
	StateQueued    QueryState = "QUEUED"
	StatePlanning  QueryState = "PLANNING"
	StateStarting  QueryState = "STARTING"
	StateRunning   QueryState = "RUNNING"
	StateFinishing QueryState = "FINISHING"
	StateFinished  QueryState = "FINISHED"
	StateFailed    QueryState = "FAILED"
	StateCanceled  QueryState = "CANCELED"
)

// ParseQueryState upper-cases the engine's state token. Unknown tokens are
// preserved rather than rejected so that newer engine versions degrade
// gracefully.
func ParseQueryState(s string) QueryState {
	return QueryState(strings.ToUpper(s))
}

// QueryStats is a point-in-time projection of execution progress, recomputed
// from the session's raw stats on every request.
type QueryStats struct {
	PercentComplete int
	State           QueryState
	Nodes           int
	ProcessedRows   int64
	ProcessedBytes  int64
	UserTimeMillis  int64
	CPUTimeMillis   int64
	WallTimeMillis  int64
}
