// Package executor drives one submitted query to completion: it polls the
// engine's paginated result stream on a pooled worker, normalizes pages into
// canonical rows, and resolves a one-shot future with either a success or an
// error result.
package executor

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"presto-adapter/internal/domain"
	"presto-adapter/internal/presto"
)

// StatementSession is a live, stateful handle over one query's paginated
// result stream. Exactly one Driver owns the polling lifecycle of a session.
// Advance blocks for the remote round-trip. Close and CurrentStats may be
// called from other goroutines and must be safe to use concurrently with the
// polling calls.
type StatementSession interface {
	IsValid() bool
	Advance() bool
	Current() presto.QueryResults
	FinalResults() presto.QueryResults
	IsFailed() bool
	IsClearTransactionID() bool
	StartedTransactionID() (string, bool)
	Query() string
	Close()
	CurrentStats() (presto.StatementStats, bool)
}

// TransactionHook receives transaction bookkeeping notifications once per
// execution: OnClear when the engine asks for the prior transaction context
// to be dropped, SetTransaction with the transaction id the engine reports
// (ok is false when it reports none).
type TransactionHook interface {
	OnClear()
	SetTransaction(id string, ok bool)
}

// NopTransactionHook ignores all transaction notifications.
type NopTransactionHook struct{}

func (NopTransactionHook) OnClear() {}

func (NopTransactionHook) SetTransaction(string, bool) {}

// Driver runs one execution. Construction submits the poll loop to the
// runner; the loop terminates exactly once by resolving the result future
// with either an error result or a success result. After that the driver is
// inert except for stats reads and Kill.
//
// columns, rawTypes and rows are written only by the poll goroutine; the
// future's single resolution point orders those writes before any consumer
// read.
type Driver struct {
	session StatementSession
	hook    TransactionHook
	logger  *slog.Logger
	started time.Time

	columns  []domain.SchemaField
	rawTypes []string
	rows     [][]any

	result    *Future[domain.QueryResult]
	lastStats atomic.Pointer[domain.QueryStats]
	killOnce  sync.Once
}

// NewDriver binds a driver to a session and a transaction hook and starts
// polling immediately on a worker from the runner. A nil hook disables
// transaction notifications; a nil logger falls back to slog.Default().
func NewDriver(runner Runner, session StatementSession, hook TransactionHook, logger *slog.Logger) (*Driver, error) {
	if hook == nil {
		hook = NopTransactionHook{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{
		session: session,
		hook:    hook,
		logger:  logger,
		started: time.Now(),
		result:  NewFuture[domain.QueryResult](),
	}
	if err := runner.Submit(d.run); err != nil {
		return nil, fmt.Errorf("submit query poll task: %w", err)
	}
	return d, nil
}

// run is the poll loop: single pass, terminal. Exactly one of the fail or
// success paths resolves the future.
func (d *Driver) run() {
	for d.session.IsValid() && d.session.Advance() {
		if err := d.transformAndAdd(d.session.Current()); err != nil {
			d.fail(&domain.QueryError{Message: err.Error()})
			return
		}
	}

	if d.session.IsFailed() {
		d.fail(queryErrorFrom(d.session.FinalResults().Error))
		return
	}

	if d.session.IsClearTransactionID() {
		d.hook.OnClear()
	}
	d.hook.SetTransaction(d.session.StartedTransactionID())

	if err := d.transformAndAdd(d.session.FinalResults()); err != nil {
		d.fail(&domain.QueryError{Message: err.Error()})
		return
	}

	elapsed := time.Since(d.started).Milliseconds()
	d.result.complete(domain.NewQueryResult(d.columns, d.rows, map[string]any{
		domain.ExecutionTimeKey: elapsed,
	}))
}

func (d *Driver) fail(qerr *domain.QueryError) {
	d.logger.Error("query failed", "query", d.session.Query(), "error", qerr.Message)
	d.result.complete(domain.ErrorResult(qerr))
}

// transformAndAdd folds one page into the accumulated state. Error pages and
// pages without column metadata are skipped. Columns are established once,
// from the first metadata-bearing page, and never re-derived. Returns an
// error only for schema-level type mapping failures, which are terminal.
func (d *Driver) transformAndAdd(page presto.QueryResults) error {
	if page.Error != nil || page.Columns == nil {
		return nil
	}

	if d.columns == nil {
		columns := make([]domain.SchemaField, len(page.Columns))
		rawTypes := make([]string, len(page.Columns))
		for i, col := range page.Columns {
			fieldType, err := presto.TypeOf(col.TypeSignature.RawType, col.TypeSignature.TypeParameters())
			if err != nil {
				return fmt.Errorf("map type of column %q: %w", col.Name, err)
			}
			columns[i] = domain.SchemaField{Name: col.Name, Type: fieldType}
			rawTypes[i] = col.TypeSignature.RawType
		}
		d.columns = columns
		d.rawTypes = rawTypes
	}

	if page.Data == nil {
		return nil
	}

	for _, in := range page.Data {
		row := make([]any, len(d.columns))
		for i, cell := range in {
			if i >= len(row) {
				break
			}
			row[i] = d.convertCell(d.rawTypes[i], cell)
		}
		d.rows = append(d.rows, row)
	}
	return nil
}

// convertCell normalizes one cell according to its column's raw type. Nil
// cells stay nil without any parse attempt. Temporal parse failures are
// logged and degrade the cell to nil; they never abort the page. Every other
// type passes through unchanged.
func (d *Driver) convertCell(rawType string, cell any) any {
	if cell == nil {
		return nil
	}
	switch rawType {
	case presto.TypeTimestamp:
		return d.parseTemporal(cell, presto.ParseTimestamp)
	case presto.TypeTimestampWithTimeZone:
		return d.parseTemporal(cell, presto.ParseTimestampWithTimeZone)
	case presto.TypeDate:
		return d.parseTemporal(cell, presto.ParseDate)
	default:
		return cell
	}
}

func (d *Driver) parseTemporal(cell any, parse func(string) (time.Time, error)) any {
	literal, ok := cell.(string)
	if !ok {
		d.logger.Error("temporal cell is not a string literal", "value", cell)
		return nil
	}
	t, err := parse(literal)
	if err != nil {
		d.logger.Error("error while parsing temporal literal", "error", err)
		return nil
	}
	return t
}

func queryErrorFrom(info *presto.ErrorInfo) *domain.QueryError {
	if info == nil {
		return &domain.QueryError{Message: "query failed with no error payload"}
	}
	message := info.Message
	if info.FailureInfo != nil && info.FailureInfo.Message != "" {
		message = info.FailureInfo.Message
	}
	qerr := &domain.QueryError{
		Message:   message,
		SQLState:  info.SQLState,
		ErrorCode: info.ErrorCode,
	}
	if loc := info.ErrorLocation; loc != nil {
		line, column := loc.LineNumber, loc.ColumnNumber
		qerr.LineNumber = &line
		qerr.ColumnNumber = &column
	}
	return qerr
}

// CurrentStats projects the session's progress snapshot. It may be called
// before completion and concurrently with polling. After the session has been
// closed it returns the last snapshot observed; if none was ever observed it
// returns an UnavailableError.
func (d *Driver) CurrentStats() (domain.QueryStats, error) {
	raw, ok := d.session.CurrentStats()
	if !ok {
		if last := d.lastStats.Load(); last != nil {
			return *last, nil
		}
		return domain.QueryStats{}, domain.ErrUnavailable("no progress stats available for query")
	}
	stats := projectStats(raw)
	d.lastStats.Store(&stats)
	return stats, nil
}

func projectStats(raw presto.StatementStats) domain.QueryStats {
	percentage := 0
	if raw.TotalSplits != 0 {
		percentage = raw.CompletedSplits * 100 / raw.TotalSplits
	}
	return domain.QueryStats{
		PercentComplete: percentage,
		State:           domain.ParseQueryState(raw.State),
		Nodes:           raw.Nodes,
		ProcessedRows:   raw.ProcessedRows,
		ProcessedBytes:  raw.ProcessedBytes,
		UserTimeMillis:  raw.UserTimeMillis,
		CPUTimeMillis:   raw.CPUTimeMillis,
		WallTimeMillis:  raw.WallTimeMillis,
	}
}

// Result returns the one-shot completion future. It resolves exactly once,
// after all accumulation for the execution has finished.
func (d *Driver) Result() *Future[domain.QueryResult] {
	return d.result
}

// IsFinished reports whether the execution has terminated.
func (d *Driver) IsFinished() bool {
	return d.result.IsDone()
}

// Query returns the SQL text of the execution.
func (d *Driver) Query() string {
	return d.session.Query()
}

// Kill closes the underlying session. Idempotent. Cancellation is
// cooperative: the poll loop notices the closed session on its next advance
// and exits through the failure branch.
func (d *Driver) Kill() {
	d.killOnce.Do(d.session.Close)
}
