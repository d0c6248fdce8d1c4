// Package repository persists query history to the control-plane SQLite
// database.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"presto-adapter/internal/domain"
)

const defaultHistoryLimit = 100

// QueryHistoryRepo records completed executions.
type QueryHistoryRepo struct {
	db *sql.DB
}

// NewQueryHistoryRepo creates a repository over the given database.
func NewQueryHistoryRepo(db *sql.DB) *QueryHistoryRepo {
	return &QueryHistoryRepo{db: db}
}

// Init creates the query_history table when it does not exist yet.
func (r *QueryHistoryRepo) Init(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS query_history (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			sql_text      TEXT NOT NULL,
			status        TEXT NOT NULL,
			error_message TEXT,
			duration_ms   INTEGER NOT NULL,
			row_count     INTEGER NOT NULL,
			created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("create query_history table: %w", err)
	}
	return nil
}

// Record inserts one history entry and returns its id.
func (r *QueryHistoryRepo) Record(ctx context.Context, entry domain.QueryHistoryEntry) (int64, error) {
	var errorMessage sql.NullString
	if entry.ErrorMessage != nil {
		errorMessage = sql.NullString{String: *entry.ErrorMessage, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO query_history (sql_text, status, error_message, duration_ms, row_count)
		VALUES (?, ?, ?, ?, ?)`,
		entry.SQLText, string(entry.Status), errorMessage, entry.DurationMs, entry.RowCount)
	if err != nil {
		return 0, fmt.Errorf("insert query history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("query history insert id: %w", err)
	}
	return id, nil
}

// List returns history entries, newest first, honoring the optional status
// filter and limit.
func (r *QueryHistoryRepo) List(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryHistoryEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `
		SELECT id, sql_text, status, error_message, duration_ms, row_count, created_at
		FROM query_history`
	args := []any{}
	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query history: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var entries []domain.QueryHistoryEntry
	for rows.Next() {
		var entry domain.QueryHistoryEntry
		var status string
		var errorMessage sql.NullString
		if err := rows.Scan(&entry.ID, &entry.SQLText, &status, &errorMessage,
			&entry.DurationMs, &entry.RowCount, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query history row: %w", err)
		}
		entry.Status = domain.QueryState(status)
		if errorMessage.Valid {
			msg := errorMessage.String
			entry.ErrorMessage = &msg
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query history rows: %w", err)
	}
	return entries, nil
}
