// Package api exposes the execution adapter over HTTP: query submission
// (synchronous or asynchronous), progress stats, cancellation, and query
// history.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"presto-adapter/internal/domain"
	"presto-adapter/internal/executor"
	"presto-adapter/internal/middleware"
	"presto-adapter/internal/repository"
)

// SessionFactory opens a statement session for one query. The production
// factory submits to the Presto coordinator; tests substitute scripted
// sessions.
type SessionFactory func(ctx context.Context, query string) (executor.StatementSession, error)

// ServerConfig wires the gateway's collaborators.
type ServerConfig struct {
	Runner   executor.Runner
	Sessions SessionFactory
	// History is optional; when nil, executions are not recorded.
	History            *repository.QueryHistoryRepo
	Logger             *slog.Logger
	RateLimit          middleware.RateLimitConfig
	CORSAllowedOrigins []string
}

// Server holds the gateway state: a registry of in-flight and completed
// executions keyed by id. Entries stay until deleted via the API.
type Server struct {
	cfg        ServerConfig
	logger     *slog.Logger
	executions sync.Map // map[string]*executor.Driver
}

// NewServer creates the gateway.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: logger}
}

// Routes builds the chi router with the gateway middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", middleware.HeaderRequestID},
	}))
	if s.cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiter(s.cfg.RateLimit))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/v1/query", s.handleSubmitQuery)
	r.Get("/v1/query/{id}", s.handleQueryResult)
	r.Get("/v1/query/{id}/stats", s.handleQueryStats)
	r.Delete("/v1/query/{id}", s.handleKillQuery)
	r.Get("/v1/history", s.handleListHistory)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitQueryRequest struct {
	SQL   string `json:"sql"`
	Async bool   `json:"async,omitempty"`
}

func (s *Server) handleSubmitQuery(w http.ResponseWriter, r *http.Request) {
	var req submitQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, domain.ErrValidation("sql query is required"))
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	s.logger.Info("submitting query", "request_id", requestID, "async", req.Async)

	session, err := s.cfg.Sessions(context.Background(), req.SQL)
	if err != nil {
		s.logger.Error("open statement session", "request_id", requestID, "error", err)
		writeError(w, err)
		return
	}

	driver, err := executor.NewDriver(s.cfg.Runner, session, nil, s.logger)
	if err != nil {
		session.Close()
		writeError(w, err)
		return
	}

	id := uuid.NewString()
	s.executions.Store(id, driver)
	go s.recordOnCompletion(id, req.SQL, driver)

	if req.Async {
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
		return
	}

	result, err := driver.Result().Get(r.Context())
	if err != nil {
		// Caller went away; stop the engine-side query.
		driver.Kill()
		writeError(w, err)
		return
	}
	s.writeResult(w, id, result)
}

func (s *Server) handleQueryResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	driver, ok := s.driver(id)
	if !ok {
		writeError(w, domain.ErrNotFound("query %q not found", id))
		return
	}
	if !driver.IsFinished() {
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "running"})
		return
	}
	result, err := driver.Result().Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeResult(w, id, result)
}

func (s *Server) handleQueryStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	driver, ok := s.driver(id)
	if !ok {
		writeError(w, domain.ErrNotFound("query %q not found", id))
		return
	}
	stats, err := driver.CurrentStats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":               id,
		"percent_complete": stats.PercentComplete,
		"state":            stats.State,
		"nodes":            stats.Nodes,
		"processed_rows":   stats.ProcessedRows,
		"processed_bytes":  stats.ProcessedBytes,
		"user_time_ms":     stats.UserTimeMillis,
		"cpu_time_ms":      stats.CPUTimeMillis,
		"wall_time_ms":     stats.WallTimeMillis,
	})
}

func (s *Server) handleKillQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	driver, ok := s.driver(id)
	if !ok {
		writeError(w, domain.ErrNotFound("query %q not found", id))
		return
	}
	driver.Kill()
	s.executions.Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "killed"})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeError(w, domain.ErrUnavailable("query history is not configured"))
		return
	}
	filter := domain.QueryHistoryFilter{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.ParseQueryState(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, domain.ErrValidation("invalid limit %q", v))
			return
		}
		filter.Limit = n
	}

	entries, err := s.cfg.History.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{
			"id":          e.ID,
			"sql":         e.SQLText,
			"status":      e.Status,
			"duration_ms": e.DurationMs,
			"row_count":   e.RowCount,
			"created_at":  e.CreatedAt,
		}
		if e.ErrorMessage != nil {
			item["error"] = *e.ErrorMessage
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": items})
}

func (s *Server) driver(id string) (*executor.Driver, bool) {
	v, ok := s.executions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*executor.Driver), true
}

// recordOnCompletion waits for the execution to terminate and writes a
// history entry.
func (s *Server) recordOnCompletion(id, sqlText string, driver *executor.Driver) {
	result, err := driver.Result().Get(context.Background())
	if err != nil {
		return
	}
	if s.cfg.History == nil {
		return
	}

	entry := domain.QueryHistoryEntry{
		SQLText:  sqlText,
		Status:   domain.StateFinished,
		RowCount: int64(result.RowCount()),
	}
	if result.Failed() {
		entry.Status = domain.StateFailed
		msg := result.Err.Message
		entry.ErrorMessage = &msg
	}
	if ms, ok := result.Stats[domain.ExecutionTimeKey].(int64); ok {
		entry.DurationMs = ms
	}
	if _, err := s.cfg.History.Record(context.Background(), entry); err != nil {
		s.logger.Error("record query history", "query_id", id, "error", err)
	}
}

// writeResult renders a terminal execution result: a structured error body
// for failed queries, columns/rows/stats otherwise.
func (s *Server) writeResult(w http.ResponseWriter, id string, result domain.QueryResult) {
	if result.Failed() {
		body := map[string]any{
			"message":    result.Err.Message,
			"sql_state":  result.Err.SQLState,
			"error_code": result.Err.ErrorCode,
		}
		if result.Err.LineNumber != nil {
			body["line_number"] = *result.Err.LineNumber
		}
		if result.Err.ColumnNumber != nil {
			body["column_number"] = *result.Err.ColumnNumber
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"id": id, "error": body})
		return
	}

	columns := make([]map[string]string, len(result.Columns))
	for i, c := range result.Columns {
		columns[i] = map[string]string{"name": c.Name, "type": c.Type.String()}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"columns":   columns,
		"rows":      result.Rows,
		"row_count": result.RowCount(),
		"stats":     result.Stats,
	})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
