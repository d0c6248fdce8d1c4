package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presto-adapter/internal/domain"
	"presto-adapter/internal/executor"
	"presto-adapter/internal/presto"
)

// fakeCoordinator serves a scripted sequence of result pages over the
// statement protocol.
type fakeCoordinator struct {
	t         *testing.T
	pages     []presto.QueryResults
	headers   map[string]string
	deletes   atomic.Int32
	submitted atomic.Int32
	lastQuery atomic.Value // string
}

func (f *fakeCoordinator) handler(baseURL func() string) http.Handler {
	mux := http.NewServeMux()
	serve := func(w http.ResponseWriter, idx int) {
		page := f.pages[idx]
		if idx+1 < len(f.pages) {
			page.NextURI = fmt.Sprintf("%s/v1/statement/next/%d", baseURL(), idx+1)
		}
		for k, v := range f.headers {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(f.t, json.NewEncoder(w).Encode(page))
	}

	mux.HandleFunc("POST /v1/statement", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(f.t, err)
		f.lastQuery.Store(string(body))
		f.submitted.Add(1)
		serve(w, 0)
	})
	mux.HandleFunc("GET /v1/statement/next/{idx}", func(w http.ResponseWriter, r *http.Request) {
		var idx int
		_, err := fmt.Sscanf(r.PathValue("idx"), "%d", &idx)
		require.NoError(f.t, err)
		serve(w, idx)
	})
	mux.HandleFunc("DELETE /v1/statement/next/{idx}", func(w http.ResponseWriter, _ *http.Request) {
		f.deletes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func startCoordinator(t *testing.T, f *fakeCoordinator) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(f.handler(func() string { return server.URL }))
	t.Cleanup(server.Close)
	return server
}

func queryColumns() []presto.Column {
	return []presto.Column{
		{Name: "a", Type: presto.TypeBigint, TypeSignature: presto.TypeSignature{RawType: presto.TypeBigint}},
	}
}

func TestStatementClient_WalksPageChain(t *testing.T) {
	coordinator := &fakeCoordinator{t: t, pages: []presto.QueryResults{
		{ID: "q1", Stats: presto.StatementStats{State: "QUEUED"}},
		{ID: "q1", Columns: queryColumns(), Data: [][]any{{float64(1)}}, Stats: presto.StatementStats{State: "RUNNING"}},
		{ID: "q1", Columns: queryColumns(), Stats: presto.StatementStats{State: "FINISHED"}},
	}}
	server := startCoordinator(t, coordinator)

	c, err := New(context.Background(), Config{ServerURL: server.URL, User: "tester"}, "SELECT 1")
	require.NoError(t, err)

	assert.Equal(t, "SELECT 1", c.Query())
	assert.Equal(t, "SELECT 1", coordinator.lastQuery.Load())
	assert.True(t, c.IsValid())
	assert.Equal(t, "q1", c.Current().ID)

	require.True(t, c.Advance())
	assert.Equal(t, "RUNNING", c.Current().Stats.State)
	require.Len(t, c.Current().Data, 1)

	require.True(t, c.Advance())
	assert.Equal(t, "FINISHED", c.Current().Stats.State)

	// Terminal page: no nextUri left.
	assert.False(t, c.Advance())
	assert.False(t, c.IsValid())
	assert.False(t, c.IsFailed())
	assert.Equal(t, "FINISHED", c.FinalResults().Stats.State)

	// Closing an exhausted statement does not turn it into a failure.
	c.Close()
	assert.False(t, c.IsFailed())
}

func TestStatementClient_EmbeddedQueryError(t *testing.T) {
	coordinator := &fakeCoordinator{t: t, pages: []presto.QueryResults{
		{ID: "q2", Stats: presto.StatementStats{State: "QUEUED"}},
		{ID: "q2", Stats: presto.StatementStats{State: "FAILED"},
			Error: &presto.ErrorInfo{Message: "division by zero", SQLState: "22012", ErrorCode: 8}},
	}}
	server := startCoordinator(t, coordinator)

	c, err := New(context.Background(), Config{ServerURL: server.URL, User: "tester"}, "SELECT 1/0")
	require.NoError(t, err)

	require.True(t, c.Advance())
	assert.False(t, c.Advance())
	require.True(t, c.IsFailed())
	assert.Equal(t, "division by zero", c.FinalResults().Error.Message)
}

func TestStatementClient_TransportFailure(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/statement", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(presto.QueryResults{
			ID:      "q3",
			NextURI: server.URL + "/v1/statement/next/1",
		})
	})
	mux.HandleFunc("GET /v1/statement/next/1", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := New(context.Background(), Config{ServerURL: server.URL, User: "tester"}, "SELECT 1")
	require.NoError(t, err)

	assert.False(t, c.Advance())
	assert.False(t, c.IsValid())
	require.True(t, c.IsFailed())
	assert.Contains(t, c.FinalResults().Error.Message, "unexpected status 500")
}

func TestStatementClient_TransactionHeaders(t *testing.T) {
	coordinator := &fakeCoordinator{
		t: t,
		pages: []presto.QueryResults{
			{ID: "q4"},
			{ID: "q4"},
		},
		headers: map[string]string{
			"X-Presto-Started-Transaction-Id": "txn-9",
			"X-Presto-Clear-Transaction-Id":   "true",
		},
	}
	server := startCoordinator(t, coordinator)

	c, err := New(context.Background(), Config{ServerURL: server.URL, User: "tester"}, "START TRANSACTION")
	require.NoError(t, err)

	id, ok := c.StartedTransactionID()
	assert.True(t, ok)
	assert.Equal(t, "txn-9", id)
	assert.True(t, c.IsClearTransactionID())
}

func TestStatementClient_CloseCancelsStatement(t *testing.T) {
	coordinator := &fakeCoordinator{t: t, pages: []presto.QueryResults{
		{ID: "q5"},
		{ID: "q5"},
		{ID: "q5"},
	}}
	server := startCoordinator(t, coordinator)

	c, err := New(context.Background(), Config{ServerURL: server.URL, User: "tester"}, "SELECT 1")
	require.NoError(t, err)

	c.Close()
	c.Close() // idempotent
	assert.False(t, c.IsValid())
	assert.False(t, c.Advance())
	assert.Equal(t, int32(1), coordinator.deletes.Load())

	// Closed before the terminal page: the statement reports failed so the
	// poll loop takes its failure branch.
	require.True(t, c.IsFailed())
	require.NotNil(t, c.FinalResults().Error)
	assert.Equal(t, "query canceled", c.FinalResults().Error.Message)

	_, ok := c.CurrentStats()
	assert.False(t, ok)
}

func TestStatementClient_RequiresServerURL(t *testing.T) {
	_, err := New(context.Background(), Config{}, "SELECT 1")
	require.Error(t, err)
}

// End to end: the execution driver over a real statement client against a
// scripted coordinator.
func TestStatementClient_DriveToCompletion(t *testing.T) {
	columns := queryColumns()
	coordinator := &fakeCoordinator{t: t, pages: []presto.QueryResults{
		{ID: "q6", Stats: presto.StatementStats{State: "QUEUED"}},
		{ID: "q6", Columns: columns, Data: [][]any{{float64(1)}, {float64(2)}},
			Stats: presto.StatementStats{State: "RUNNING", TotalSplits: 4, CompletedSplits: 1}},
		{ID: "q6", Columns: columns, Stats: presto.StatementStats{State: "FINISHED", TotalSplits: 4, CompletedSplits: 4}},
	}}
	server := startCoordinator(t, coordinator)

	c, err := New(context.Background(), Config{ServerURL: server.URL, User: "tester"}, "SELECT n FROM t")
	require.NoError(t, err)

	pool, err := executor.NewPool(1, time.Minute, nil)
	require.NoError(t, err)
	defer func() { _ = pool.Release(time.Second) }()

	driver, err := executor.NewDriver(pool, c, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := driver.Result().Get(ctx)
	require.NoError(t, err)
	require.False(t, result.Failed())
	require.Len(t, result.Columns, 1)
	assert.Equal(t, domain.Scalar(domain.KindLong), result.Columns[0].Type)
	require.Equal(t, 2, result.RowCount())
	assert.Equal(t, []any{float64(1)}, result.Rows[0])
	assert.Equal(t, []any{float64(2)}, result.Rows[1])
}

// Kill while the worker is mid round-trip after a data page: the execution
// must resolve as a failure, not as a success carrying the partial rows.
func TestStatementClient_KillMidStreamFailsExecution(t *testing.T) {
	columns := queryColumns()
	blocked := make(chan struct{})
	release := make(chan struct{})

	var server *httptest.Server
	writePage := func(w http.ResponseWriter, page presto.QueryResults) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/statement", func(w http.ResponseWriter, _ *http.Request) {
		writePage(w, presto.QueryResults{ID: "q7", NextURI: server.URL + "/v1/statement/next/1"})
	})
	mux.HandleFunc("GET /v1/statement/next/1", func(w http.ResponseWriter, _ *http.Request) {
		writePage(w, presto.QueryResults{
			ID:      "q7",
			NextURI: server.URL + "/v1/statement/next/2",
			Columns: columns,
			Data:    [][]any{{float64(1)}},
		})
	})
	mux.HandleFunc("GET /v1/statement/next/2", func(w http.ResponseWriter, _ *http.Request) {
		close(blocked)
		<-release
		writePage(w, presto.QueryResults{ID: "q7", Columns: columns})
	})
	mux.HandleFunc("DELETE /v1/statement/next/2", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := New(context.Background(), Config{ServerURL: server.URL, User: "tester"}, "SELECT n FROM t")
	require.NoError(t, err)

	pool, err := executor.NewPool(1, time.Minute, nil)
	require.NoError(t, err)
	defer func() { _ = pool.Release(time.Second) }()

	driver, err := executor.NewDriver(pool, c, nil, nil)
	require.NoError(t, err)

	<-blocked
	driver.Kill()
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := driver.Result().Get(ctx)
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Equal(t, "query canceled", result.Err.Message)
	assert.Zero(t, result.RowCount())
}
