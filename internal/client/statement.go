// Package client implements the session side of the execution adapter: a
// statement client that submits a query over the Presto REST protocol and
// walks its paginated result stream.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"presto-adapter/internal/executor"
	"presto-adapter/internal/middleware"
	"presto-adapter/internal/presto"
)

// errStatementCanceled is the terminal error of a statement closed before its
// last page.
var errStatementCanceled = errors.New("query canceled")

var _ executor.StatementSession = (*StatementClient)(nil)

// Protocol headers.
const (
	headerUser                 = "X-Presto-User"
	headerSource               = "X-Presto-Source"
	headerCatalog              = "X-Presto-Catalog"
	headerSchema               = "X-Presto-Schema"
	headerStartedTransactionID = "X-Presto-Started-Transaction-Id"
	headerClearTransactionID   = "X-Presto-Clear-Transaction-Id"
)

const defaultRequestTimeout = 30 * time.Second

// Config holds the connection parameters of a statement client.
type Config struct {
	// ServerURL is the coordinator base URL, e.g. "http://localhost:8080".
	ServerURL string
	User      string
	Source    string
	Catalog   string
	Schema    string
	// HTTPClient overrides the default HTTP client when set.
	HTTPClient *http.Client
}

// StatementClient drives one query over the Presto statement protocol. One
// goroutine owns Advance/Current/FinalResults; Close and CurrentStats are
// safe to call concurrently with it.
type StatementClient struct {
	httpClient *http.Client
	ctx        context.Context
	query      string
	requestID  string

	mu      sync.Mutex
	current presto.QueryResults

	valid        bool
	transportErr error

	closed               atomic.Bool
	clearTransaction     atomic.Bool
	startedTransactionMu sync.Mutex
	startedTransaction   string
}

// New submits the query and returns a client positioned on the first
// response page. The context bounds every protocol round-trip of this
// statement.
func New(ctx context.Context, cfg Config, query string) (*StatementClient, error) {
	if strings.TrimSpace(cfg.ServerURL) == "" {
		return nil, fmt.Errorf("statement client: server URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	c := &StatementClient{
		httpClient: httpClient,
		ctx:        ctx,
		query:      query,
		requestID:  uuid.NewString(),
		valid:      true,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(cfg.ServerURL, "/")+"/v1/statement", strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("create statement request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set(middleware.HeaderRequestID, c.requestID)
	setIfPresent := func(key, value string) {
		if value != "" {
			req.Header.Set(key, value)
		}
	}
	setIfPresent(headerUser, cfg.User)
	setIfPresent(headerSource, cfg.Source)
	setIfPresent(headerCatalog, cfg.Catalog)
	setIfPresent(headerSchema, cfg.Schema)

	page, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("submit statement: %w", err)
	}
	c.current = page
	return c, nil
}

// Query returns the SQL text of the statement.
func (c *StatementClient) Query() string { return c.query }

// IsValid reports whether the stream can still advance.
func (c *StatementClient) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid && !c.closed.Load()
}

// Advance fetches the next page, blocking for the round-trip. It returns
// false when the stream is exhausted, the client is closed, or the transport
// fails; the terminal condition is then readable through IsFailed and
// FinalResults.
func (c *StatementClient) Advance() bool {
	c.mu.Lock()
	nextURI := c.current.NextURI
	c.mu.Unlock()

	if c.closed.Load() || nextURI == "" {
		c.mu.Lock()
		c.valid = false
		c.mu.Unlock()
		return false
	}

	req, err := http.NewRequestWithContext(c.ctx, http.MethodGet, nextURI, nil)
	if err != nil {
		c.failTransport(fmt.Errorf("create page request: %w", err))
		return false
	}
	req.Header.Set(middleware.HeaderRequestID, c.requestID)

	page, err := c.do(req)
	if err != nil {
		c.failTransport(fmt.Errorf("fetch next page: %w", err))
		return false
	}

	c.mu.Lock()
	c.current = page
	c.mu.Unlock()
	return true
}

func (c *StatementClient) do(req *http.Request) (presto.QueryResults, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return presto.QueryResults{}, err
	}
	defer resp.Body.Close() //nolint:errcheck

	c.captureTransactionHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return presto.QueryResults{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page presto.QueryResults
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return presto.QueryResults{}, fmt.Errorf("decode results page: %w", err)
	}
	return page, nil
}

func (c *StatementClient) captureTransactionHeaders(h http.Header) {
	if id := h.Get(headerStartedTransactionID); id != "" && id != "NONE" {
		c.startedTransactionMu.Lock()
		c.startedTransaction = id
		c.startedTransactionMu.Unlock()
	}
	if strings.EqualFold(h.Get(headerClearTransactionID), "true") {
		c.clearTransaction.Store(true)
	}
}

func (c *StatementClient) failTransport(err error) {
	c.mu.Lock()
	c.transportErr = err
	c.valid = false
	c.mu.Unlock()
}

// Current returns the page most recently fetched.
func (c *StatementClient) Current() presto.QueryResults {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// FinalResults returns the terminal page. A transport failure is surfaced as
// a synthesized error payload on the last page seen.
func (c *StatementClient) FinalResults() presto.QueryResults {
	c.mu.Lock()
	defer c.mu.Unlock()
	page := c.current
	if c.transportErr != nil && page.Error == nil {
		page.Error = &presto.ErrorInfo{Message: c.transportErr.Error()}
	}
	return page
}

// IsFailed reports whether the statement terminated with an error.
func (c *StatementClient) IsFailed() bool {
	page := c.FinalResults()
	return page.Error != nil
}

// IsClearTransactionID reports whether the engine asked for the transaction
// context to be cleared.
func (c *StatementClient) IsClearTransactionID() bool {
	return c.clearTransaction.Load()
}

// StartedTransactionID returns the transaction id the engine reported, if
// any.
func (c *StatementClient) StartedTransactionID() (string, bool) {
	c.startedTransactionMu.Lock()
	defer c.startedTransactionMu.Unlock()
	return c.startedTransaction, c.startedTransaction != ""
}

// CurrentStats returns the raw stats of the current page. After Close no
// snapshot is available.
func (c *StatementClient) CurrentStats() (presto.StatementStats, bool) {
	if c.closed.Load() {
		return presto.StatementStats{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.Stats, true
}

// Close cancels the statement. Idempotent; safe to call from any goroutine.
// A statement closed before its terminal page becomes failed with a canceled
// error, so the owning poll loop exits through its failure branch instead of
// treating the truncated stream as a completed result. Close also issues a
// best-effort DELETE for the remaining page URI so the engine can stop the
// query early.
func (c *StatementClient) Close() {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return
	}
	nextURI := c.current.NextURI
	if nextURI != "" && c.transportErr == nil && c.current.Error == nil {
		c.transportErr = errStatementCanceled
	}
	c.valid = false
	// The canceled error must be visible before closed is; pollers check
	// closed first.
	c.closed.Store(true)
	c.mu.Unlock()
	if nextURI == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, nextURI, nil)
	if err != nil {
		return
	}
	req.Header.Set(middleware.HeaderRequestID, c.requestID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
