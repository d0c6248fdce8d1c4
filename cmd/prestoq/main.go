// Command prestoq executes one query against a Presto coordinator and prints
// the result as a table or JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"presto-adapter/internal/client"
	"presto-adapter/internal/domain"
	"presto-adapter/internal/executor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		server  string
		user    string
		catalog string
		schema  string
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:           "prestoq [flags] QUERY",
		Short:         "Run a query against a Presto coordinator",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return runQuery(ctx, client.Config{
				ServerURL: server,
				User:      user,
				Source:    "prestoq",
				Catalog:   catalog,
				Schema:    schema,
			}, args[0], output)
		},
	}

	cmd.Flags().StringVar(&server, "server", envOr("PRESTO_URL", "http://localhost:8080"), "coordinator URL")
	cmd.Flags().StringVar(&user, "user", envOr("PRESTO_USER", os.Getenv("USER")), "query user")
	cmd.Flags().StringVar(&catalog, "catalog", os.Getenv("PRESTO_CATALOG"), "default catalog")
	cmd.Flags().StringVar(&schema, "schema", os.Getenv("PRESTO_SCHEMA"), "default schema")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table or json")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall query timeout (0 = none)")
	return cmd
}

func runQuery(ctx context.Context, cfg client.Config, query, output string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	session, err := client.New(ctx, cfg, query)
	if err != nil {
		return err
	}

	pool, err := executor.NewPool(1, time.Minute, logger)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Release(5 * time.Second) }()

	driver, err := executor.NewDriver(pool, session, nil, logger)
	if err != nil {
		session.Close()
		return err
	}

	result, err := driver.Result().Get(ctx)
	if err != nil {
		driver.Kill()
		return err
	}
	if result.Failed() {
		return result.Err
	}

	switch output {
	case "json":
		return printJSON(result)
	case "table":
		printTable(result)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func printJSON(result domain.QueryResult) error {
	columns := make([]map[string]string, len(result.Columns))
	for i, c := range result.Columns {
		columns[i] = map[string]string{"name": c.Name, "type": c.Type.String()}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"columns":   columns,
		"rows":      result.Rows,
		"row_count": result.RowCount(),
		"stats":     result.Stats,
	})
}

func printTable(result domain.QueryResult) {
	table := tablewriter.NewWriter(os.Stdout)
	header := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		header[i] = c.Name
	}
	table.SetHeader(header)

	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if cell == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprintf("%v", cell)
		}
		table.Append(cells)
	}
	table.Render()
	fmt.Printf("(%d rows)\n", result.RowCount())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
