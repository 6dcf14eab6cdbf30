package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/tinytelemetry/logreport/internal/analyzer"
	"github.com/tinytelemetry/logreport/internal/duckdb"
	"github.com/tinytelemetry/logreport/internal/model"
)

var errHistoryDisabled = errors.New("history is disabled (history-enabled: false)")

// openHistory opens the configured history store, or returns nil when
// history is disabled.
func openHistory(cfg appConfig) (*duckdb.Store, error) {
	if !cfg.HistoryEnabled {
		return nil, nil
	}
	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DuckDB: %w", err)
	}
	return store, nil
}

// runOnce executes a single pipeline pass and prints its outcome.
func runOnce(ctx context.Context, cfg appConfig, w io.Writer) error {
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	var history model.HistoryWriter
	if store != nil {
		defer store.Close()
		history = store
	}

	a, err := analyzer.New(cfg.analyzerConfig(), history)
	if err != nil {
		return err
	}

	out, err := a.Run(ctx)
	if err != nil {
		return err
	}
	printRunBanner(w, out)
	return nil
}

// runHistory prints the most recent runs recorded in the history store.
func runHistory(cfg appConfig, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return fmt.Errorf("invalid -limit: %d", *limit)
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		return errHistoryDisabled
	}
	defer store.Close()

	runs, err := store.ListRuns(*limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	fmt.Fprintln(w, renderHistory(runs))
	return nil
}
