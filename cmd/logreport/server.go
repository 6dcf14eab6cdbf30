package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tinytelemetry/logreport/internal/analyzer"
	"github.com/tinytelemetry/logreport/internal/duckdb"
	"github.com/tinytelemetry/logreport/internal/httpserver"
	"golang.org/x/sync/errgroup"
)

// runServer serves the HTTP API and, when run-interval is set, runs the
// pipeline periodically until SIGINT/SIGTERM.
func runServer(cfg appConfig) error {
	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		// The API still needs somewhere to record triggered runs.
		store, err = duckdb.NewStore("", cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize DuckDB: %w", err)
		}
	}
	defer store.Close()

	retentionCleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
		RetentionDays: cfg.HistoryRetention,
	})
	if retentionCleaner != nil {
		defer retentionCleaner.Stop()
	}

	// Progress bars would interleave with request logging.
	acfg := cfg.analyzerConfig()
	acfg.Progress = false
	a, err := analyzer.New(acfg, store)
	if err != nil {
		return err
	}

	apiServer := httpserver.NewServer(httpserver.Config{
		Addr:      cfg.APIAddr,
		ReportDir: cfg.ReportDir,
	}, store, a)
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	defer apiServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts at the signal, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(os.Stdout, cfg)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.RunInterval > 0 {
		g.Go(func() error {
			scheduleRuns(gctx, a, cfg.RunInterval)
			return nil
		})
	}

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server: errgroup exited with error")
	}
	return nil
}

// scheduleRuns runs the pipeline immediately and then every interval until
// ctx is done. Failed runs are logged and retried on the next tick.
func scheduleRuns(ctx context.Context, a *analyzer.Analyzer, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		scheduledRun(ctx, a)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func scheduledRun(ctx context.Context, a *analyzer.Analyzer) {
	out, err := a.TryRun(ctx)
	switch {
	case err == nil:
		log.Info().Str("status", string(out.Status)).Str("report", out.ReportPath).Msg("server: scheduled run finished")
	case errors.Is(err, analyzer.ErrRunInProgress):
		log.Warn().Msg("server: scheduled run skipped, another run is in progress")
	case errors.Is(err, context.Canceled):
		// shutting down
	default:
		log.Error().Err(err).Msg("server: scheduled run failed")
	}
}
