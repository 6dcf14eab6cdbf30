package duckdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordRun stores a run summary and its report rows in one transaction and
// returns the run id. An id already set on the summary is kept.
func (s *Store) RecordRun(summary *RunSummary, table Table) (string, error) {
	if summary == nil {
		return "", fmt.Errorf("record run: nil summary")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	id := summary.RunID
	if id == "" {
		id = uuid.NewString()
	}
	created := summary.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	if err := s.insertRunTx(ctx, id, created, summary, table); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) insertRunTx(ctx context.Context, id string, created time.Time, r *RunSummary, table Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `INSERT INTO report_runs (
			id, log_path, log_date, compressed, report_path,
			total_lines, valid_lines, bad_lines, bad_percent, total_time,
			url_count, p50, p95, p99, bytes_read, elapsed_ms, created_at
		) VALUES (?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.LogPath, r.LogDate.Format(time.DateOnly), r.Compressed, r.ReportPath,
		r.TotalLines, r.ValidLines, r.BadLines, r.BadPercent, r.TotalTime,
		r.URLCount, r.P50, r.P95, r.P99, r.BytesRead, r.Elapsed.Milliseconds(), created,
	); err != nil {
		return fmt.Errorf("run insert: %w", err)
	}

	rowStmt, err := tx.PrepareContext(ctx, `INSERT INTO report_rows (run_id, rank, url, count, time_sum, time_max, time_avg, time_med, time_perc, count_perc) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer rowStmt.Close()

	for i, row := range table {
		if _, err := rowStmt.ExecContext(
			ctx,
			id, i+1, row.URL, row.Count,
			row.TimeSum, row.TimeMax, row.TimeAvg, row.TimeMedian,
			row.TimePercentOfTotal, row.CountPercentOfTotal,
		); err != nil {
			return fmt.Errorf("row insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
