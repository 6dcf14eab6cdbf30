package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tinytelemetry/logreport/internal/model"
)

// ErrRunNotFound is returned when a run id is not present in the history.
var ErrRunNotFound = model.ErrRunNotFound

const runColumns = `id, log_path, log_date, compressed, report_path,
	total_lines, valid_lines, bad_lines, bad_percent, total_time,
	url_count, p50, p95, p99, bytes_read, elapsed_ms, created_at`

// queryCtx returns a context with the store's configured query timeout.
func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (RunSummary, error) {
	var (
		r         RunSummary
		elapsedMS int64
	)
	err := sc.Scan(
		&r.RunID, &r.LogPath, &r.LogDate, &r.Compressed, &r.ReportPath,
		&r.TotalLines, &r.ValidLines, &r.BadLines, &r.BadPercent, &r.TotalTime,
		&r.URLCount, &r.P50, &r.P95, &r.P99, &r.BytesRead, &elapsedMS, &r.CreatedAt,
	)
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return r, err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+`
		FROM report_runs
		ORDER BY created_at DESC, log_date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			log.Warn().Err(err).Msg("duckdb scan error (ListRuns)")
			continue
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetRun returns a single run by id.
func (s *Store) GetRun(id string) (*RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM report_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LatestRunForDate returns the newest run recorded for a log date.
func (s *Store) LatestRunForDate(date time.Time) (*RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+`
		FROM report_runs
		WHERE log_date = CAST(? AS DATE)
		ORDER BY created_at DESC
		LIMIT 1`, date.Format(time.DateOnly)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RunRows returns the stored report rows of a run in rank order.
// A non-positive limit returns every row.
func (s *Store) RunRows(id string, limit int) (Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	query := `SELECT url, count, time_sum, time_max, time_avg, time_med, time_perc, count_perc
		FROM report_rows
		WHERE run_id = ?
		ORDER BY rank`
	args := []any{id}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := Table{}
	for rows.Next() {
		var r URLStat
		if err := rows.Scan(&r.URL, &r.Count, &r.TimeSum, &r.TimeMax, &r.TimeAvg,
			&r.TimeMedian, &r.TimePercentOfTotal, &r.CountPercentOfTotal); err != nil {
			log.Warn().Err(err).Msg("duckdb scan error (RunRows)")
			continue
		}
		table = append(table, r)
	}
	return table, rows.Err()
}

// URLTrend returns the per-run figures of one URL, oldest log date first,
// limited to the most recent runs.
func (s *Store) URLTrend(url string, limit int) ([]TrendPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, log_date, count, time_sum, time_avg FROM (
			SELECT r.id AS run_id, strftime(r.log_date, '%Y-%m-%d') AS log_date,
				rr.count, rr.time_sum, rr.time_avg, r.created_at
			FROM report_rows rr
			JOIN report_runs r ON r.id = rr.run_id
			WHERE rr.url = ?
			ORDER BY r.log_date DESC, r.created_at DESC
			LIMIT ?
		) ORDER BY log_date ASC, created_at ASC`, url, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.RunID, &p.LogDate, &p.Count, &p.TimeSum, &p.TimeAvg); err != nil {
			log.Warn().Err(err).Msg("duckdb scan error (URLTrend)")
			continue
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// TotalRuns returns the number of recorded runs.
func (s *Store) TotalRuns() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_runs`).Scan(&n)
	return n, err
}

// DeleteBefore removes runs created before cutoff together with their rows.
// It returns the number of runs deleted.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM report_rows
		WHERE run_id IN (SELECT id FROM report_runs WHERE created_at < ?)`, cutoff); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM report_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}
