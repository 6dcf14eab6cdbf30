package model

import "errors"

// HistoryWriter persists generated reports.
type HistoryWriter interface {
	RecordRun(summary *RunSummary, table Table) (string, error)
}

// HistoryReader provides read-only queries over recorded runs.
type HistoryReader interface {
	ListRuns(limit int) ([]RunSummary, error)
	GetRun(id string) (*RunSummary, error)
	RunRows(id string, limit int) (Table, error)
	URLTrend(url string, limit int) ([]TrendPoint, error)
	TotalRuns() (int64, error)
}

// TrendPoint is the aggregate of one URL in one recorded run.
type TrendPoint struct {
	RunID   string  `json:"run_id"`
	LogDate string  `json:"log_date"`
	Count   int     `json:"count"`
	TimeSum float64 `json:"time_sum"`
	TimeAvg float64 `json:"time_avg"`
}

// ErrRunNotFound is returned by history readers when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")
