package model

import (
	"fmt"
	"time"
)

// LogFile describes the log selected for a run. It is produced once by the
// locator and never modified afterwards.
type LogFile struct {
	Path       string
	Date       time.Time // calendar date, UTC midnight
	Compressed bool
}

// ReportName returns the deterministic report file name for the log date.
func (f LogFile) ReportName() string {
	return fmt.Sprintf("report-%s.html", f.Date.Format("2006.01.02"))
}

// RawLine carries one line read from a log source.
// Oversized is set when the line exceeded the source's size limit; Text then
// holds only a prefix and must not be parsed.
type RawLine struct {
	Number    int
	Text      string
	Oversized bool
}

// ParsedLine is the tagged result of parsing one line: either a valid
// (URL, RequestTime) pair or an unparseable marker.
type ParsedLine struct {
	URL         string
	RequestTime float64
	Valid       bool
}

// Unparseable is the marker returned for lines the parser cannot use.
var Unparseable = ParsedLine{}

// URLStat is one row of the report table. Numeric fields are rounded to
// three decimals when the row is built.
type URLStat struct {
	URL                 string  `json:"url"`
	Count               int     `json:"count"`
	TimeSum             float64 `json:"timeSum"`
	TimeMax             float64 `json:"timeMax"`
	TimeAvg             float64 `json:"timeAvg"`
	TimeMedian          float64 `json:"timeMedian"`
	TimePercentOfTotal  float64 `json:"timePercentOfTotal"`
	CountPercentOfTotal float64 `json:"countPercentOfTotal"`
}

// Table is the ranked, size-bounded report: rows sorted by TimeSum descending.
type Table []URLStat

// RunSummary describes one pipeline run for banners, history and the API.
type RunSummary struct {
	RunID      string        `json:"run_id,omitempty"`
	LogPath    string        `json:"log_path"`
	LogDate    time.Time     `json:"log_date"`
	Compressed bool          `json:"compressed"`
	ReportPath string        `json:"report_path"`
	TotalLines int64         `json:"total_lines"`
	ValidLines int64         `json:"valid_lines"`
	BadLines   int64         `json:"bad_lines"`
	BadPercent float64       `json:"bad_percent"`
	TotalTime  float64       `json:"total_time"`
	URLCount   int           `json:"url_count"`
	P50        float64       `json:"p50"`
	P95        float64       `json:"p95"`
	P99        float64       `json:"p99"`
	BytesRead  int64         `json:"bytes_read"`
	Elapsed    time.Duration `json:"elapsed"`
	CreatedAt  time.Time     `json:"created_at"`
}

// OutcomeStatus classifies the result of a run that did not fail.
type OutcomeStatus string

const (
	OutcomeGenerated       OutcomeStatus = "generated"
	OutcomeNoLogFound      OutcomeStatus = "no_log_found"
	OutcomeAlreadyReported OutcomeStatus = "already_reported"
)

// Outcome is returned by a run that completed without a fault.
// Table and Summary are only populated for OutcomeGenerated.
type Outcome struct {
	Status     OutcomeStatus `json:"status"`
	LogFile    *LogFile      `json:"-"`
	ReportPath string        `json:"report_path,omitempty"`
	Table      Table         `json:"-"`
	Summary    *RunSummary   `json:"summary,omitempty"`
}
