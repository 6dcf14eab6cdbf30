// Package analyzer wires the log locator, line parser, aggregator and report
// builder into one run that turns the newest nginx access log into an HTML
// report.
package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tinytelemetry/logreport/internal/aggregate"
	"github.com/tinytelemetry/logreport/internal/locator"
	"github.com/tinytelemetry/logreport/internal/logparse"
	"github.com/tinytelemetry/logreport/internal/logsource"
	"github.com/tinytelemetry/logreport/internal/model"
	"github.com/tinytelemetry/logreport/internal/report"
)

// Config holds the settings of a run.
type Config struct {
	LogDir         string
	ReportDir      string
	LogPattern     string
	URLPattern     string
	TimePattern    string
	ReportSize     int
	ErrorThreshold float64 // percent of bad lines that aborts the run
	TemplatePath   string
	Placeholder    string
	MaxLineSize    int
	Progress       bool
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		LogDir:         model.DefaultLogDir,
		ReportDir:      model.DefaultReportDir,
		LogPattern:     model.DefaultLogPattern,
		URLPattern:     model.DefaultURLPattern,
		TimePattern:    model.DefaultTimePattern,
		ReportSize:     model.DefaultReportSize,
		ErrorThreshold: model.DefaultErrorThreshold,
		Placeholder:    model.DefaultPlaceholder,
		MaxLineSize:    model.DefaultMaxLineSize,
	}
}

// Analyzer runs the report pipeline. Runs are serialized.
type Analyzer struct {
	cfg      Config
	locator  *locator.Locator
	parser   *logparse.Parser
	template string
	history  model.HistoryWriter

	mu sync.Mutex
}

// New validates cfg, compiles its patterns and loads the report template.
// history may be nil to disable recording.
func New(cfg Config, history model.HistoryWriter) (*Analyzer, error) {
	if cfg.ReportSize < 0 {
		return nil, report.ErrNegativeSize
	}
	if cfg.ErrorThreshold <= 0 || cfg.ErrorThreshold > 100 {
		return nil, fmt.Errorf("analyzer: error threshold %v outside (0, 100]", cfg.ErrorThreshold)
	}
	if cfg.LogPattern == "" {
		cfg.LogPattern = model.DefaultLogPattern
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = model.DefaultPlaceholder
	}

	loc, err := locator.New(cfg.LogPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling log pattern: %w", err)
	}
	parser, err := logparse.NewParser(cfg.URLPattern, cfg.TimePattern)
	if err != nil {
		return nil, fmt.Errorf("compiling line patterns: %w", err)
	}
	tmpl, err := report.LoadTemplate(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		cfg:      cfg,
		locator:  loc,
		parser:   parser,
		template: tmpl,
		history:  history,
	}, nil
}

// Config returns the settings the analyzer was built with.
func (a *Analyzer) Config() Config { return a.cfg }

// Run executes one pipeline pass. Benign outcomes (no log, report already
// present) are returned as Outcome values; every failure is an error.
func (a *Analyzer) Run(ctx context.Context) (model.Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.run(ctx)
}

// TryRun is Run but fails with ErrRunInProgress instead of waiting.
func (a *Analyzer) TryRun(ctx context.Context) (model.Outcome, error) {
	if !a.mu.TryLock() {
		return model.Outcome{}, ErrRunInProgress
	}
	defer a.mu.Unlock()
	return a.run(ctx)
}

func (a *Analyzer) run(ctx context.Context) (model.Outcome, error) {
	start := time.Now()

	f, ok, err := a.locator.Find(a.cfg.LogDir)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("locating log: %w", err)
	}
	if !ok {
		log.Info().Str("dir", a.cfg.LogDir).Msg("analyzer: no log file found")
		return model.Outcome{Status: model.OutcomeNoLogFound}, nil
	}

	reportPath := report.Path(a.cfg.ReportDir, f)
	exists, err := report.Exists(reportPath)
	if err != nil {
		return model.Outcome{}, err
	}
	if exists {
		log.Info().Str("report", reportPath).Msg("analyzer: report already exists")
		return model.Outcome{
			Status:     model.OutcomeAlreadyReported,
			LogFile:    &f,
			ReportPath: reportPath,
		}, nil
	}

	state, bytesRead, err := a.fold(ctx, f)
	if err != nil {
		return model.Outcome{}, err
	}
	if err := state.Check(); err != nil {
		return model.Outcome{}, fmt.Errorf("aggregating %s: %w", f.Path, err)
	}
	if pct := state.BadPercent(); pct >= a.cfg.ErrorThreshold {
		return model.Outcome{}, &ThresholdError{
			BadLines:   state.BadCount,
			TotalLines: state.Lines(),
			Percent:    pct,
			Threshold:  a.cfg.ErrorThreshold,
		}
	}

	table, err := report.Build(state, a.cfg.ReportSize)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("building report: %w", err)
	}
	content, err := report.Render(a.template, a.cfg.Placeholder, table)
	if err != nil {
		return model.Outcome{}, err
	}
	if err := report.Write(reportPath, content); err != nil {
		return model.Outcome{}, err
	}

	summary := &model.RunSummary{
		LogPath:    f.Path,
		LogDate:    f.Date,
		Compressed: f.Compressed,
		ReportPath: reportPath,
		TotalLines: state.Lines(),
		ValidLines: state.TotalCount,
		BadLines:   state.BadCount,
		BadPercent: state.BadPercent(),
		TotalTime:  state.TotalTime,
		URLCount:   len(state.PerURL),
		P50:        state.Quantile(0.50),
		P95:        state.Quantile(0.95),
		P99:        state.Quantile(0.99),
		BytesRead:  bytesRead,
		Elapsed:    time.Since(start),
		CreatedAt:  time.Now().UTC(),
	}

	if a.history != nil {
		id, err := a.history.RecordRun(summary, table)
		if err != nil {
			// The report is already on disk; losing the history row is not fatal.
			log.Error().Err(err).Str("report", reportPath).Msg("analyzer: failed to record run history")
		} else {
			summary.RunID = id
		}
	}

	log.Info().
		Str("log", filepath.Base(f.Path)).
		Str("report", reportPath).
		Int64("lines", summary.TotalLines).
		Int64("bad", summary.BadLines).
		Int("urls", summary.URLCount).
		Dur("elapsed", summary.Elapsed).
		Msg("analyzer: report generated")

	return model.Outcome{
		Status:     model.OutcomeGenerated,
		LogFile:    &f,
		ReportPath: reportPath,
		Table:      table,
		Summary:    summary,
	}, nil
}

// fold streams the log through the parser into a fresh aggregate state.
// The file is closed on every path.
func (a *Analyzer) fold(ctx context.Context, f model.LogFile) (*aggregate.State, int64, error) {
	var size int64
	if info, err := os.Stat(f.Path); err == nil {
		size = info.Size()
	}
	bar := newProgress(a.cfg.Progress, os.Stderr, filepath.Base(f.Path), size)
	defer bar.finish()

	src, err := logsource.OpenFile(f, logsource.FileConfig{
		MaxLineSize: a.cfg.MaxLineSize,
		WrapReader:  bar.wrap(),
	})
	if err != nil {
		return nil, 0, err
	}
	defer src.Close()

	state, err := aggregate.Fold(ctx, src.Lines(), a.parser)
	if err != nil {
		return nil, 0, err
	}
	if err := src.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	if err := src.Close(); err != nil {
		return nil, 0, fmt.Errorf("closing %s: %w", f.Path, err)
	}
	return state, src.BytesRead(), nil
}
