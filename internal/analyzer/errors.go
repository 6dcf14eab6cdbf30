package analyzer

import (
	"errors"
	"fmt"
)

// ErrThresholdExceeded marks runs aborted because too many lines were unparseable.
var ErrThresholdExceeded = errors.New("analyzer: bad line threshold exceeded")

// ThresholdError carries the counts behind a threshold violation.
type ThresholdError struct {
	BadLines   int64
	TotalLines int64
	Percent    float64
	Threshold  float64
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("analyzer: %d of %d lines unparseable (%.2f%% >= %.2f%%)",
		e.BadLines, e.TotalLines, e.Percent, e.Threshold)
}

func (e *ThresholdError) Unwrap() error { return ErrThresholdExceeded }

// ErrRunInProgress is returned by TryRun when another run holds the analyzer.
var ErrRunInProgress = errors.New("analyzer: run already in progress")
