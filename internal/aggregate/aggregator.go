// Package aggregate folds parsed log lines into per-URL request time lists.
package aggregate

import (
	"context"
	"errors"
	"iter"

	"github.com/influxdata/tdigest"
	"github.com/tinytelemetry/logreport/internal/model"
)

// ErrNoValidLines means the fold finished without a single parseable line:
// the file was empty or the line pattern matched nothing.
var ErrNoValidLines = errors.New("aggregate: no valid lines")

// cancelCheckInterval is how many lines are folded between context checks.
const cancelCheckInterval = 4096

const digestCompression = 100

// State accumulates request times per URL plus running totals.
// It is owned by a single fold and must not be shared across goroutines.
type State struct {
	PerURL     map[string][]float64
	TotalTime  float64
	TotalCount int64
	BadCount   int64

	digest *tdigest.TDigest
}

// New returns an empty State.
func New() *State {
	return &State{
		PerURL: make(map[string][]float64),
		digest: tdigest.NewWithCompression(digestCompression),
	}
}

// Add folds one parsed line into the state.
func (s *State) Add(p model.ParsedLine) {
	if !p.Valid {
		s.BadCount++
		return
	}
	s.PerURL[p.URL] = append(s.PerURL[p.URL], p.RequestTime)
	s.TotalTime += p.RequestTime
	s.TotalCount++
	s.digest.Add(p.RequestTime, 1)
}

// Lines returns the number of lines folded so far.
func (s *State) Lines() int64 {
	return s.TotalCount + s.BadCount
}

// BadPercent returns the share of unparseable lines in percent.
func (s *State) BadPercent() float64 {
	lines := s.Lines()
	if lines == 0 {
		return 0
	}
	return 100 * float64(s.BadCount) / float64(lines)
}

// Quantile estimates the q-quantile of all valid request times.
func (s *State) Quantile(q float64) float64 {
	if s.TotalCount == 0 {
		return 0
	}
	return s.digest.Quantile(q)
}

// Check reports ErrNoValidLines when nothing valid was folded.
func (s *State) Check() error {
	if s.TotalCount == 0 {
		return ErrNoValidLines
	}
	return nil
}

// Parser turns a raw line into a tagged parse result.
type Parser interface {
	Parse(raw model.RawLine) model.ParsedLine
}

// Fold consumes lines in order and returns the accumulated state. It only
// stops early when ctx is cancelled; read faults are the source's to report.
func Fold(ctx context.Context, lines iter.Seq[model.RawLine], p Parser) (*State, error) {
	s := New()
	n := 0
	for raw := range lines {
		s.Add(p.Parse(raw))
		n++
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return s, err
			}
		}
	}
	return s, nil
}
