package logsource

import (
	"iter"

	"github.com/tinytelemetry/logreport/internal/model"
)

// LineSource is a single-pass, pull-based sequence of raw log lines.
type LineSource interface {
	Lines() iter.Seq[model.RawLine] // consumed once; stops early on read faults
	Err() error                     // first read fault, nil at clean EOF
	Name() string                   // "file", "gzip", "reader"
}

var (
	_ LineSource = (*ReaderSource)(nil)
	_ LineSource = (*FileSource)(nil)
)
