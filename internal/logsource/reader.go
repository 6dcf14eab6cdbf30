package logsource

import (
	"bufio"
	"errors"
	"io"
	"iter"

	"github.com/tinytelemetry/logreport/internal/model"
)

const (
	// DefaultMaxLineSize is the default maximum size (in bytes) of a single line.
	DefaultMaxLineSize = model.DefaultMaxLineSize

	readBufferSize = 64 * 1024
)

// ReaderConfig holds tunable parameters for reader-backed sources.
type ReaderConfig struct {
	MaxLineSize int
}

// ReaderSource splits an io.Reader into lines without holding more than one
// line in memory. Lines longer than MaxLineSize are yielded with Oversized set
// and their tail is discarded.
type ReaderSource struct {
	r           *bufio.Reader
	maxLineSize int
	buf         []byte
	lineNum     int
	err         error
	done        bool
}

// NewReaderSource wraps r.
func NewReaderSource(r io.Reader, conf ...ReaderConfig) *ReaderSource {
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 && conf[0].MaxLineSize > 0 {
		maxLineSize = conf[0].MaxLineSize
	}
	return &ReaderSource{
		r:           bufio.NewReaderSize(r, readBufferSize),
		maxLineSize: maxLineSize,
	}
}

func (s *ReaderSource) Lines() iter.Seq[model.RawLine] {
	return func(yield func(model.RawLine) bool) {
		for {
			line, ok := s.next()
			if !ok || !yield(line) {
				return
			}
		}
	}
}

func (s *ReaderSource) Err() error   { return s.err }
func (s *ReaderSource) Name() string { return "reader" }

func (s *ReaderSource) next() (model.RawLine, bool) {
	if s.done {
		return model.RawLine{}, false
	}

	buf := s.buf[:0]
	total := 0
	for {
		chunk, err := s.r.ReadSlice('\n')
		total += len(chunk)
		if room := s.maxLineSize + 1 - len(buf); room > 0 {
			buf = append(buf, chunk[:min(room, len(chunk))]...)
		}

		switch {
		case err == nil:
			s.buf = buf
			return s.emit(buf, total-1), true
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			s.done = true
			s.buf = buf
			if total == 0 {
				return model.RawLine{}, false
			}
			return s.emit(buf, total), true
		default:
			s.done = true
			s.err = err
			return model.RawLine{}, false
		}
	}
}

// emit builds a RawLine; size is the line length without its newline.
func (s *ReaderSource) emit(buf []byte, size int) model.RawLine {
	s.lineNum++
	if size > s.maxLineSize {
		return model.RawLine{Number: s.lineNum, Text: string(buf[:s.maxLineSize]), Oversized: true}
	}
	return model.RawLine{Number: s.lineNum, Text: string(buf[:size])}
}
