package logsource

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/tinytelemetry/logreport/internal/model"
)

// FileConfig holds tunable parameters for file sources.
type FileConfig struct {
	MaxLineSize int

	// WrapReader, when set, wraps the raw file reader before decompression
	// (used for progress reporting on on-disk bytes).
	WrapReader func(io.Reader) io.Reader
}

// FileSource reads a plain or gzip-compressed log file line by line.
type FileSource struct {
	*ReaderSource

	file       *os.File
	gz         *gzip.Reader
	compressed bool
	size       int64
	read       atomic.Int64
	closeOnce  sync.Once
	closeErr   error
}

// OpenFile opens the log described by f. The caller must Close the source on
// every path.
func OpenFile(f model.LogFile, conf ...FileConfig) (*FileSource, error) {
	var cfg FileConfig
	if len(conf) > 0 {
		cfg = conf[0]
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("logsource: open %s: %w", f.Path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("logsource: stat %s: %w", f.Path, err)
	}

	s := &FileSource{
		file:       file,
		compressed: f.Compressed,
		size:       info.Size(),
	}

	var r io.Reader = &countingReader{r: file, n: &s.read}
	if cfg.WrapReader != nil {
		r = cfg.WrapReader(r)
	}
	if f.Compressed {
		gz, err := gzip.NewReader(r)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("logsource: gzip header %s: %w", f.Path, err)
		}
		s.gz = gz
		r = gz
	}

	s.ReaderSource = NewReaderSource(r, ReaderConfig{MaxLineSize: cfg.MaxLineSize})
	return s, nil
}

func (s *FileSource) Name() string {
	if s.compressed {
		return "gzip"
	}
	return "file"
}

// Size returns the on-disk size of the file.
func (s *FileSource) Size() int64 { return s.size }

// BytesRead returns the number of on-disk bytes consumed so far.
func (s *FileSource) BytesRead() int64 { return s.read.Load() }

// Close releases the decompressor and the file. It is safe to call more than once.
func (s *FileSource) Close() error {
	s.closeOnce.Do(func() {
		if s.gz != nil {
			if err := s.gz.Close(); err != nil {
				s.closeErr = err
			}
		}
		if err := s.file.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
