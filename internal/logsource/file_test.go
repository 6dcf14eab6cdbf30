package logsource

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/tinytelemetry/logreport/internal/model"
)

func collect(t *testing.T, src LineSource) []model.RawLine {
	t.Helper()
	var lines []model.RawLine
	for line := range src.Lines() {
		lines = append(lines, line)
	}
	return lines
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReaderSourceSplitsLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"empty lines count", "a\n\nb\n", []string{"a", "", "b"}},
		{"crlf kept for parser", "a\r\n", []string{"a\r"}},
		{"empty input", "", nil},
		{"single newline", "\n", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewReaderSource(strings.NewReader(tt.input))
			lines := collect(t, src)
			if src.Err() != nil {
				t.Fatalf("Err = %v", src.Err())
			}
			if len(lines) != len(tt.want) {
				t.Fatalf("got %d lines, want %d", len(lines), len(tt.want))
			}
			for i, line := range lines {
				if line.Text != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, line.Text, tt.want[i])
				}
				if line.Number != i+1 {
					t.Errorf("line %d number = %d", i, line.Number)
				}
			}
		})
	}
}

func TestReaderSourceOversizedLines(t *testing.T) {
	long := strings.Repeat("x", 200_000)
	input := "short\n" + long + "\n" + "exact\n"

	src := NewReaderSource(strings.NewReader(input), ReaderConfig{MaxLineSize: 5})
	lines := collect(t, src)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0].Oversized || lines[0].Text != "short" {
		t.Errorf("line 1 = %+v", lines[0])
	}
	if !lines[1].Oversized || lines[1].Text != "xxxxx" {
		t.Errorf("line 2 should be oversized prefix, got oversized=%v len=%d", lines[1].Oversized, len(lines[1].Text))
	}
	if lines[2].Oversized || lines[2].Text != "exact" {
		t.Errorf("line 3 = %+v", lines[2])
	}
}

func TestReaderSourceStopsEarly(t *testing.T) {
	src := NewReaderSource(strings.NewReader("a\nb\nc\n"))
	for line := range src.Lines() {
		if line.Text == "b" {
			break
		}
	}
	rest := collect(t, src)
	if len(rest) != 1 || rest[0].Text != "c" {
		t.Errorf("remaining lines = %+v, want [c]", rest)
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReaderSourceSurfacesReadErrors(t *testing.T) {
	src := NewReaderSource(io.MultiReader(strings.NewReader("a\n"), failingReader{err: io.ErrClosedPipe}))
	lines := collect(t, src)
	if len(lines) != 1 {
		t.Errorf("got %d lines before fault, want 1", len(lines))
	}
	if src.Err() != io.ErrClosedPipe {
		t.Errorf("Err = %v, want io.ErrClosedPipe", src.Err())
	}
}

func TestOpenFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nginx-access-ui.log-20200101")
	content := "one\ntwo\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src, err := OpenFile(model.LogFile{Path: path})
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()

	lines := collect(t, src)
	if len(lines) != 2 || lines[1].Text != "two" {
		t.Errorf("lines = %+v", lines)
	}
	if src.Name() != "file" {
		t.Errorf("Name = %q, want file", src.Name())
	}
	if src.BytesRead() != int64(len(content)) || src.Size() != int64(len(content)) {
		t.Errorf("BytesRead = %d Size = %d, want %d", src.BytesRead(), src.Size(), len(content))
	}
}

func TestOpenFileGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nginx-access-ui.log-20200101.gz")
	writeGzip(t, path, "one\ntwo\nthree")

	var wrapped bool
	src, err := OpenFile(model.LogFile{Path: path, Compressed: true}, FileConfig{
		WrapReader: func(r io.Reader) io.Reader {
			wrapped = true
			return r
		},
	})
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()

	lines := collect(t, src)
	if err := src.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(lines) != 3 || lines[2].Text != "three" {
		t.Errorf("lines = %+v", lines)
	}
	if src.Name() != "gzip" {
		t.Errorf("Name = %q, want gzip", src.Name())
	}
	if !wrapped {
		t.Error("WrapReader was not applied")
	}
}

func TestOpenFileCorruptGzip(t *testing.T) {
	dir := t.TempDir()

	notGzip := filepath.Join(dir, "plain.gz")
	if err := os.WriteFile(notGzip, []byte("not gzip at all\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenFile(model.LogFile{Path: notGzip, Compressed: true}); err == nil {
		t.Error("expected header error for non-gzip file")
	}

	truncated := filepath.Join(dir, "truncated.gz")
	writeGzip(t, truncated, strings.Repeat("\"GET /a HTTP/1.1\" 0.1\n", 1000))
	data, err := os.ReadFile(truncated)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := os.WriteFile(truncated, data[:len(data)/2], 0644); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	src, err := OpenFile(model.LogFile{Path: truncated, Compressed: true})
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()
	collect(t, src)
	if src.Err() == nil {
		t.Error("expected a read fault for truncated gzip stream")
	}
}

func TestOpenFileMissing(t *testing.T) {
	if _, err := OpenFile(model.LogFile{Path: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFileSourceCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log")
	if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := OpenFile(model.LogFile{Path: path})
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
