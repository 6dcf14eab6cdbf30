package analyzer

import (
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"
)

const progressTemplate = `{{ string . "prefix" }} {{ counters . }} {{ bar . }} {{ percent . }} {{ speed . }}`

// progress draws a byte-based bar over the on-disk reader of a log file.
// A nil *progress is valid and draws nothing.
type progress struct {
	bar *pb.ProgressBar
}

// newProgress returns nil unless enabled and out is a terminal.
func newProgress(enabled bool, out *os.File, name string, size int64) *progress {
	if !enabled || out == nil || size <= 0 || !term.IsTerminal(int(out.Fd())) {
		return nil
	}
	bar := pb.New64(size)
	bar.SetTemplate(progressTemplate)
	bar.Set("prefix", name)
	bar.Set(pb.Bytes, true)
	bar.SetMaxWidth(100)
	bar.SetRefreshRate(200 * time.Millisecond)
	bar.SetWriter(out)
	bar.Start()
	return &progress{bar: bar}
}

func (p *progress) wrap() func(io.Reader) io.Reader {
	if p == nil {
		return nil
	}
	return func(r io.Reader) io.Reader { return p.bar.NewProxyReader(r) }
}

func (p *progress) finish() {
	if p == nil {
		return
	}
	p.bar.Finish()
}
