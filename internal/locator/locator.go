// Package locator selects the newest nginx access log in a directory.
package locator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tinytelemetry/logreport/internal/model"
)

const dateLayout = "20060102"

// ErrPatternGroups is returned when a file pattern does not have exactly
// two capture groups (date, compression suffix).
var ErrPatternGroups = errors.New("locator: pattern must have exactly 2 capture groups")

// Locator matches file names against a pattern and picks the newest log.
type Locator struct {
	pattern *regexp.Regexp
}

// New compiles pattern and checks its group count.
func New(pattern string) (*Locator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("locator: compile pattern: %w", err)
	}
	if re.NumSubexp() != 2 {
		return nil, ErrPatternGroups
	}
	return &Locator{pattern: re}, nil
}

// Find scans dir and returns the newest matching log. ok is false when no
// file in dir matches.
func (l *Locator) Find(dir string) (model.LogFile, bool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return model.LogFile{}, false, fmt.Errorf("locator: resolve %s: %w", dir, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return model.LogFile{}, false, fmt.Errorf("locator: read dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	f, ok := l.Select(abs, names)
	return f, ok, nil
}

// Select picks the newest log among names. The date group must be exactly
// eight digits forming a valid calendar date; other candidates are ignored.
// On equal dates an uncompressed file wins over a compressed one regardless
// of listing order.
func (l *Locator) Select(dir string, names []string) (model.LogFile, bool) {
	var (
		best      model.LogFile
		bestName  string
		bestFound bool
	)

	for _, name := range names {
		m := l.pattern.FindStringSubmatch(name)
		if m == nil || m[0] != name {
			continue
		}
		dateStr, suffix := m[1], m[2]
		if len(dateStr) != len(dateLayout) {
			continue
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			log.Warn().Str("file", name).Msg("locator: skipping log with invalid date")
			continue
		}
		compressed := suffix != ""

		switch {
		case !bestFound, date.After(best.Date):
		case date.Equal(best.Date) && best.Compressed && !compressed:
		default:
			continue
		}
		best = model.LogFile{Date: date, Compressed: compressed}
		bestName = name
		bestFound = true
	}

	if !bestFound {
		return model.LogFile{}, false
	}
	best.Path = filepath.Join(dir, bestName)
	return best, true
}
