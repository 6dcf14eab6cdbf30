package report

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tinytelemetry/logreport/internal/model"
)

//go:embed templates/report.html
var defaultTemplate string

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTemplate returns the built-in HTML report template.
func DefaultTemplate() string { return defaultTemplate }

// LoadTemplate reads the template at path, or returns the built-in template
// when path is empty.
func LoadTemplate(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return defaultTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("report: read template: %w", err)
	}
	return string(data), nil
}

// MarshalTable encodes the table as a JSON array. A nil table encodes as [].
func MarshalTable(table model.Table) ([]byte, error) {
	if table == nil {
		table = model.Table{}
	}
	return json.Marshal(table)
}

// Render substitutes the JSON table for every occurrence of placeholder in
// tmpl. Both $name and ${name} spellings are replaced; any other $tokens are
// left untouched.
func Render(tmpl, placeholder string, table model.Table) (string, error) {
	if placeholder == "" {
		placeholder = model.DefaultPlaceholder
	}
	data, err := MarshalTable(table)
	if err != nil {
		return "", fmt.Errorf("report: marshal table: %w", err)
	}

	pairs := []string{placeholder, string(data)}
	if name, ok := strings.CutPrefix(placeholder, "$"); ok {
		pairs = append([]string{"${" + name + "}", string(data)}, pairs...)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl), nil
}

// Path returns the report location for a log inside dir.
func Path(dir string, f model.LogFile) string {
	return filepath.Join(dir, f.ReportName())
}

// Exists reports whether a report file is already present at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("report: stat %s: %w", path, err)
}

// Write stores content at path through a temp file and rename, so a partial
// report never exists under the final name.
func Write(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("report: create dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("report: create tmp: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("report: write tmp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("report: sync tmp: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("report: close tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("report: rename: %w", err)
	}
	return nil
}
