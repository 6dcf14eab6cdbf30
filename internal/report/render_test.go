package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/logreport/internal/model"
)

func TestRender(t *testing.T) {
	table := model.Table{{URL: "/a<b>", Count: 1, TimeSum: 0.5}}

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{
			name: "dollar name",
			tmpl: "var t = $table_json;",
			want: `var t = [{"url":"/a\u003cb\u003e","count":1,"timeSum":0.5,"timeMax":0,"timeAvg":0,"timeMedian":0,"timePercentOfTotal":0,"countPercentOfTotal":0}];`,
		},
		{
			name: "braced name",
			tmpl: "${table_json}",
			want: `[{"url":"/a\u003cb\u003e","count":1,"timeSum":0.5,"timeMax":0,"timeAvg":0,"timeMedian":0,"timePercentOfTotal":0,"countPercentOfTotal":0}]`,
		},
		{
			name: "unknown tokens untouched",
			tmpl: "$other $$ ${x}",
			want: "$other $$ ${x}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, "", table)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render = %s\nwant      %s", got, tt.want)
			}
		})
	}
}

func TestRenderEmptyTable(t *testing.T) {
	got, err := Render("x=$table_json", model.DefaultPlaceholder, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "x=[]" {
		t.Errorf("Render = %q, want x=[]", got)
	}
}

func TestDefaultTemplateHasPlaceholder(t *testing.T) {
	tmpl, err := LoadTemplate("")
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if !strings.Contains(tmpl, model.DefaultPlaceholder) {
		t.Fatal("default template lacks the table placeholder")
	}
	out, err := Render(tmpl, "", model.Table{{URL: "/x"}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(out, model.DefaultPlaceholder) {
		t.Error("placeholder left in rendered report")
	}
}

func TestLoadTemplateFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	if err := os.WriteFile(path, []byte("<p>$table_json</p>"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if tmpl != "<p>$table_json</p>" {
		t.Errorf("template = %q", tmpl)
	}
	if _, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Error("expected error for missing template")
	}
}

func TestPathAndExists(t *testing.T) {
	dir := t.TempDir()
	f := model.LogFile{Date: time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC)}
	path := Path(dir, f)
	if filepath.Base(path) != "report-2017.06.30.html" {
		t.Errorf("Path = %s", path)
	}

	ok, err := Exists(path)
	if err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}
	if err := Write(path, "<html></html>"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err = Exists(path)
	if err != nil || !ok {
		t.Fatalf("Exists after write = %v, %v", ok, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestWriteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reports", "report-2020.01.01.html")
	if err := Write(path, "ok"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("content = %q", data)
	}
}
