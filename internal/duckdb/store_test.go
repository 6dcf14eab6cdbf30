package duckdb

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSummary(date time.Time) *RunSummary {
	return &RunSummary{
		LogPath:    "/var/log/nginx-access-ui.log-" + date.Format("20060102"),
		LogDate:    date,
		ReportPath: "/reports/report-" + date.Format("2006.01.02") + ".html",
		TotalLines: 4,
		ValidLines: 3,
		BadLines:   1,
		BadPercent: 25,
		TotalTime:  0.6,
		URLCount:   2,
		P50:        0.2,
		P95:        0.3,
		P99:        0.3,
		BytesRead:  512,
		Elapsed:    1500 * time.Millisecond,
	}
}

func sampleTable() Table {
	return Table{
		{URL: "/b", Count: 2, TimeSum: 0.4, TimeMax: 0.3, TimeAvg: 0.2, TimeMedian: 0.2, TimePercentOfTotal: 66.667, CountPercentOfTotal: 66.667},
		{URL: "/a", Count: 1, TimeSum: 0.2, TimeMax: 0.2, TimeAvg: 0.2, TimeMedian: 0.2, TimePercentOfTotal: 33.333, CountPercentOfTotal: 33.333},
	}
}

func recordTestRun(t *testing.T, store *Store, s *RunSummary, table Table) string {
	t.Helper()
	id, err := store.RecordRun(s, table)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	return id
}

func TestNewStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.duckdb")
	store, err := NewStore(path, 5*time.Second)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", path, err)
	}
	defer store.Close()

	if store.DBPath() != path {
		t.Errorf("DBPath = %q, want %q", store.DBPath(), path)
	}
	if store.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v, want 5s", store.QueryTimeout)
	}
}

func TestRecordRunAndGetRun(t *testing.T) {
	store := newTestStore(t)
	date := time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC)

	id := recordTestRun(t, store, sampleSummary(date), sampleTable())
	if id == "" {
		t.Fatal("RecordRun returned empty id")
	}

	got, err := store.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.RunID != id {
		t.Errorf("RunID = %q, want %q", got.RunID, id)
	}
	if !got.LogDate.Equal(date) {
		t.Errorf("LogDate = %v, want %v", got.LogDate, date)
	}
	if got.BadLines != 1 || got.TotalLines != 4 || got.URLCount != 2 {
		t.Errorf("unexpected counters: %+v", got)
	}
	if got.Elapsed != 1500*time.Millisecond {
		t.Errorf("Elapsed = %v, want 1.5s", got.Elapsed)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestRecordRunKeepsExplicitID(t *testing.T) {
	store := newTestStore(t)
	s := sampleSummary(time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC))
	s.RunID = "fixed-id"

	if id := recordTestRun(t, store, s, nil); id != "fixed-id" {
		t.Errorf("id = %q, want fixed-id", id)
	}
}

func TestRecordRunNilSummary(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.RecordRun(nil, nil); err == nil {
		t.Fatal("expected error for nil summary")
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("GetRun(missing) err = %v, want ErrRunNotFound", err)
	}
}

func TestRunRowsPreservesRank(t *testing.T) {
	store := newTestStore(t)
	id := recordTestRun(t, store, sampleSummary(time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC)), sampleTable())

	rows, err := store.RunRows(id, 0)
	if err != nil {
		t.Fatalf("RunRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].URL != "/b" || rows[1].URL != "/a" {
		t.Errorf("rank order = [%s %s], want [/b /a]", rows[0].URL, rows[1].URL)
	}
	if rows[0].TimePercentOfTotal != 66.667 {
		t.Errorf("TimePercentOfTotal = %v, want 66.667", rows[0].TimePercentOfTotal)
	}

	limited, err := store.RunRows(id, 1)
	if err != nil {
		t.Fatalf("RunRows(limit=1): %v", err)
	}
	if len(limited) != 1 || limited[0].URL != "/b" {
		t.Errorf("RunRows(limit=1) = %+v", limited)
	}
}

func TestRunRowsUnknownRunIsEmpty(t *testing.T) {
	store := newTestStore(t)
	rows, err := store.RunRows("missing", 10)
	if err != nil {
		t.Fatalf("RunRows: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("RunRows(missing) = %#v, want empty non-nil table", rows)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().UTC().Add(-time.Hour)

	var ids []string
	for i := range 3 {
		s := sampleSummary(time.Date(2017, 6, 28+i, 0, 0, 0, 0, time.UTC))
		s.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		ids = append(ids, recordTestRun(t, store, s, sampleTable()))
	}

	runs, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].RunID != ids[2] || runs[1].RunID != ids[1] {
		t.Errorf("ListRuns order = [%s %s], want [%s %s]", runs[0].RunID, runs[1].RunID, ids[2], ids[1])
	}

	total, err := store.TotalRuns()
	if err != nil {
		t.Fatalf("TotalRuns: %v", err)
	}
	if total != 3 {
		t.Errorf("TotalRuns = %d, want 3", total)
	}
}

func TestLatestRunForDate(t *testing.T) {
	store := newTestStore(t)
	date := time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC)

	first := sampleSummary(date)
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	recordTestRun(t, store, first, nil)
	latest := recordTestRun(t, store, sampleSummary(date), nil)

	got, err := store.LatestRunForDate(date)
	if err != nil {
		t.Fatalf("LatestRunForDate: %v", err)
	}
	if got.RunID != latest {
		t.Errorf("LatestRunForDate = %s, want %s", got.RunID, latest)
	}

	if _, err := store.LatestRunForDate(date.AddDate(0, 0, 1)); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("LatestRunForDate(next day) err = %v, want ErrRunNotFound", err)
	}
}

func TestURLTrendOldestFirst(t *testing.T) {
	store := newTestStore(t)
	for i := range 3 {
		recordTestRun(t, store, sampleSummary(time.Date(2017, 6, 28+i, 0, 0, 0, 0, time.UTC)), sampleTable())
	}

	points, err := store.URLTrend("/b", 2)
	if err != nil {
		t.Fatalf("URLTrend: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].LogDate != "2017-06-29" || points[1].LogDate != "2017-06-30" {
		t.Errorf("trend dates = [%s %s], want [2017-06-29 2017-06-30]", points[0].LogDate, points[1].LogDate)
	}
	if points[0].Count != 2 || points[0].TimeSum != 0.4 {
		t.Errorf("unexpected point: %+v", points[0])
	}
}

func TestDeleteBeforeRemovesRows(t *testing.T) {
	store := newTestStore(t)
	s := sampleSummary(time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC))
	s.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	id := recordTestRun(t, store, s, sampleTable())

	n, err := store.DeleteBefore(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteBefore = %d, want 1", n)
	}

	rows, err := store.RunRows(id, 0)
	if err != nil {
		t.Fatalf("RunRows: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows left after DeleteBefore: %d", len(rows))
	}
}
