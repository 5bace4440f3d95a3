package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/glamwatch/report"
)

func intp(n int) *int { return &n }

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), nil)
}

func writeSnapshot(t *testing.T, s *Store, subdir string, ts time.Time, year, month string) string {
	t.Helper()
	period := report.Period{Year: 2024, Month: 3}
	if year != "" {
		if p, ok := report.ParsePeriod(year, month); ok {
			period = p
		}
	}
	dir, err := s.Write(subdir, WriteRequest{
		Category:  "Test Category",
		Depth:     "12",
		Period:    period,
		Timestamp: ts,
		HTML:      "<html><body><div>placeholder</div></body></html>",
		Summary:   report.Summary{FilesUsed: intp(3), PagesUsed: intp(4), Views: intp(50)},
		Files: []report.MediaFileEntry{
			{Title: "File:One.jpg", URL: "https://commons.wikimedia.org/wiki/File:One.jpg", Views: intp(5),
				Usages: []report.UsageEntry{{Wiki: "en.wikipedia", Title: "Page"}}},
		},
		DiffLabel: "[0]",
	})
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestWriteLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	dir := writeSnapshot(t, s, "cat", ts, "2024", "03")

	if filepath.Base(dir) != "2024-03_20240402_083000_[0]" {
		t.Errorf("dir name = %q", filepath.Base(dir))
	}

	snap, err := s.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", snap.Timestamp, ts)
	}
	if snap.Summary.FilesUsed == nil || *snap.Summary.FilesUsed != 3 {
		t.Errorf("summary = %+v", snap.Summary)
	}
	if len(snap.Files) != 1 || len(snap.Files[0].Usages) != 1 {
		t.Errorf("files = %+v", snap.Files)
	}
	if snap.Meta.Category != "Test Category" || snap.Meta.Year != "2024" || snap.Meta.Month != "03" {
		t.Errorf("metadata = %+v", snap.Meta)
	}
}

func TestWriteCollisionIsFatal(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	writeSnapshot(t, s, "cat", ts, "2024", "03")

	_, err := s.Write("cat", WriteRequest{
		Period:    report.Period{Year: 2024, Month: 3},
		Timestamp: ts,
		DiffLabel: "[0]",
	})
	if err == nil {
		t.Fatal("second write into the same directory name must fail")
	}
}

func TestLatest(t *testing.T) {
	s := testStore(t)
	t1 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t1.Add(48 * time.Hour)
	// Write out of chronological order: enumeration order must not matter.
	writeSnapshot(t, s, "cat", t2, "2024", "03")
	want := writeSnapshot(t, s, "cat", t3, "2024", "03")
	writeSnapshot(t, s, "cat", t1, "2024", "03")

	latest, err := s.Latest("cat")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Path != want {
		t.Errorf("latest = %v, want %s", latest, want)
	}
}

func TestLatestEmptyCategory(t *testing.T) {
	s := testStore(t)
	latest, err := s.Latest("never-captured")
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Errorf("latest = %v, want nil", latest)
	}
}

func TestEarliestInMonth(t *testing.T) {
	s := testStore(t)
	t1 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	want := writeSnapshot(t, s, "cat", t1, "2024", "03")
	writeSnapshot(t, s, "cat", t2, "2024", "03")
	// Earlier timestamp but a different reporting month: not a candidate.
	writeSnapshot(t, s, "cat", t1.Add(-48*time.Hour), "2024", "02")

	got, err := s.EarliestInMonth("cat", report.Period{Year: 2024, Month: 3})
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Path != want {
		t.Errorf("earliest = %v, want %s", got, want)
	}

	none, err := s.EarliestInMonth("cat", report.Period{Year: 2023, Month: 1})
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Errorf("earliest for empty month = %v, want nil", none)
	}
}

func TestLoadFallsBackToHTML(t *testing.T) {
	s := testStore(t)
	dir := filepath.Join(s.Root(), "cat", "2024-03_20240402_083000_[0]")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	html := `<div>7 files were viewed, out of 9 used on 3 pages on 2 wikis.</div>
<div>100 file views in 2024-03.</div>
<div id="output"><table class="table table-striped">
<tr><td><a href="https://commons.wikimedia.org/wiki/File:X.jpg">File:X.jpg</a></td></tr>
</table></div>`
	htmlPath := filepath.Join(dir, "glamtools_results_20240402_083000.html")
	if err := os.WriteFile(htmlPath, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Summary.FilesUsed == nil || *snap.Summary.FilesUsed != 9 {
		t.Errorf("summary not re-extracted: %+v", snap.Summary)
	}
	if len(snap.Files) != 1 || snap.Files[0].Title != "File:X.jpg" {
		t.Errorf("files not re-extracted: %+v", snap.Files)
	}
	// No metadata timestamp: mtime fallback keeps the snapshot queryable.
	if snap.Timestamp.IsZero() {
		t.Error("timestamp fallback failed")
	}
}

func TestCorruptMetadataFallsBack(t *testing.T) {
	s := testStore(t)
	dir := writeSnapshot(t, s, "cat", time.Now().UTC(), "2024", "03")

	metaPath := firstMatch(dir, "metadata_*.json")
	if err := os.WriteFile(metaPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	// HTML has no parseable table or counters, but the load must survive.
	if snap.Timestamp.IsZero() {
		t.Error("corrupt metadata must not zero the timestamp fallback")
	}
}

func TestWalkSkipsCorruptDirs(t *testing.T) {
	s := testStore(t)
	ts := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)
	want := writeSnapshot(t, s, "cat", ts, "2024", "03")

	// A stray file and an empty directory share the category dir.
	if err := os.WriteFile(filepath.Join(s.Root(), "cat", "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(s.Root(), "cat", "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	latest, err := s.Latest("cat")
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Path != want {
		t.Errorf("latest = %v, want %s", latest, want)
	}

	// The empty dir must not load as a snapshot either: its dir mtime is
	// newer than every real snapshot and would shadow the true latest.
	if _, err := s.Load(filepath.Join(s.Root(), "cat", "empty")); err == nil {
		t.Error("Load of a record-less directory succeeded, want error")
	}
}

func TestMetadataJSONShape(t *testing.T) {
	s := testStore(t)
	dir := writeSnapshot(t, s, "cat", time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC), "2024", "03")

	data, err := os.ReadFile(firstMatch(dir, "metadata_*.json"))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"category", "depth", "year", "month", "timestamp", "summary", "files", "report_directory", "diff_label", "summary_differences"} {
		if _, ok := m[key]; !ok {
			t.Errorf("metadata missing key %q", key)
		}
	}
	sum := m["summary"].(map[string]any)
	for _, key := range []string{"files_viewed", "files_used", "pages_used", "wikis", "views"} {
		if _, ok := sum[key]; !ok {
			t.Errorf("summary missing key %q", key)
		}
	}
}

func TestWriteReport(t *testing.T) {
	s := testStore(t)
	dir := writeSnapshot(t, s, "cat", time.Now().UTC(), "2024", "03")

	lines := []string{"heading", "- body"}
	if err := s.WriteReport(dir, "changes_summary.txt", lines); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "changes_summary.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "heading\n- body\n" {
		t.Errorf("report body = %q", data)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("report must end with a newline")
	}
}

func TestMarkdownArchiveWritten(t *testing.T) {
	s := testStore(t)
	dir := writeSnapshot(t, s, "cat", time.Now().UTC(), "2024", "03")

	mdPath := firstMatch(dir, "report_*.md")
	if mdPath == "" {
		t.Fatal("markdown archive missing")
	}
	data, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "placeholder") {
		t.Errorf("archive body = %q", data)
	}
}
