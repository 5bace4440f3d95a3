package report

import (
	"strings"
	"testing"
)

func TestRenderFullReport(t *testing.T) {
	prev := &Snapshot{
		Summary: Summary{FilesUsed: intp(1), PagesUsed: intp(2), Views: intp(100)},
		Files: []MediaFileEntry{
			{Title: "Gone", URL: "urlGone", Usages: []UsageEntry{{Wiki: "w1", Title: "Old Page"}}},
		},
	}
	cur := &Snapshot{
		Summary: Summary{FilesUsed: intp(2), PagesUsed: intp(2), Views: intp(130)},
		Files: []MediaFileEntry{
			{Title: "New", URL: "urlNew", Usages: []UsageEntry{{Wiki: "w2", Title: "New Page"}}},
			{Title: "Other", URL: "urlOther"},
		},
	}

	lines := Render("Changes compared to previous report (2024-02_x_[0]):", cur, Diff(cur, prev))

	want := []string{
		"Changes compared to previous report (2024-02_x_[0]):",
		"- Media files used: +1 (current total: 2)",
		"- Pages using media: 0 (current total: 2)",
		"- File views: +30 (current total: 130)",
		"  Added media files:",
		"    - New (urlNew)",
		"    - Other (urlOther)",
		"  Removed media files:",
		"    - Gone (urlGone)",
		"  Added usages:",
		"    - w2: New Page (New)",
		"  Removed usages:",
		"    - w1: Old Page (Gone)",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRenderNoChanges(t *testing.T) {
	s := snapshotFixture()
	lines := Render("Changes compared to previous report (r):", s, Diff(s, s))

	last := lines[len(lines)-1]
	if last != "No changes detected." {
		t.Errorf("last line = %q, want explicit no-changes line", last)
	}
}

func TestRenderUnknownDeltas(t *testing.T) {
	cur := &Snapshot{
		Files: []MediaFileEntry{{Title: "A", URL: "urlA"}},
	}
	lines := Render("heading", cur, Diff(cur, nil))

	if lines[1] != "- Media files used: unknown (current total: 1)" {
		t.Errorf("files line = %q", lines[1])
	}
	if lines[2] != "- Pages using media: unknown (current total: unknown)" {
		t.Errorf("pages line = %q", lines[2])
	}
	if lines[3] != "- File views: unknown (current total: unknown)" {
		t.Errorf("views line = %q", lines[3])
	}
	// The full current contents surface as additions even without a baseline.
	found := false
	for _, l := range lines {
		if l == "  Added media files:" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing added-files block:\n%s", strings.Join(lines, "\n"))
	}
}

func TestFormatSigned(t *testing.T) {
	cases := map[int]string{5: "+5", 0: "0", -3: "-3"}
	for n, want := range cases {
		if got := FormatSigned(n); got != want {
			t.Errorf("FormatSigned(%d) = %q, want %q", n, got, want)
		}
	}
}
