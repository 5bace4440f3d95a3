package report

import (
	"fmt"
	"strconv"
)

// Render turns a diff result into the deterministic comparison report: a
// heading, the three summary delta lines, and bulleted breakdowns for every
// non-empty set delta. When nothing changed at all an explicit closing line
// says so, so that an empty diff is never mistaken for a missing diff run.
func Render(heading string, current *Snapshot, diff Result) []string {
	lines := []string{
		heading,
		fmt.Sprintf("- Media files used: %s (current total: %d)",
			formatDelta(diff.FilesUsedDelta), currentFilesTotal(current)),
		fmt.Sprintf("- Pages using media: %s (current total: %s)",
			formatDelta(diff.PagesUsedDelta), formatTotal(current.Summary.PagesUsed)),
		fmt.Sprintf("- File views: %s (current total: %s)",
			formatDelta(diff.ViewsDelta), formatTotal(current.Summary.Views)),
	}

	if len(diff.AddedFiles) > 0 {
		lines = append(lines, "  Added media files:")
		for _, f := range diff.AddedFiles {
			lines = append(lines, fmt.Sprintf("    - %s (%s)", fileLabel(f), f.URL))
		}
	}
	if len(diff.RemovedFiles) > 0 {
		lines = append(lines, "  Removed media files:")
		for _, f := range diff.RemovedFiles {
			lines = append(lines, fmt.Sprintf("    - %s (%s)", fileLabel(f), f.URL))
		}
	}

	if len(diff.AddedUsages) > 0 {
		lines = append(lines, "  Added usages:")
		for _, u := range diff.AddedUsages {
			lines = append(lines, usageLine(u))
		}
	}
	if len(diff.RemovedUsages) > 0 {
		lines = append(lines, "  Removed usages:")
		for _, u := range diff.RemovedUsages {
			lines = append(lines, usageLine(u))
		}
	}

	if noChanges(diff) {
		lines = append(lines, "No changes detected.")
	}
	return lines
}

// noChanges reports whether every known counter delta is zero and both set
// deltas are empty. Unknown deltas do not count as changes.
func noChanges(diff Result) bool {
	for _, d := range []*int{diff.FilesUsedDelta, diff.PagesUsedDelta, diff.ViewsDelta} {
		if d != nil && *d != 0 {
			return false
		}
	}
	return len(diff.AddedFiles) == 0 && len(diff.RemovedFiles) == 0 &&
		len(diff.AddedUsages) == 0 && len(diff.RemovedUsages) == 0
}

// currentFilesTotal prefers the summary counter and falls back to the
// extracted file count. Display only: deltas never use the fallback.
func currentFilesTotal(s *Snapshot) int {
	if s.Summary.FilesUsed != nil {
		return *s.Summary.FilesUsed
	}
	return len(s.Files)
}

func fileLabel(f MediaFileEntry) string {
	if f.Title != "" {
		return f.Title
	}
	return f.URL
}

func usageLine(u UsageRef) string {
	media := u.MediaTitle
	if media == "" {
		media = u.Key.MediaURL
	}
	return fmt.Sprintf("    - %s: %s (%s)", u.Key.Wiki, u.Key.PageTitle, media)
}

// formatDelta renders a signed delta, or "unknown" when either side of the
// comparison was missing.
func formatDelta(d *int) string {
	if d == nil {
		return "unknown"
	}
	return FormatSigned(*d)
}

// FormatSigned renders n with an explicit sign for positive values.
func FormatSigned(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func formatTotal(v *int) string {
	if v == nil {
		return "unknown"
	}
	return strconv.Itoa(*v)
}
