package report

import (
	"fmt"
	"sort"
)

// Result is the outcome of diffing a current snapshot against a previous
// one. Delta fields are nil when either side of a counter is missing: an
// unknown delta is distinct from a zero delta, and a missing baseline must
// never read as "no change".
type Result struct {
	FilesUsedDelta *int
	PagesUsedDelta *int
	ViewsDelta     *int

	AddedFiles   []MediaFileEntry
	RemovedFiles []MediaFileEntry

	AddedUsages   []UsageRef
	RemovedUsages []UsageRef
}

// UsageRef is one usage-level change, carrying the media file context the
// usage belongs to.
type UsageRef struct {
	Key        UsageKey
	MediaTitle string
	Usage      UsageEntry
}

// TotalUsageChanges is the compact change magnitude: usages added plus
// usages removed.
func (r Result) TotalUsageChanges() int {
	return len(r.AddedUsages) + len(r.RemovedUsages)
}

// Label encodes the change magnitude for embedding in a directory name or
// commit message: "[+3]" for three usage changes, "[0]" for none.
func (r Result) Label() string {
	return FormatLabel(r.TotalUsageChanges())
}

// FormatLabel renders a signed bracketed delta label.
func FormatLabel(n int) string {
	if n > 0 {
		return fmt.Sprintf("[+%d]", n)
	}
	return fmt.Sprintf("[%d]", n)
}

// SummaryDiffs returns the both-sides-present counter deltas keyed by the
// persisted metadata names. Keys with an unknown delta are absent.
func (r Result) SummaryDiffs() map[string]int {
	diffs := make(map[string]int)
	if r.FilesUsedDelta != nil {
		diffs["files_used"] = *r.FilesUsedDelta
	}
	if r.PagesUsedDelta != nil {
		diffs["pages_used"] = *r.PagesUsedDelta
	}
	if r.ViewsDelta != nil {
		diffs["views"] = *r.ViewsDelta
	}
	return diffs
}

// Diff compares current against previous. previous may be nil (first ever
// run): every counter delta is then unknown, the added sets hold all of
// current, and the removed sets are empty.
func Diff(current, previous *Snapshot) Result {
	var res Result

	var prevSummary Summary
	var prevFiles map[string]MediaFileEntry
	if previous != nil {
		prevSummary = previous.Summary
		prevFiles = previous.FilesByURL()
	}

	if previous != nil {
		res.FilesUsedDelta = delta(current.Summary.FilesUsed, prevSummary.FilesUsed)
		res.PagesUsedDelta = delta(current.Summary.PagesUsed, prevSummary.PagesUsed)
		res.ViewsDelta = delta(current.Summary.Views, prevSummary.Views)
	}

	curFiles := current.FilesByURL()
	res.AddedFiles = subtractFiles(curFiles, prevFiles)
	res.RemovedFiles = subtractFiles(prevFiles, curFiles)

	curUsages := usageSet(curFiles)
	prevUsages := usageSet(prevFiles)
	res.AddedUsages = subtractUsages(curUsages, prevUsages)
	res.RemovedUsages = subtractUsages(prevUsages, curUsages)

	return res
}

// delta returns a - b when both values are present, nil otherwise.
func delta(a, b *int) *int {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}

// subtractFiles returns the entries of a whose URL is absent from b,
// sorted by URL.
func subtractFiles(a, b map[string]MediaFileEntry) []MediaFileEntry {
	var out []MediaFileEntry
	for url, f := range a {
		if _, ok := b[url]; !ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// usageSet flattens the per-file usages into one map keyed by the 4-tuple
// usage identity.
func usageSet(files map[string]MediaFileEntry) map[UsageKey]UsageRef {
	set := make(map[UsageKey]UsageRef)
	for url, f := range files {
		for _, u := range f.Usages {
			key := u.Key(url)
			set[key] = UsageRef{Key: key, MediaTitle: f.Title, Usage: u}
		}
	}
	return set
}

// subtractUsages returns the usages of a absent from b, sorted by
// (wiki, page title, media title) for deterministic output.
func subtractUsages(a, b map[UsageKey]UsageRef) []UsageRef {
	var out []UsageRef
	for key, ref := range a {
		if _, ok := b[key]; !ok {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i], out[j]
		if ri.Key.Wiki != rj.Key.Wiki {
			return ri.Key.Wiki < rj.Key.Wiki
		}
		if ri.Key.PageTitle != rj.Key.PageTitle {
			return ri.Key.PageTitle < rj.Key.PageTitle
		}
		return ri.MediaTitle < rj.MediaTitle
	})
	return out
}
