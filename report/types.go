// Package report implements the snapshot core of glamwatch: extracting a
// structured snapshot from a rendered glamorgan report, diffing two
// snapshots, and rendering a deterministic comparison report.
//
// report parses, it does not fetch. The rendered HTML arrives from the
// capture collaborator; persistence belongs to the store. Extraction and
// diffing are deliberately permissive: a value that cannot be parsed is
// absent, never an error.
package report

import "time"

// Summary holds the aggregate counters of one report. A nil field means the
// counter was not found in the source document; absence is a valid state.
type Summary struct {
	FilesViewed *int `json:"files_viewed"`
	FilesUsed   *int `json:"files_used"`
	PagesUsed   *int `json:"pages_used"`
	Wikis       *int `json:"wikis"`
	Views       *int `json:"views"`
}

// MediaFileEntry is one media file appearing in the report. The URL is the
// file's identity across snapshots.
type MediaFileEntry struct {
	Title  string       `json:"title"`
	URL    string       `json:"url"`
	Views  *int         `json:"views"`
	Usages []UsageEntry `json:"usages,omitempty"`
}

// UsageEntry is one specific page on one specific wiki using the parent file.
type UsageEntry struct {
	Wiki  string `json:"wiki"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Views *int   `json:"views"`
}

// UsageKey identifies a usage across snapshots. Two usages are the same
// usage iff all four fields match; the same file used by distinct pages
// yields distinct keys.
type UsageKey struct {
	Wiki      string
	PageTitle string
	PageURL   string
	MediaURL  string
}

// Key returns the identity key of a usage of the media file at mediaURL.
func (u UsageEntry) Key(mediaURL string) UsageKey {
	return UsageKey{Wiki: u.Wiki, PageTitle: u.Title, PageURL: u.URL, MediaURL: mediaURL}
}

// Metadata is the persisted structured record of a snapshot, the
// authoritative form preferred over re-parsing the raw document.
type Metadata struct {
	Category          string           `json:"category"`
	Depth             string           `json:"depth"`
	Year              string           `json:"year"`
	Month             string           `json:"month"`
	Timestamp         string           `json:"timestamp"`
	URL               string           `json:"url,omitempty"`
	PageTitle         string           `json:"page_title,omitempty"`
	Summary           *Summary         `json:"summary"`
	Files             []MediaFileEntry `json:"files"`
	ReportDirectory   string           `json:"report_directory"`
	PreviousDirectory string           `json:"previous_report_directory,omitempty"`
	DiffLabel         string           `json:"diff_label"`
	SummaryDiffs      map[string]int   `json:"summary_differences"`
	UsageChanges      *UsageChanges    `json:"usage_changes,omitempty"`
}

// UsageChanges counts usage-level additions and removals versus the
// previous snapshot.
type UsageChanges struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// Snapshot is one immutable, timestamped capture of a report for one
// category. Summary and Files default to empty when unavailable.
type Snapshot struct {
	Summary   Summary
	Files     []MediaFileEntry
	Timestamp time.Time
	Path      string
	Meta      Metadata
}

// FilesByURL indexes the snapshot's files by their identity key. Entries
// without a URL are not addressable across snapshots and are omitted.
func (s *Snapshot) FilesByURL() map[string]MediaFileEntry {
	byURL := make(map[string]MediaFileEntry, len(s.Files))
	for _, f := range s.Files {
		if f.URL == "" {
			continue
		}
		byURL[f.URL] = f
	}
	return byURL
}
