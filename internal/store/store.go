// Package store persists and queries glamwatch snapshots on the filesystem.
//
// Layout, one directory per capture run:
//
//	<root>/<category-subdir>/<YYYY-MM>_<runTimestamp>_<label>/
//	    metadata_<runTimestamp>.json
//	    glamtools_results_<runTimestamp>.html
//	    glamtools_screenshot_<runTimestamp>.png
//	    report_<runTimestamp>.md
//	    changes_summary.txt
//	    previous_month_summary.txt
//
// Snapshot directories are append-only: created with not-already-exists
// semantics and never rewritten, so repeated runs cannot corrupt history.
// The metadata JSON is the authoritative structured record; loading falls
// back to re-extracting the persisted HTML only when metadata is missing
// or incomplete.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hazyhaar/glamwatch/report"
)

// TimestampLayout names snapshot artifacts inside a run directory.
const TimestampLayout = "20060102_150405"

// Store reads and writes the snapshot tree under one root directory.
type Store struct {
	root   string
	logger *slog.Logger
}

// New creates a Store rooted at dir.
func New(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: root, logger: logger}
}

// Root returns the store root directory.
func (s *Store) Root() string { return s.root }

// CategoryDir returns the directory holding one category's snapshots.
func (s *Store) CategoryDir(subdir string) string {
	return filepath.Join(s.root, subdir)
}

// Load reconstructs a snapshot from one run directory. A directory holding
// neither a metadata record nor a persisted HTML document is not a
// snapshot and returns an error. Summary and files come from the metadata
// record when present, otherwise from re-extracting the persisted HTML.
// The timestamp falls back from metadata to the HTML file's mtime to the
// directory's mtime; a snapshot without any timestamp has a zero Timestamp
// and is excluded from store queries.
func (s *Store) Load(dir string) (*report.Snapshot, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store: %s is not a directory", dir)
	}

	snap := &report.Snapshot{Path: dir}

	metaPath := firstMatch(dir, "metadata_*.json")
	htmlPath := firstMatch(dir, "glamtools_results_*.html")
	if metaPath == "" && htmlPath == "" {
		// Not a snapshot at all. Without this, an empty stray directory
		// would take the dir-mtime fallback and shadow the real latest.
		return nil, fmt.Errorf("store: %s holds no persisted record", dir)
	}

	if metaPath != "" {
		data, err := os.ReadFile(metaPath)
		if err == nil {
			// A corrupt metadata file degrades to HTML re-extraction.
			if jsonErr := json.Unmarshal(data, &snap.Meta); jsonErr != nil {
				s.logger.Warn("store: corrupt metadata, falling back to HTML",
					"dir", dir, "error", jsonErr)
				snap.Meta = report.Metadata{}
			}
		}
	}

	var html string
	if htmlPath != "" {
		if data, err := os.ReadFile(htmlPath); err == nil {
			html = string(data)
		}
	}

	if snap.Meta.Summary != nil {
		snap.Summary = *snap.Meta.Summary
	}
	snap.Files = snap.Meta.Files
	if html != "" && (snap.Meta.Summary == nil || len(snap.Files) == 0) {
		sum, files := report.Extract(html)
		if snap.Meta.Summary == nil {
			snap.Summary = sum
		}
		if len(snap.Files) == 0 {
			snap.Files = files
		}
	}

	snap.Timestamp = s.resolveTimestamp(snap.Meta.Timestamp, htmlPath, dir)
	return snap, nil
}

// resolveTimestamp applies the metadata → HTML mtime → dir mtime fallback.
func (s *Store) resolveTimestamp(metaTS, htmlPath, dir string) time.Time {
	if ts, ok := parseTimestamp(metaTS); ok {
		return ts
	}
	if htmlPath != "" {
		if info, err := os.Stat(htmlPath); err == nil {
			return info.ModTime().UTC()
		}
	}
	if info, err := os.Stat(dir); err == nil {
		return info.ModTime().UTC()
	}
	return time.Time{}
}

// parseTimestamp reads an RFC 3339 timestamp from persisted metadata.
func parseTimestamp(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Latest returns the snapshot with the maximum timestamp for one category,
// or nil when the category has no loadable snapshots. Ties are broken
// arbitrarily.
func (s *Store) Latest(subdir string) (*report.Snapshot, error) {
	var latest *report.Snapshot
	err := s.walk(subdir, func(snap *report.Snapshot) {
		if latest == nil || snap.Timestamp.After(latest.Timestamp) {
			latest = snap
		}
	})
	return latest, err
}

// EarliestInMonth returns the earliest snapshot whose persisted metadata
// records the given reporting period. Snapshots without a parseable period
// are not candidates.
func (s *Store) EarliestInMonth(subdir string, p report.Period) (*report.Snapshot, error) {
	var earliest *report.Snapshot
	err := s.walk(subdir, func(snap *report.Snapshot) {
		period, ok := report.ParsePeriod(snap.Meta.Year, snap.Meta.Month)
		if !ok || period != p {
			return
		}
		if earliest == nil || snap.Timestamp.Before(earliest.Timestamp) {
			earliest = snap
		}
	})
	return earliest, err
}

// walk loads every valid snapshot under a category directory. A corrupt or
// unreadable directory is skipped, never aborts enumeration; a missing
// category directory yields no snapshots.
func (s *Store) walk(subdir string, visit func(*report.Snapshot)) error {
	entries, err := os.ReadDir(s.CategoryDir(subdir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: read %s: %w", subdir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		snap, err := s.Load(filepath.Join(s.CategoryDir(subdir), entry.Name()))
		if err != nil {
			s.logger.Warn("store: skipping unreadable snapshot", "dir", entry.Name(), "error", err)
			continue
		}
		if snap.Timestamp.IsZero() {
			continue
		}
		visit(snap)
	}
	return nil
}

// firstMatch returns the lexically first file in dir whose name matches
// pattern. The pattern applies to names only: dir itself may contain glob
// metacharacters (the diff label brackets in snapshot directory names).
func firstMatch(dir, pattern string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0])
}
