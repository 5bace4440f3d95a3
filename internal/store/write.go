package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/glamwatch/report"
)

// WriteRequest carries everything one capture run persists.
type WriteRequest struct {
	Category  string
	Depth     string
	Period    report.Period
	Timestamp time.Time // run timestamp, UTC

	HTML       string // raw rendered document, stored verbatim
	Screenshot []byte // optional PNG
	PageURL    string
	PageTitle  string

	Summary report.Summary
	Files   []report.MediaFileEntry

	DiffLabel    string
	PreviousDir  string // name of the previous report directory, if any
	SummaryDiffs map[string]int
	UsageChanges report.UsageChanges
}

// Write creates the snapshot directory for one run and persists the raw
// document, optional screenshot, markdown archive, and metadata record.
// Directory creation uses not-already-exists semantics: a name collision is
// an error, because silently dropping a capture would create a gap in
// history. Screenshot and markdown archive are best effort; the raw HTML
// and the metadata record are not.
func (s *Store) Write(subdir string, req WriteRequest) (string, error) {
	ts := req.Timestamp.UTC().Format(TimestampLayout)
	name := fmt.Sprintf("%s_%s_%s", req.Period.String(), ts, req.DiffLabel)

	categoryDir := s.CategoryDir(subdir)
	if err := os.MkdirAll(categoryDir, 0o755); err != nil {
		return "", fmt.Errorf("store: create category dir: %w", err)
	}

	dir := filepath.Join(categoryDir, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("store: create snapshot dir: %w", err)
	}

	htmlPath := filepath.Join(dir, "glamtools_results_"+ts+".html")
	if err := os.WriteFile(htmlPath, []byte(req.HTML), 0o644); err != nil {
		return "", fmt.Errorf("store: write document: %w", err)
	}

	if len(req.Screenshot) > 0 {
		shotPath := filepath.Join(dir, "glamtools_screenshot_"+ts+".png")
		if err := os.WriteFile(shotPath, req.Screenshot, 0o644); err != nil {
			s.logger.Warn("store: screenshot write failed", "dir", name, "error", err)
		}
	}

	if md, err := markdownArchive(req.HTML); err != nil {
		s.logger.Warn("store: markdown archive failed", "dir", name, "error", err)
	} else if md != "" {
		mdPath := filepath.Join(dir, "report_"+ts+".md")
		if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
			s.logger.Warn("store: markdown write failed", "dir", name, "error", err)
		}
	}

	meta := report.Metadata{
		Category:          req.Category,
		Depth:             req.Depth,
		Year:              req.Period.YearString(),
		Month:             req.Period.MonthString(),
		Timestamp:         req.Timestamp.UTC().Format(time.RFC3339),
		URL:               req.PageURL,
		PageTitle:         req.PageTitle,
		Summary:           &req.Summary,
		Files:             req.Files,
		ReportDirectory:   name,
		PreviousDirectory: req.PreviousDir,
		DiffLabel:         req.DiffLabel,
		SummaryDiffs:      req.SummaryDiffs,
		UsageChanges:      &req.UsageChanges,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("store: encode metadata: %w", err)
	}
	metaPath := filepath.Join(dir, "metadata_"+ts+".json")
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return "", fmt.Errorf("store: write metadata: %w", err)
	}

	return dir, nil
}

// WriteReport writes a rendered comparison report into a snapshot directory.
func (s *Store) WriteReport(dir, filename string, lines []string) error {
	body := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(body), 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", filename, err)
	}
	return nil
}
