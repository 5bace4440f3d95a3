package report

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// fileLinkMarker is the canonical shape of a Commons file link. A table row
// containing such a link is a file header row; everything after it belongs
// to that file until the next header.
const fileLinkMarker = "commons.wikimedia.org/wiki/File"

var (
	filesPattern = regexp.MustCompile(`(?i)([\d,]+)\s+files were viewed,\s*out of\s*([\d,]+)\s+used`)
	pagesPattern = regexp.MustCompile(`(?i)([\d,]+)\s+pages on\s+([\d,]+)\s+wikis`)
	viewsPattern = regexp.MustCompile(`(?i)([\d,]+)\s+file views`)
)

// Extract parses a rendered glamorgan report into a summary and the list of
// media files with their per-page usages. It never fails: malformed or empty
// input degrades to an empty summary and no files.
func Extract(html string) (Summary, []MediaFileEntry) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Summary{}, nil
	}
	return extractSummary(doc), extractFiles(doc)
}

// extractSummary scans div text for the three counter patterns. Each pattern
// captures at most once: the first match wins, later repeats are ignored.
func extractSummary(doc *goquery.Document) Summary {
	var sum Summary
	doc.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		text := strings.TrimSpace(div.Text())
		if text == "" {
			return true
		}

		if sum.FilesViewed == nil {
			if m := filesPattern.FindStringSubmatch(text); m != nil {
				sum.FilesViewed = parseIntPtr(m[1])
				sum.FilesUsed = parseIntPtr(m[2])
			}
		}
		if sum.PagesUsed == nil {
			if m := pagesPattern.FindStringSubmatch(text); m != nil {
				sum.PagesUsed = parseIntPtr(m[1])
				sum.Wikis = parseIntPtr(m[2])
			}
		}
		if sum.Views == nil {
			if m := viewsPattern.FindStringSubmatch(text); m != nil {
				sum.Views = parseIntPtr(m[1])
			}
		}

		return sum.FilesViewed == nil || sum.PagesUsed == nil || sum.Views == nil
	})
	return sum
}

// extractFiles consumes the result table in document order. A row with a
// Commons file link opens a new file entry; any other row is a usage of the
// most recently opened file. Rows before the first header and usage rows
// with neither wiki nor page title are noise.
func extractFiles(doc *goquery.Document) []MediaFileEntry {
	table := doc.Find("#output table.table-striped").First()
	if table.Length() == 0 {
		return nil
	}

	var files []MediaFileEntry
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if link := findFileLink(row); link != nil {
			href, _ := link.Attr("href")
			files = append(files, MediaFileEntry{
				Title: strings.TrimSpace(link.Text()),
				URL:   href,
				Views: cellViews(row),
			})
			return
		}
		if len(files) == 0 {
			return
		}
		if usage, ok := usageFromRow(row); ok {
			current := &files[len(files)-1]
			current.Usages = append(current.Usages, usage)
		}
	})
	return files
}

// findFileLink returns the row's Commons file link, or nil.
func findFileLink(row *goquery.Selection) *goquery.Selection {
	var link *goquery.Selection
	row.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if ok && strings.Contains(href, fileLinkMarker) {
			link = a
			return false
		}
		return true
	})
	return link
}

// usageFromRow reads a usage row: wiki in the first cell, page link in the
// second, views in the third. ok=false marks a noise row.
func usageFromRow(row *goquery.Selection) (UsageEntry, bool) {
	cells := row.Find("td, th")
	if cells.Length() == 0 {
		return UsageEntry{}, false
	}

	usage := UsageEntry{
		Wiki:  strings.TrimSpace(cells.Eq(0).Text()),
		Views: cellViews(row),
	}

	if a := row.Find("a").First(); a.Length() > 0 {
		usage.Title = strings.TrimSpace(a.Text())
		usage.URL, _ = a.Attr("href")
	} else if cells.Length() >= 2 {
		usage.Title = strings.TrimSpace(cells.Eq(1).Text())
	}

	if usage.Wiki == "" && usage.Title == "" {
		return UsageEntry{}, false
	}
	return usage, true
}

// cellViews parses the view count from the third cell of a row.
func cellViews(row *goquery.Selection) *int {
	cells := row.Find("td, th")
	if cells.Length() < 3 {
		return nil
	}
	return parseIntPtr(strings.TrimSpace(cells.Eq(2).Text()))
}
