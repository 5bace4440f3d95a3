package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/glamwatch/internal/config"
	"github.com/hazyhaar/glamwatch/internal/store"
	"github.com/hazyhaar/glamwatch/report"
)

func intp(n int) *int { return &n }

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir(), nil)
	cats := []config.CategoryConfig{
		{Name: "Archive A", Depth: "12", Subdir: "archive-a"},
	}
	return New(st, cats, nil), st
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCategories(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/categories")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var cats []map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &cats); err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0]["subdir"] != "archive-a" {
		t.Errorf("categories = %v", cats)
	}
}

func TestLatest(t *testing.T) {
	srv, st := testServer(t)

	rec := get(t, srv, "/categories/archive-a/latest")
	if rec.Code != http.StatusNotFound {
		t.Errorf("empty store: status = %d, want 404", rec.Code)
	}

	dir, err := st.Write("archive-a", store.WriteRequest{
		Category:  "Archive A",
		Depth:     "12",
		Period:    report.Period{Year: 2024, Month: 3},
		Timestamp: time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC),
		HTML:      "<html><body>report</body></html>",
		Summary:   report.Summary{FilesUsed: intp(7)},
		DiffLabel: "[0]",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.WriteReport(dir, "changes_summary.txt", []string{"heading", "No changes detected."}); err != nil {
		t.Fatal(err)
	}

	rec = get(t, srv, "/categories/archive-a/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp struct {
		Directory string          `json:"directory"`
		Metadata  report.Metadata `json:"metadata"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Directory != "2024-03_20240402_090000_[0]" {
		t.Errorf("directory = %q", resp.Directory)
	}
	if resp.Metadata.Summary == nil || resp.Metadata.Summary.FilesUsed == nil || *resp.Metadata.Summary.FilesUsed != 7 {
		t.Errorf("metadata = %+v", resp.Metadata)
	}

	rec = get(t, srv, "/categories/archive-a/latest/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No changes detected.") {
		t.Errorf("report body = %q", rec.Body)
	}
}

func TestUnknownCategory(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/categories/nope/latest")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
