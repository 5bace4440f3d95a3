package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glamwatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, `
categories:
  - name: "Media supplied by Example Archive"
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.GlamtoolsURL != DefaultGlamtoolsURL {
		t.Errorf("url = %q", cfg.GlamtoolsURL)
	}
	if cfg.ReportsDir != "reports" {
		t.Errorf("reports_dir = %q", cfg.ReportsDir)
	}
	if cfg.Capture.Timeout != 2*time.Minute {
		t.Errorf("timeout = %v", cfg.Capture.Timeout)
	}
	if cfg.Capture.StableChecks != 5 {
		t.Errorf("stable_checks = %d", cfg.Capture.StableChecks)
	}
	if !*cfg.Browser.Headless {
		t.Error("headless must default to true")
	}

	cat := cfg.Categories[0]
	if cat.Depth != "12" {
		t.Errorf("depth = %q", cat.Depth)
	}
	if cat.Subdir != "media-supplied-by-example-archive" {
		t.Errorf("subdir = %q", cat.Subdir)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
reports_dir: /srv/glam/reports
capture:
  timeout: 30s
browser:
  headless: false
categories:
  - name: "Archive A"
    depth: "4"
    subdir: archive-a
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Capture.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Capture.Timeout)
	}
	if *cfg.Browser.Headless {
		t.Error("headless override lost")
	}
	if cfg.Categories[0].Depth != "4" {
		t.Errorf("depth = %q", cfg.Categories[0].Depth)
	}
}

func TestValidate(t *testing.T) {
	var empty Config
	empty.ApplyDefaults()
	if err := empty.Validate(); err == nil {
		t.Error("config without categories must not validate")
	}

	dup := Config{Categories: []CategoryConfig{
		{Name: "One", Subdir: "same"},
		{Name: "Two", Subdir: "same"},
	}}
	dup.ApplyDefaults()
	if err := dup.Validate(); err == nil {
		t.Error("duplicate subdirs must not validate")
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Media supplied by Universitätsarchiv St. Gallen": "media-supplied-by-universit-tsarchiv-st-gallen",
		"Archive A":  "archive-a",
		"  spaces  ": "spaces",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
