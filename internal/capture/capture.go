// Package capture drives the glamorgan form and waits for the rendered
// report. glamorgan renders client-side and can take minutes to populate
// its result table, so the wait is a stabilization loop over the page
// source rather than a single load event.
//
// capture hands the core exactly one opaque rendered document per run; it
// does not interpret the report beyond the markers that signal rendering
// progress.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/glamwatch/internal/browser"
)

// Rendering markers in the glamorgan page source.
const (
	markerCategoryTree = "files in category tree"
	markerTable        = "table table-striped"
	markerViews        = "file views in"
	markerTruncated    = "Showing only the top"
)

// Config configures the capture wait behaviour.
type Config struct {
	// FormURL is the glamorgan form page.
	FormURL string

	// Timeout bounds the whole wait for results.
	Timeout time.Duration

	// PollInterval between page-source checks.
	PollInterval time.Duration

	// StableChecks is how many consecutive equal-length polls count as
	// "rendering finished".
	StableChecks int

	// SettleDelay is the final buffer after stabilization.
	SettleDelay time.Duration

	// Screenshot captures a full-page PNG alongside the HTML.
	Screenshot bool

	Logger *slog.Logger
}

// Request identifies one report to capture.
type Request struct {
	Category string
	Depth    string
	Year     string // form value, e.g. "2024"
	Month    string // form value without zero padding, e.g. "3"
}

// Result is one captured report.
type Result struct {
	HTML       string
	Screenshot []byte
	PageURL    string
	PageTitle  string
}

// Capturer submits glamorgan requests through a browser.
type Capturer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Capturer.
func New(cfg Config) *Capturer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Capturer{cfg: cfg, logger: cfg.Logger}
}

// Capture fills the form, submits it, waits for the report to finish
// rendering, expands the truncated file list when offered, and returns the
// final page source.
func (c *Capturer) Capture(ctx context.Context, b *browser.Browser, req Request) (*Result, error) {
	log := c.logger.With("category", req.Category, "period", req.Year+"-"+req.Month)

	page, err := b.OpenPage(ctx, c.cfg.FormURL)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := c.fillForm(ctx, page, req); err != nil {
		return nil, err
	}
	log.Info("capture: form submitted, waiting for results")

	if err := c.waitForResults(ctx, page, log); err != nil {
		return nil, err
	}

	if err := c.expandFullResults(ctx, page, log); err != nil {
		// A truncated list is still a usable report.
		log.Warn("capture: could not expand to full file list", "error", err)
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("capture: read page source: %w", err)
	}

	res := &Result{HTML: html}
	if info, err := page.Context(ctx).Info(); err == nil {
		res.PageURL = info.URL
		res.PageTitle = info.Title
	}
	if c.cfg.Screenshot {
		shot, err := page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			log.Warn("capture: screenshot failed", "error", err)
		} else {
			res.Screenshot = shot
		}
	}
	return res, nil
}

// fillForm enters category, depth, year and month and submits.
func (c *Capturer) fillForm(ctx context.Context, page *rod.Page, req Request) error {
	fields := []struct {
		selector string
		value    string
	}{
		{"#category", req.Category},
		{"#depth", req.Depth},
		{"#year", req.Year},
		{"#month", req.Month},
	}
	for _, f := range fields {
		el, err := page.Context(ctx).Element(f.selector)
		if err != nil {
			return fmt.Errorf("capture: find %s: %w", f.selector, err)
		}
		if err := el.SelectAllText(); err != nil {
			return fmt.Errorf("capture: clear %s: %w", f.selector, err)
		}
		if err := el.Input(f.value); err != nil {
			return fmt.Errorf("capture: fill %s: %w", f.selector, err)
		}
	}

	submit, err := page.Context(ctx).Element(`input[type="submit"]`)
	if err != nil {
		return fmt.Errorf("capture: find submit: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("capture: submit: %w", err)
	}
	return nil
}

// waitForResults polls the page source until the result table with view
// data is present and its size has been stable for StableChecks polls.
func (c *Capturer) waitForResults(ctx context.Context, page *rod.Page, log *slog.Logger) error {
	deadline := time.Now().Add(c.cfg.Timeout)
	lastLen := 0
	stable := 0
	foundTree := false

	for time.Now().Before(deadline) {
		if err := sleepCtx(ctx, c.cfg.PollInterval); err != nil {
			return err
		}

		html, err := page.Context(ctx).HTML()
		if err != nil {
			log.Debug("capture: page source read failed, retrying", "error", err)
			continue
		}
		lower := strings.ToLower(html)

		if !foundTree && strings.Contains(lower, markerCategoryTree) {
			foundTree = true
			log.Info("capture: category tree resolved")
		}

		if !strings.Contains(lower, markerTable) || !strings.Contains(lower, markerViews) {
			continue
		}

		if len(html) == lastLen {
			stable++
			if stable >= c.cfg.StableChecks {
				log.Info("capture: content stabilized", "bytes", len(html))
				return sleepCtx(ctx, c.cfg.SettleDelay)
			}
		} else {
			stable = 0
			lastLen = len(html)
		}
	}

	return fmt.Errorf("capture: results did not stabilize within %s", c.cfg.Timeout)
}

// expandFullResults clicks the "show all" link when glamorgan reports a
// truncated file list, and waits for the truncation notice to disappear.
func (c *Capturer) expandFullResults(ctx context.Context, page *rod.Page, log *slog.Logger) error {
	html, err := page.Context(ctx).HTML()
	if err != nil {
		return err
	}
	if !strings.Contains(html, markerTruncated) {
		return nil
	}

	link, err := page.Context(ctx).Timeout(10 * time.Second).ElementR("a", "show all")
	if err != nil {
		return fmt.Errorf("find show-all link: %w", err)
	}
	if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click show-all link: %w", err)
	}
	log.Info("capture: expanding to full file list")

	expandDeadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(expandDeadline) {
		if err := sleepCtx(ctx, c.cfg.PollInterval); err != nil {
			return err
		}
		html, err := page.Context(ctx).HTML()
		if err != nil {
			continue
		}
		if !strings.Contains(html, markerTruncated) {
			return sleepCtx(ctx, c.cfg.SettleDelay)
		}
	}
	return fmt.Errorf("file list did not expand within 30s")
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
