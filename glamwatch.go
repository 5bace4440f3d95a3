// Package glamwatch watches GLAM Tools (glamorgan) media-usage reports for
// a configured set of Wikimedia Commons categories. Each run captures the
// rendered report per category, persists it as an immutable timestamped
// snapshot, and diffs it against the previous snapshot (and, on the first
// day of a month, against the earliest snapshot of the reference month) to
// surface added/removed media files, added/removed page usages, and
// movement in the aggregate counters.
//
// glamwatch observes, it does not judge: the third-party statistics are
// recorded and diffed as-is.
package glamwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hazyhaar/glamwatch/internal/browser"
	"github.com/hazyhaar/glamwatch/internal/capture"
	"github.com/hazyhaar/glamwatch/internal/history"
	"github.com/hazyhaar/glamwatch/internal/store"
	"github.com/hazyhaar/glamwatch/report"
)

// Source produces one rendered report document per request. The default
// source drives a Chrome instance through the glamorgan form; tests swap
// in a canned document.
type Source interface {
	Capture(ctx context.Context, req capture.Request) (*capture.Result, error)
}

// RunResult is what one category's run hands back to the orchestration
// layer: where the snapshot went and how big the usage-level change was.
type RunResult struct {
	Category     string
	Dir          string
	DiffLabel    string
	UsageChanges int
}

// Runner executes capture runs for all configured categories.
type Runner struct {
	cfg    *Config
	store  *store.Store
	hist   *history.Log
	source Source
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithSource replaces the browser-backed capture source.
func WithSource(s Source) Option {
	return func(r *Runner) { r.source = s }
}

// WithHistory enables run-history recording.
func WithHistory(l *history.Log) Option {
	return func(r *Runner) { r.hist = l }
}

// WithClock overrides the run clock.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner over the configured snapshot store.
func NewRunner(cfg *Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	// A hand-built Config may not have been through LoadConfigFile; the
	// optional booleans must be non-nil before RunAll dereferences them.
	cfg.ApplyDefaults()
	r := &Runner{
		cfg:    cfg,
		store:  store.New(cfg.ReportsDir, logger),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Store exposes the runner's snapshot store (for the serve mode).
func (r *Runner) Store() *store.Store { return r.store }

// RunAll captures every configured category. A failing category is logged
// and does not stop the others; the joined error reports all failures.
func (r *Runner) RunAll(ctx context.Context) ([]RunResult, error) {
	src := r.source
	if src == nil {
		b, err := browser.Start(ctx, browser.Config{
			RemoteURL:    r.cfg.Browser.Remote,
			Headless:     *r.cfg.Browser.Headless,
			WindowWidth:  r.cfg.Browser.WindowWidth,
			WindowHeight: r.cfg.Browser.WindowHeight,
			Logger:       r.logger,
		})
		if err != nil {
			return nil, err
		}
		defer b.Close()

		src = &browserSource{
			browser: b,
			capt: capture.New(capture.Config{
				FormURL:      r.cfg.GlamtoolsURL,
				Timeout:      r.cfg.Capture.Timeout,
				PollInterval: r.cfg.Capture.PollInterval,
				StableChecks: r.cfg.Capture.StableChecks,
				SettleDelay:  r.cfg.Capture.SettleDelay,
				Screenshot:   *r.cfg.Capture.Screenshot,
				Logger:       r.logger,
			}),
		}
	}

	var results []RunResult
	var errs []error
	for _, cat := range r.cfg.Categories {
		res, err := r.runCategory(ctx, src, cat)
		if err != nil {
			r.logger.Error("run failed", "category", cat.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", cat.Name, err))
			continue
		}
		results = append(results, *res)
	}
	return results, errors.Join(errs...)
}

type browserSource struct {
	browser *browser.Browser
	capt    *capture.Capturer
}

func (s *browserSource) Capture(ctx context.Context, req capture.Request) (*capture.Result, error) {
	return s.capt.Capture(ctx, s.browser, req)
}

// runCategory performs one capture run: resolve the baseline, capture,
// extract, diff, persist, render the comparison reports, and record the
// run in history.
func (r *Runner) runCategory(ctx context.Context, src Source, cat CategoryConfig) (*RunResult, error) {
	started := r.now()
	target := report.TargetPeriod(started)
	log := r.logger.With("category", cat.Name, "period", target.String())

	previous, err := r.store.Latest(cat.Subdir)
	if err != nil {
		// A broken store enumeration is a missing baseline, not a failed run.
		log.Warn("previous snapshot lookup failed, diffing without baseline", "error", err)
		previous = nil
	}

	captured, err := src.Capture(ctx, capture.Request{
		Category: cat.Name,
		Depth:    cat.Depth,
		Year:     target.YearString(),
		Month:    target.FormMonth(),
	})
	if err != nil {
		r.record(ctx, cat, target, history.Run{Success: false, Error: err.Error()}, started)
		return nil, err
	}

	summary, files := report.Extract(captured.HTML)
	current := &report.Snapshot{Summary: summary, Files: files, Timestamp: started}

	diff := report.Diff(current, previous)
	label := diff.Label()

	previousDir := ""
	if previous != nil {
		previousDir = filepath.Base(previous.Path)
	}

	dir, err := r.store.Write(cat.Subdir, store.WriteRequest{
		Category:     cat.Name,
		Depth:        cat.Depth,
		Period:       target,
		Timestamp:    started,
		HTML:         captured.HTML,
		Screenshot:   captured.Screenshot,
		PageURL:      captured.PageURL,
		PageTitle:    captured.PageTitle,
		Summary:      summary,
		Files:        files,
		DiffLabel:    label,
		PreviousDir:  previousDir,
		SummaryDiffs: diff.SummaryDiffs(),
		UsageChanges: report.UsageChanges{
			Added:   len(diff.AddedUsages),
			Removed: len(diff.RemovedUsages),
			Total:   diff.TotalUsageChanges(),
		},
	})
	if err != nil {
		r.record(ctx, cat, target, history.Run{Success: false, Error: err.Error()}, started)
		return nil, err
	}
	log.Info("snapshot written", "dir", dir, "label", label, "files", len(files))

	heading := "Changes since first capture (no previous report):"
	if previous != nil {
		heading = fmt.Sprintf("Changes compared to previous report (%s):", previousDir)
	}
	if err := r.store.WriteReport(dir, "changes_summary.txt", report.Render(heading, current, diff)); err != nil {
		log.Warn("changes summary write failed", "error", err)
	}

	if started.Day() == 1 {
		r.writeMonthlyComparison(dir, current, cat, target, log)
	}

	r.record(ctx, cat, target, history.Run{
		ReportDir:    filepath.Base(dir),
		DiffLabel:    label,
		UsageChanges: diff.TotalUsageChanges(),
		Success:      true,
	}, started)

	return &RunResult{
		Category:     cat.Name,
		Dir:          dir,
		DiffLabel:    label,
		UsageChanges: diff.TotalUsageChanges(),
	}, nil
}

// writeMonthlyComparison renders the month-over-month report against the
// earliest snapshot of the reference month. Missing reference data skips
// the report, nothing more.
func (r *Runner) writeMonthlyComparison(dir string, current *report.Snapshot, cat CategoryConfig, target report.Period, log *slog.Logger) {
	ref := target.Previous()
	reference, err := r.store.EarliestInMonth(cat.Subdir, ref)
	if err != nil {
		log.Warn("reference month lookup failed", "month", ref.String(), "error", err)
		return
	}
	if reference == nil {
		log.Info("no stored report for reference month, skipping monthly summary", "month", ref.String())
		return
	}

	heading := fmt.Sprintf("Month-over-month changes compared to earliest report from %s (%s):",
		ref.String(), filepath.Base(reference.Path))
	diff := report.Diff(current, reference)
	if err := r.store.WriteReport(dir, "previous_month_summary.txt", report.Render(heading, current, diff)); err != nil {
		log.Warn("monthly summary write failed", "error", err)
	}
}

// record logs the run to history when history is enabled.
func (r *Runner) record(ctx context.Context, cat CategoryConfig, target report.Period, run history.Run, started time.Time) {
	if r.hist == nil {
		return
	}
	run.Category = cat.Name
	run.Year = target.YearString()
	run.Month = target.MonthString()
	run.Duration = r.now().Sub(started)
	r.hist.Record(ctx, run)
}
