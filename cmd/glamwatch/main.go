// Command glamwatch captures GLAM Tools media-usage reports for the
// configured Commons categories, stores them as timestamped snapshots, and
// writes change reports against the previous capture.
//
// Usage:
//
//	glamwatch -config glamwatch.yaml             # capture all categories
//	glamwatch -config glamwatch.yaml -category "Archive A"
//	glamwatch -config glamwatch.yaml -serve      # read-only HTTP API
//
// On success the aggregate change label (e.g. "[+3]") is printed to
// stdout, for the scheduler to embed in a commit message.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hazyhaar/glamwatch"
	"github.com/hazyhaar/glamwatch/internal/api"
	"github.com/hazyhaar/glamwatch/internal/history"
	"github.com/hazyhaar/glamwatch/report"
)

func main() {
	configPath := flag.String("config", "glamwatch.yaml", "path to glamwatch.yaml config file")
	category := flag.String("category", "", "capture only this configured category")
	reportsDir := flag.String("reports", "", "override the reports directory")
	serve := flag.Bool("serve", false, "serve the read-only API instead of capturing")
	addr := flag.String("addr", "", "listen address for -serve (overrides config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *category, *reportsDir, *serve, *addr); err != nil {
		logger.Error("glamwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, category, reportsDir string, serve bool, addr string) error {
	cfg, err := glamwatch.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if reportsDir != "" {
		cfg.ReportsDir = reportsDir
	}
	if category != "" {
		kept := cfg.Categories[:0]
		for _, c := range cfg.Categories {
			if c.Name == category {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			return fmt.Errorf("category %q is not configured", category)
		}
		cfg.Categories = kept
	}

	if serve {
		return runServe(ctx, logger, cfg, addr)
	}
	return runCapture(ctx, logger, cfg)
}

func runCapture(ctx context.Context, logger *slog.Logger, cfg *glamwatch.Config) error {
	opts := []glamwatch.Option{}

	histPath := cfg.HistoryDB
	if histPath == "" {
		histPath = filepath.Join(cfg.ReportsDir, "glamwatch.db")
	}
	if db, err := history.Open(histPath); err != nil {
		// History is an optional convenience; a capture must not die for it.
		logger.Warn("history database unavailable", "path", histPath, "error", err)
	} else {
		defer db.Close()
		opts = append(opts, glamwatch.WithHistory(history.NewLog(db, logger)))
	}

	runner := glamwatch.NewRunner(cfg, logger, opts...)
	results, err := runner.RunAll(ctx)

	total := 0
	for _, res := range results {
		total += res.UsageChanges
		logger.Info("category captured",
			"category", res.Category, "dir", res.Dir,
			"label", res.DiffLabel, "usage_changes", res.UsageChanges)
	}
	if len(results) > 0 {
		fmt.Println(report.FormatLabel(total))
	}
	return err
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *glamwatch.Config, addr string) error {
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	runner := glamwatch.NewRunner(cfg, logger)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.New(runner.Store(), cfg.Categories, logger).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving snapshot API", "addr", addr, "reports", cfg.ReportsDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}
