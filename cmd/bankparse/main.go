// Command bankparse extracts, standardizes, and reconciles bank statement
// PDFs driven by account rule files, then merges the batch output into the
// relational store and optional CSV/XLSX exports.
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
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boscorat/bankparse/internal/batch"
	"github.com/boscorat/bankparse/internal/export"
	"github.com/boscorat/bankparse/internal/rules"
	"github.com/boscorat/bankparse/internal/statement"
	"github.com/boscorat/bankparse/internal/store"
	"github.com/boscorat/bankparse/pkg/config"
	"github.com/boscorat/bankparse/pkg/cron"
	"github.com/boscorat/bankparse/pkg/db"
	"github.com/boscorat/bankparse/pkg/metrics"
)

const usage = `Usage:
  bankparse process <path|glob> [flags]   process statement PDFs
  bankparse migrate                       run store migrations
  bankparse config init <dir>             write editable default rule files

Process flags:
  --company KEY    restrict account resolution to one company
  --account KEY    skip resolution, process as this account
  --config DIR     load rule files from DIR (falls back to embedded defaults)
  --turbo          process with one worker per CPU
  --workers N      process with exactly N workers
  --rename         rename successfully reconciled files to their canonical name
  --store          merge the batch into the relational store
  --csv DIR        export statement heads and lines as CSV into DIR
  --xlsx FILE      export the batch as an Excel workbook
  --watch CRON     keep running, re-processing the path on a cron schedule
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading configuration", "error", err)
		return 1
	}

	switch args[0] {
	case "process":
		return runProcess(args[1:], cfg, logger)
	case "migrate":
		return runMigrate(cfg, logger)
	case "config":
		return runConfig(args[1:], logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
}

func runProcess(args []string, cfg *config.Config, logger *slog.Logger) int {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	var (
		company   = fs.String("company", "", "restrict resolution to one company key")
		account   = fs.String("account", "", "process as this account key")
		configDir = fs.String("config", "", "rule file directory")
		turbo     = fs.Bool("turbo", false, "one worker per CPU")
		workers   = fs.Int("workers", 0, "exact worker count")
		rename    = fs.Bool("rename", false, "rename reconciled files")
		toStore   = fs.Bool("store", false, "merge batch into the store")
		csvDir    = fs.String("csv", "", "CSV export directory")
		xlsxPath  = fs.String("xlsx", "", "XLSX export file")
		watch     = fs.String("watch", "", "cron schedule for watch mode")
	)
	fs.Parse(args) //nolint:errcheck // ExitOnError
	if fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	source := fs.Arg(0)

	ruleDir := *configDir
	if ruleDir == "" {
		ruleDir = cfg.Processing.ConfigDir
	}
	rs, err := rules.Load(ruleDir)
	if err != nil {
		logger.Error("loading rules", "error", err)
		return 1
	}

	poolSize := 1
	switch {
	case *workers > 0:
		poolSize = *workers
	case *turbo && cfg.Processing.Workers > 0:
		poolSize = cfg.Processing.Workers
	case *turbo:
		poolSize = batch.Workers()
	}

	runner := batch.NewRunner(statement.NewProcessor(rs, logger), logger, poolSize)

	var st *store.Store
	if *toStore {
		database, err := db.New(db.Config{DSN: cfg.Database.DSN(), MaxConns: 5}, logger)
		if err != nil {
			logger.Error("connecting store", "error", err)
			return 1
		}
		defer database.Close()
		st = store.New(database.Pool, logger)
	}

	if cfg.Observability.MetricsEnabled {
		go serveMetrics(cfg.Observability.MetricsPort, logger)
	}

	ctx := context.Background()
	runOnce := func() int {
		files, err := expandInputs(source)
		if err != nil {
			logger.Error("resolving inputs", "source", source, "error", err)
			return 1
		}
		if len(files) == 0 {
			logger.Error("no statement files found", "source", source)
			return 1
		}

		b := runner.Run(ctx, source, files, *company, *account)

		if *rename {
			renameOutcomes(b, logger)
		}
		if st != nil {
			if err := st.MergeBatch(ctx, b); err != nil {
				logger.Error("merging batch", "error", err)
				return 1
			}
		}
		if *csvDir != "" || *xlsxPath != "" {
			statements := extractedStatements(b)
			if *csvDir != "" {
				if err := export.WriteCSV(*csvDir, statements); err != nil {
					logger.Error("exporting csv", "error", err)
					return 1
				}
			}
			if *xlsxPath != "" {
				if err := export.WriteXLSX(*xlsxPath, statements); err != nil {
					logger.Error("exporting xlsx", "error", err)
					return 1
				}
			}
		}

		printSummary(b)
		return 0
	}

	if *watch == "" {
		return runOnce()
	}

	scheduler := cron.NewScheduler(logger)
	if err := scheduler.Start(*watch, func() { runOnce() }); err != nil {
		logger.Error("starting watch schedule", "schedule", *watch, "error", err)
		return 1
	}
	// run immediately, then on schedule until interrupted
	runOnce()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	<-scheduler.Stop().Done()
	return 0
}

func runMigrate(cfg *config.Config, logger *slog.Logger) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := store.Migrate(ctx, cfg.Database.DSN()); err != nil {
		logger.Error("running migrations", "error", err)
		return 1
	}
	logger.Info("store migrations up to date")
	return 0
}

func runConfig(args []string, logger *slog.Logger) int {
	if len(args) != 2 || args[0] != "init" {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	written, err := rules.WriteDefaults(args[1], false)
	if err != nil {
		logger.Error("writing default rules", "error", err)
		return 1
	}
	for _, path := range written {
		fmt.Println(path)
	}
	logger.Info("rule files written", "dir", args[1], "files", len(written))
	return 0
}

// expandInputs resolves a directory, glob, or single file into the ordered
// list of PDF paths to process.
func expandInputs(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err == nil && info.IsDir() {
		return sortedGlob(filepath.Join(source, "*.pdf"))
	}
	if err == nil {
		return []string{source}, nil
	}
	return sortedGlob(source)
}

func sortedGlob(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// renameOutcomes moves each reconciled file to its canonical basename inside
// its own directory. Failures are reported per file, never fatal.
func renameOutcomes(b *batch.Batch, logger *slog.Logger) {
	for _, out := range b.Outcomes {
		if !out.Success || out.Statement == nil || out.Statement.RenameTarget == "" {
			continue
		}
		target := filepath.Join(filepath.Dir(out.File), out.Statement.RenameTarget)
		if target == out.File {
			continue
		}
		if err := os.Rename(out.File, target); err != nil {
			logger.Warn("rename failed", "file", out.File, "target", target, "error", err)
			continue
		}
		logger.Info("file renamed", "file", out.File, "target", target)
	}
}

// extractedStatements gathers every outcome that produced statement data,
// including reconciliation failures, preserving batch order.
func extractedStatements(b *batch.Batch) []*statement.Statement {
	var statements []*statement.Statement
	for _, out := range b.Outcomes {
		if out.Statement != nil {
			statements = append(statements, out.Statement)
		}
	}
	return statements
}

func printSummary(b *batch.Batch) {
	fmt.Printf("batch %s: %d documents, %d reconciled, %d failed in %s\n",
		b.ID, b.PDFCount, b.SuccessCount, b.ErrorCount, b.Duration.Round(time.Millisecond))
	for _, out := range b.Outcomes {
		status := "ok"
		detail := ""
		if !out.Success {
			switch {
			case out.ErrorCAB:
				status = "cab"
			default:
				status = "err"
			}
			detail = " " + out.ErrorMessage
		} else if out.Statement != nil {
			detail = " " + out.Statement.AccountID
		}
		fmt.Printf("  [%s] %s%s\n", status, out.File, strings.TrimRight(detail, " "))
	}
}

func serveMetrics(port int, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}
