// Package batch orchestrates a processing run over many documents: fan-out
// across a bounded worker pool (or sequentially), per-document failure
// isolation, and an input-order-preserving gather. Workers share no mutable
// state; each produces a self-contained outcome, and anything escaping a
// worker is recovered at the batch boundary rather than propagated to
// sibling documents.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/boscorat/bankparse/internal/statement"
	"github.com/boscorat/bankparse/pkg/metrics"
)

// DocumentProcessor runs one document's full processing pass.
type DocumentProcessor interface {
	ProcessFile(path, companyHint, accountHint string) (*statement.Statement, error)
}

// Outcome is the per-document result record of a batch.
type Outcome struct {
	// BatchLine is the document's 1-based position in the input, preserved
	// regardless of completion order.
	BatchLine int
	File      string
	// Statement carries the extracted data, also for documents that failed
	// reconciliation; nil when processing errored before producing one.
	Statement *statement.Statement
	Success   bool
	// ErrorCAB marks a reconciliation failure: data extracted but the checks
	// and balances did not pass.
	ErrorCAB bool
	// ErrorConfig marks a configuration-class failure: unresolved account,
	// missing rules, or anything recovered at the worker boundary.
	ErrorConfig  bool
	ErrorMessage string
	Duration     time.Duration
}

// Batch is one completed run, immutable once Run returns.
type Batch struct {
	ID          string
	Source      string
	ProcessTime time.Time
	Duration    time.Duration
	Outcomes    []Outcome

	PDFCount     int
	SuccessCount int
	ErrorCount   int
}

// Runner executes batches against a document processor.
type Runner struct {
	processor DocumentProcessor
	logger    *slog.Logger
	workers   int
}

// NewRunner builds a batch runner. workers <= 1 processes sequentially;
// workers == 0 with turbo callers should pass Workers() instead.
func NewRunner(processor DocumentProcessor, logger *slog.Logger, workers int) *Runner {
	return &Runner{processor: processor, logger: logger, workers: workers}
}

// Workers returns the default pool size for turbo runs.
func Workers() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

// Run processes every file and gathers all outcomes in input order. Per
// document failures never abort the batch; the orchestrator blocks until all
// dispatched documents complete.
func (r *Runner) Run(ctx context.Context, source string, files []string, companyHint, accountHint string) *Batch {
	start := time.Now()
	b := &Batch{
		ID:          uuid.NewString(),
		Source:      source,
		ProcessTime: start,
		Outcomes:    make([]Outcome, len(files)),
		PDFCount:    len(files),
	}
	logger := r.logger.With("batch", b.ID)
	logger.Info("batch started", "documents", len(files), "workers", r.workers)

	if r.workers > 1 {
		var g errgroup.Group
		g.SetLimit(r.workers)
		for i := range files {
			g.Go(func() error {
				b.Outcomes[i] = r.processOne(ctx, i, files[i], companyHint, accountHint)
				return nil
			})
		}
		g.Wait() //nolint:errcheck // workers never return errors
	} else {
		for i := range files {
			b.Outcomes[i] = r.processOne(ctx, i, files[i], companyHint, accountHint)
		}
	}

	for _, out := range b.Outcomes {
		if out.Success {
			b.SuccessCount++
		} else {
			b.ErrorCount++
		}
	}
	b.Duration = time.Since(start)
	metrics.ObserveBatch(b.Duration)
	logger.Info("batch finished",
		"success", b.SuccessCount, "errors", b.ErrorCount, "duration", b.Duration)
	return b
}

// processOne runs a single document task. Panics are recovered here, at the
// batch boundary, and classified as configuration-class worker failures.
func (r *Runner) processOne(ctx context.Context, line int, file, companyHint, accountHint string) (out Outcome) {
	start := time.Now()
	out = Outcome{BatchLine: line + 1, File: file}
	defer func() {
		if p := recover(); p != nil {
			out.Success = false
			out.Statement = nil
			out.ErrorCAB = false
			out.ErrorConfig = true
			out.ErrorMessage = fmt.Sprintf("worker failure: %v", p)
			metrics.ObserveDocument(metrics.OutcomeWorkerFailure, time.Since(start))
			r.logger.Error("worker failure recovered", "file", file, "panic", p)
		}
		out.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		out.ErrorConfig = true
		out.ErrorMessage = err.Error()
		return out
	}

	stmt, err := r.processor.ProcessFile(file, companyHint, accountHint)
	if err != nil {
		out.ErrorConfig = true
		out.ErrorMessage = err.Error()
		metrics.ObserveDocument(metrics.OutcomeConfiguration, time.Since(start))
		r.logger.Warn("document failed", "file", file, "error", err)
		return out
	}

	out.Statement = stmt
	if stmt.Success {
		out.Success = true
		metrics.ObserveDocument(metrics.OutcomeSuccess, time.Since(start))
	} else {
		out.ErrorCAB = true
		out.ErrorMessage = "checks and balances failed"
		metrics.ObserveDocument(metrics.OutcomeReconciliation, time.Since(start))
	}
	return out
}
