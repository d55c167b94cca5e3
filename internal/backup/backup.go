// Package backup writes scheduled JSON and CSV snapshots of the ledger.
package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"fintrack/internal/core"
	"fintrack/internal/transfer"
)

const timestampLayout = "20060102-150405"

// Snapshotter returns a consistent copy of the ledger.
type Snapshotter interface {
	Snapshot() core.Document
}

// Runner writes snapshot pairs into a directory, on demand or on a cron schedule.
type Runner struct {
	source Snapshotter
	dir    string
	logger *slog.Logger
	now    func() time.Time
	cron   *cron.Cron
}

func New(source Snapshotter, dir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{source: source, dir: dir, logger: logger, now: time.Now}
}

// Run writes fintrack-<timestamp>.json and .csv and returns their paths.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	doc := r.source.Snapshot()
	base := filepath.Join(r.dir, "fintrack-"+r.now().UTC().Format(timestampLayout))

	jsonPath := base + ".json"
	if err := writeFile(jsonPath, func(w io.Writer) error { return transfer.EncodeDocument(w, doc) }); err != nil {
		return nil, err
	}
	csvPath := base + ".csv"
	if err := writeFile(csvPath, func(w io.Writer) error { return transfer.ExportCSV(w, doc.Transactions) }); err != nil {
		return []string{jsonPath}, err
	}

	r.logger.InfoContext(ctx, "Backup written",
		"json", jsonPath,
		"csv", csvPath,
		"transactions", len(doc.Transactions),
		"budgets", len(doc.Budgets))
	return []string{jsonPath, csvPath}, nil
}

// Start schedules Run with a standard five-field cron expression.
func (r *Runner) Start(schedule string) error {
	if r.cron != nil {
		return fmt.Errorf("backup scheduler is already running")
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := r.Run(context.Background()); err != nil {
			r.logger.Error("Scheduled backup failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	c.Start()
	r.cron = c
	r.logger.Info("Backup scheduler started", "schedule", schedule, "dir", r.dir)
	return nil
}

// Stop halts the scheduler and waits for a running backup, bounded by ctx.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cron == nil {
		return nil
	}
	done := r.cron.Stop()
	r.cron = nil
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
