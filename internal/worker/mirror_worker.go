package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets"
	"fintrack/internal/transfer"
)

// DocumentSource reads the persisted document. Every store.Slot is one.
type DocumentSource interface {
	Load(ctx context.Context) (data []byte, found bool, err error)
}

// MirrorWorker keeps a sheet in step with the persisted transactions. Each
// sync rewrites the whole sheet from the current document, so a change
// message that predates the last sync needs no work.
type MirrorWorker struct {
	source   DocumentSource
	mirror   sheets.Mirror
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	syncMu   sync.Mutex
	lastSync time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMirrorWorker creates a worker. A zero interval disables the periodic
// resync and leaves only message-driven syncs.
func NewMirrorWorker(source DocumentSource, mirror sheets.Mirror, interval time.Duration, logger *slog.Logger) *MirrorWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorWorker{
		source:   source,
		mirror:   mirror,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleChange processes one change message from AMQP.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	if !w.lastSync.IsZero() && !msg.Timestamp.After(w.lastSync) {
		w.logger.DebugContext(ctx, "Change already mirrored",
			"op", msg.Op,
			"entity", msg.Entity,
			"id", msg.ID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing change message",
		"op", msg.Op,
		"entity", msg.Entity,
		"id", msg.ID,
		"count", msg.Count)
	return w.syncLocked(ctx)
}

// Sync rewrites the sheet from the persisted document.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()
	return w.syncLocked(ctx)
}

func (w *MirrorWorker) syncLocked(ctx context.Context) error {
	started := w.now()

	data, found, err := w.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	var doc core.Document
	if found {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
	}

	rows := transfer.Rows(doc.Transactions)
	if err := w.mirror.Replace(ctx, rows); err != nil {
		return fmt.Errorf("replace sheet: %w", err)
	}

	w.lastSync = started
	w.logger.InfoContext(ctx, "Sheet mirrored", "transactions", len(doc.Transactions))
	return nil
}

// LastSync returns the start time of the last successful sync.
func (w *MirrorWorker) LastSync() time.Time {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()
	return w.lastSync
}

// Start runs an initial sync and then the periodic resync loop. Returns an
// error if already running.
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("mirror worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	// Recover from messages missed while the worker was down.
	if err := w.Sync(ctx); err != nil {
		w.logger.WarnContext(ctx, "Startup sync failed", "error", err)
	}

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Mirror worker started", "interval", w.interval)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (w *MirrorWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.InfoContext(ctx, "Mirror worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Mirror worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning returns whether the periodic loop is active
func (w *MirrorWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *MirrorWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	if w.interval <= 0 {
		select {
		case <-w.stopCh:
		case <-ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
