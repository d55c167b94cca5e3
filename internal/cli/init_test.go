package cli

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("nonsense")
	if logger == nil {
		t.Fatal("SetupLogger returned nil")
	}
	if logger.Component() != applog.ComponentApp {
		t.Errorf("component = %q", logger.Component())
	}
}

func TestOpenSlot(t *testing.T) {
	logger := applog.New(applog.DefaultConfig())

	t.Run("file backend round trip", func(t *testing.T) {
		cfg := config.Load()
		cfg.DataBackend = "file"
		cfg.DataFile = filepath.Join(t.TempDir(), "finance.json")

		slot, err := OpenSlot(context.Background(), logger, cfg)
		if err != nil {
			t.Fatalf("OpenSlot() error = %v", err)
		}
		defer slot.Close()

		if err := slot.Save(context.Background(), []byte(`{"transactions":[],"budgets":[]}`)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		data, found, err := slot.Load(context.Background())
		if err != nil || !found {
			t.Fatalf("Load() = %q, %v, %v", data, found, err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := config.Load()
		cfg.DataBackend = "sheets"
		if _, err := OpenSlot(context.Background(), logger, cfg); err == nil {
			t.Error("expected error for unknown backend")
		}
	})
}

func TestNotifyShutdownCancel(t *testing.T) {
	ctx, cancel := NotifyShutdown(applog.New(applog.DefaultConfig()))
	cancel()
	<-ctx.Done()

	sctx, scancel := ShutdownContext()
	defer scancel()
	if _, ok := sctx.Deadline(); !ok {
		t.Error("shutdown context has no deadline")
	}
	if sctx.Err() != nil {
		t.Errorf("shutdown context already done: %v", sctx.Err())
	}
}
