package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backup"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/seed"
	"fintrack/internal/services"
	"fintrack/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	logger.Info("Starting fintrack server", applog.FieldOperation, applog.OpStartup, "backend", cfg.DataBackend)

	ctx, stop := cli.NotifyShutdown(logger)
	defer stop()

	slot := cli.MustOpenSlot(ctx, logger, cfg)
	defer slot.Close()

	// A typed nil would defeat the store's nil check.
	var seeder store.Seeder
	if cfg.SeedURL != "" {
		seeder = seed.NewFetcher(cfg.SeedURL,
			seed.WithLogger(logger.WithComponent(applog.ComponentSeed).Slog()))
	}

	st, err := store.Open(ctx, slot, seeder,
		store.WithLogger(logger.WithComponent(applog.ComponentStore).Slog()))
	if err != nil {
		logger.Error("Failed to open store", applog.FieldError, err)
		os.Exit(1)
	}

	patterns := query.NewCompiler(cfg.PatternCacheSize, cfg.PatternCacheTTL)
	janitor := cache.NewJanitor(logger.WithComponent(applog.ComponentCache).Slog())
	janitor.Register(patterns.Cache())
	janitor.Start(cfg.PatternCacheTTL)
	defer janitor.Stop()

	opts := []services.Option{
		services.WithLogger(logger.WithComponent(applog.ComponentLedger).Slog()),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// The mirror catches up on its periodic resync.
			logger.Warn("AMQP unavailable, change events disabled", applog.FieldError, err)
		} else {
			defer client.Close()
			opts = append(opts, services.WithPublisher(client))
		}
	}
	ledger := services.NewLedgerService(st, patterns, opts...)

	var backups *backup.Runner
	if cfg.BackupSchedule != "" {
		backups = backup.New(st, cfg.BackupDir, logger.WithComponent(applog.ComponentBackup).Slog())
		if err := backups.Start(cfg.BackupSchedule); err != nil {
			logger.Error("Failed to start backup scheduler", applog.FieldError, err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledger, apphttp.WithLogger(logger))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := cli.ShutdownContext()
		defer cancel()

		if backups != nil {
			if err := backups.Stop(shutdownCtx); err != nil {
				logger.Warn("Backup scheduler did not stop cleanly", applog.FieldError, err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
