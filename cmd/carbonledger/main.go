package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carbonledger/internal/advisor"
	"carbonledger/internal/amqp"
	"carbonledger/internal/cli"
	"carbonledger/internal/factors"
	apphttp "carbonledger/internal/http"
	"carbonledger/internal/ledger"
	applog "carbonledger/internal/log"
	"carbonledger/internal/services"
	"carbonledger/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	stores := cli.OpenStores(logger, cfg)
	defer stores.Close()

	ctx := context.Background()

	// Seed the catalog, then replay persisted overrides on top.
	catalog := factors.Default()
	if overrides, err := stores.Factors.ListFactorOverrides(ctx); err != nil {
		logger.Warn("Could not load factor overrides", "error", err)
	} else if applied := store.ApplyOverrides(catalog, overrides); applied > 0 {
		logger.Info("Applied factor overrides", "count", applied)
	}

	ledg := ledger.Load(ctx, stores.Records)
	logger.Info("Ledger loaded", "records", ledg.Len())

	// The sync queue is optional; without it records stay local only.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("Sync queue enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Sync queue disabled - no AMQP_URL provided")
	}

	ledgerSvc := services.NewLedgerService(ledg, publisher)

	advisorClient := advisor.NewClient(cfg.GroqAPIKey,
		advisor.WithModel(cfg.GroqModel),
		advisor.WithTimeout(cfg.AdvisorTimeout))
	advisory := services.NewAdvisoryService(advisorClient, ledg)
	if !advisorClient.Available() {
		logger.Info("Advisory features disabled - no GROQ_API_KEY provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledgerSvc, catalog, stores.Profiles, stores.Factors, advisory)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting carbonledger server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
