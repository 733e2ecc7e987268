package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"timebill/internal/backend"
	"timebill/internal/cli"
	apphttp "timebill/internal/http"
	"timebill/internal/log"
	"timebill/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	var ready func(context.Context) error
	if p, ok := be.Store.(backend.Pinger); ok {
		ready = p.Ping
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		Entries:            services.NewEntryService(be.Store, be.Publisher),
		Invoices:           services.NewInvoiceService(be.Store),
		Ready:              ready,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting timebill server",
		log.FieldAddr, cfg.Addr(),
		"backend", cfg.DataBackend,
		"notifications", be.Publisher != nil,
		log.FieldOperation, log.OpStartup)

	err = cli.Run(ctx, logger, cfg.ShutdownTimeout, cli.Service{
		Start: func(context.Context) error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		Stop: srv.Shutdown,
	})
	if err != nil {
		logger.Error("Server error", log.FieldError, err, log.FieldAddr, cfg.Addr())
		stop()
		_ = be.Cleanup()
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
