// Package cli provides common CLI initialization utilities shared by
// cmd/timebill and cmd/timebill-notifier.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"timebill/internal/config"
	"timebill/internal/log"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level slog.Level) *log.Logger {
	return setupLogger(os.Stdout, level)
}

func setupLogger(out io.Writer, level slog.Level) *log.Logger {
	logger := log.New(log.Config{Level: level, Component: log.ComponentApp, Output: out})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure. The logger level is taken from
// the loaded configuration.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.SlogLevel())
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg, logger
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Service is a long-running unit driven by Run.
type Service struct {
	// Start blocks until the service stops. It must return once Stop has
	// been called or ctx is cancelled.
	Start func(ctx context.Context) error
	// Stop is called with a deadline once ctx is done. Optional.
	Stop func(ctx context.Context) error
}

// Run starts svc and waits for ctx to be cancelled, then stops it within
// timeout. A Start error cancels everything.
func Run(ctx context.Context, logger *log.Logger, timeout time.Duration, svc Service) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := svc.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("service stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		if svc.Stop == nil {
			return nil
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := svc.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
