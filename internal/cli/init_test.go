package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_StopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, slog.LevelInfo)
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	svc := Service{
		Start: func(ctx context.Context) error {
			<-stopped
			return nil
		},
		Stop: func(ctx context.Context) error {
			close(stopped)
			return nil
		},
	}

	done := make(chan error, 1)
	go func() { done <- Run(ctx, logger, time.Second, svc) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Contains(t, buf.String(), "Shutting down")
}

func TestRun_StartErrorIsReturned(t *testing.T) {
	logger := setupLogger(&bytes.Buffer{}, slog.LevelInfo)
	boom := errors.New("listen failed")

	err := Run(context.Background(), logger, time.Second, Service{
		Start: func(context.Context) error { return boom },
	})
	assert.ErrorIs(t, err, boom)
}

func TestRun_StopErrorIsReturned(t *testing.T) {
	logger := setupLogger(&bytes.Buffer{}, slog.LevelInfo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, logger, time.Second, Service{
		Start: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Stop: func(context.Context) error { return errors.New("stuck") },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown: stuck")
}
