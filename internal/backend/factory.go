package backend

import (
	"context"
	"errors"
	"fmt"

	"timebill/internal/amqp"
	"timebill/internal/entries"
	"timebill/internal/entries/memory"
	"timebill/internal/log"
	"timebill/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.NewDefault()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   entries.Store
		closers []func() error
	)

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		closers = append(closers, repo.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite backend", log.FieldDSN, config.SQLiteDSN)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	publisher := f.createPublisher(ctx, config)
	if c, ok := publisher.(*amqp.Client); ok {
		closers = append(closers, c.Close)
	}

	return &BackendResult{
		Store:     store,
		Publisher: publisher,
		Cleanup: func() error {
			var errs []error
			for _, c := range closers {
				errs = append(errs, c())
			}
			return errors.Join(errs...)
		},
	}, nil
}

// createPublisher returns nil when publishing is disabled or the client
// cannot be built; the app runs without notifications in that case.
func (f *DefaultFactory) createPublisher(ctx context.Context, config Config) entries.EventPublisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		log.FieldExchange, config.AMQPExchange,
		log.FieldQueue, config.AMQPQueue)
	return client
}
