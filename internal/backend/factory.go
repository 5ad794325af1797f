package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tally/internal/amqp"
	"tally/internal/log"
	"tally/internal/records"
	"tally/internal/records/memory"
	"tally/internal/services"
	"tally/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens and initializes the record store, then wires the
// expense service on top of it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	now := clock(config.Location)

	var store records.Store
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo.WithClock(now)
	case MemoryBackend:
		store = memory.NewWithClock(now)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initialize %s store: %w", config.Type, err)
	}

	service := services.NewExpenseService(store, nil)
	if config.PublishEvents {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			// Change events are optional
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			service = services.NewExpenseService(store, client)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}
	service.WithClock(now)

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type.String(),
		"db_path", config.SQLiteDBPath,
		"location", now().Location().String())

	return &BackendResult{
		Store:   store,
		Service: service,
		Cleanup: service.Close,
	}, nil
}

func clock(loc *time.Location) func() time.Time {
	if loc == nil {
		return time.Now
	}
	return func() time.Time { return time.Now().In(loc) }
}

// Close runs the cleanup of r, tolerating a nil result.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	if err := r.Cleanup(); err != nil {
		return errors.Join(errors.New("backend cleanup"), err)
	}
	return nil
}
