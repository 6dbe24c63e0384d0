package backend

import (
	"context"
	"fmt"
	"log/slog"

	"kitchenledger/internal/amqp"
	gsheet "kitchenledger/internal/sheets/google"
	"kitchenledger/internal/sheets/memory"
	"kitchenledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateSessionKV(_ context.Context, config Config) (*SessionResult, error) {
	switch config.SessionType {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
		}
		f.logger.Info("Initialized SQLite session store", "db_path", config.DBPath)
		return &SessionResult{KV: repo, Cleanup: repo.Close}, nil
	case MemoryBackend:
		f.logger.Info("Initialized in-memory session store, sessions end with the process")
		return &SessionResult{KV: storage.NewMemoryKV()}, nil
	default:
		return nil, fmt.Errorf("unsupported session backend type: %s", config.SessionType)
	}
}

func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (*ExportResult, error) {
	switch config.ExportType {
	case SheetsBackend:
		cli, err := gsheet.New(ctx, config.Sheets, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets exporter", "sheet", cli.SheetName())
		return &ExportResult{Exporter: cli}, nil
	case MemoryBackend, "":
		f.logger.Info("Initialized memory exporter, rows are not persisted")
		return &ExportResult{Exporter: memory.New()}, nil
	default:
		return nil, fmt.Errorf("unsupported export backend type: %s", config.ExportType)
	}
}

func (f *DefaultFactory) CreateEventClient(_ context.Context, config Config) (*amqp.Client, error) {
	if config.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, nil
}
