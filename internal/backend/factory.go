package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expenses/internal/amqp"
	"expenses/internal/cache"
	"expenses/internal/ledger"
	"expenses/internal/ledger/google"
	"expenses/internal/ledger/memory"
	"expenses/internal/ledger/xlsx"
	"expenses/internal/services"
	"expenses/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store  ledger.Store
		caches []cache.Cleaner
		opts   []services.Option
	)

	switch config.Type {
	case XLSXBackend:
		xs := xlsx.New(config.LedgerFile, config.LedgerSheet)
		if err := xs.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize ledger file: %w", err)
		}
		store = xs
		caches = append(caches, xs.Snapshots())
		f.logger.Info("Initialized xlsx backend", "file", xs.Path(), "sheet", config.LedgerSheet)

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		opts = append(opts, services.WithCloser(repo))
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	case SheetsBackend:
		cli, err := google.New(ctx, config.Google)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		store = cli
		f.logger.Info("Initialized Google Sheets backend",
			"spreadsheet_id", config.Google.SpreadsheetID,
			"sheet", config.Google.SheetName)

	case MemoryBackend:
		store = memory.New()
		f.logger.Info("Initialized memory backend")

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// AMQP is optional; the service works without change events.
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(amqpClient), services.WithCloser(amqpClient))
		}
	}

	svc := services.NewExpenseService(store, opts...)
	return &BackendResult{
		Service: svc,
		Store:   store,
		Caches:  caches,
		Cleanup: svc.Close,
	}, nil
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (ledger.Store, error) {
	if err := config.ValidateMirror(); err != nil {
		return nil, err
	}

	switch config.MirrorType {
	case SheetsBackend:
		cli, err := google.New(ctx, config.Google)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets mirror: %w", err)
		}
		f.logger.Info("Initialized Google Sheets mirror", "spreadsheet_id", config.Google.SpreadsheetID)
		return cli, nil

	case XLSXBackend:
		xs := xlsx.New(config.MirrorFile, config.LedgerSheet)
		if err := xs.Init(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize mirror file: %w", err)
		}
		f.logger.Info("Initialized xlsx mirror", "file", xs.Path())
		return xs, nil
	}

	return nil, fmt.Errorf("unsupported mirror type: %s", config.MirrorType)
}
