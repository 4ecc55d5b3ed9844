package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"outlay/internal/amqp"
	"outlay/internal/cache"
	"outlay/internal/core"
	"outlay/internal/preferences"
	"outlay/internal/services"
	"outlay/internal/storage"
	"outlay/internal/store"
	"outlay/internal/store/memory"
)

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 5 * time.Minute
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

	repo, ready, err := f.createRepository(config)
	if err != nil {
		return nil, err
	}

	prefs, err := f.createPreferences(config)
	if err != nil {
		repo.Close()
		return nil, err
	}

	// AMQP is optional; a broker outage must not keep the app from starting.
	var client *amqp.Client
	var publisher amqp.Publisher
	if config.AMQPURL != "" {
		client, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", "error", err)
			client = nil
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	size, ttl := config.CacheSize, config.CacheTTL
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	totals := cache.NewLRUCache[[]core.CategoryTotal](size, ttl)
	caches := cache.NewManager()
	caches.Register(totals)

	opts := []services.Option{
		services.WithTotalsCache(totals),
		services.WithDeletePolicy(config.DeletePolicy),
	}
	if publisher != nil {
		opts = append(opts, services.WithPublisher(publisher))
	}
	expenses := services.NewExpenseService(repo, prefs, opts...)

	edition := config.Edition
	if edition == "" {
		edition = core.EditionStandard
	}
	settings := services.NewSettingsService(prefs, edition, publisher)

	f.logger.InfoContext(ctx, "Initialized backend",
		"backend", config.Type,
		"preferences", prefsLabel(config),
		"edition", edition,
		"amqp_enabled", client != nil)

	return &BackendResult{
		Repository:  repo,
		Preferences: prefs,
		Expenses:    expenses,
		Settings:    settings,
		AMQP:        client,
		Caches:      caches,
		Ready:       ready,
		Cleanup: func() error {
			caches.Stop()
			return expenses.Close()
		},
	}, nil
}

func (f *DefaultFactory) createRepository(config Config) (store.Repository, func(context.Context) error, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, repo.Ping, nil
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data" // Default directory
		}
		f.logger.Info("Initialized memory backend", "data_directory", dataDir)
		return memory.NewFromDir(dataDir), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createPreferences(config Config) (preferences.Store, error) {
	if config.Prefs != FilePrefs {
		return preferences.NewMemory(), nil
	}
	prefs, err := preferences.OpenFile(config.PrefsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences file: %w", err)
	}
	return prefs, nil
}

func prefsLabel(config Config) string {
	if config.Prefs == FilePrefs {
		return config.PrefsFile
	}
	return string(MemoryPrefs)
}

// ErrNoAMQP is returned by commands that need change events when none are
// configured.
var ErrNoAMQP = errors.New("AMQP is not configured (set AMQP_URL)")
