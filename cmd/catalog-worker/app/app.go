// Package app wires configuration, infrastructure and services for the
// catalog-worker commands.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hmreg/catalog-reconciler/internal/core/services/reconciliation"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/cache"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/database"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/database/repositories"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/parsers"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/queue"
	"github.com/hmreg/catalog-reconciler/internal/infrastructure/storage"
	"github.com/hmreg/catalog-reconciler/internal/jobs"
	"github.com/hmreg/catalog-reconciler/internal/pkg/config"
	"github.com/hmreg/catalog-reconciler/internal/pkg/logger"
)

// App holds the configuration and lazily opened connections of one invocation
type App struct {
	version string
	config  *config.Config
	logger  *slog.Logger

	mu      sync.Mutex
	db      *database.PostgresDB
	redis   *cache.RedisCache
	client  *queue.AsynqClient
	closers []func() error
}

// New creates an App. Configuration is loaded when a command runs.
func New(version string) *App {
	return &App{version: version}
}

// Load reads configuration and initializes logging
func (a *App) Load() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.config = cfg
	a.logger = logger.Initialize(cfg.Environment)
	return nil
}

// Logger returns the application logger
func (a *App) Logger() *slog.Logger {
	if a.logger == nil {
		return logger.Get()
	}
	return a.logger
}

// Database opens the PostgreSQL connection on first use
func (a *App) Database() (*database.PostgresDB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		db, err := database.NewPostgresDB(&a.config.Database, a.Logger())
		if err != nil {
			return nil, err
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
	}
	return a.db, nil
}

// Redis opens the Redis connection on first use
func (a *App) Redis() (*cache.RedisCache, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.redis == nil {
		r, err := cache.NewRedisCache(&a.config.Cache, a.Logger())
		if err != nil {
			return nil, err
		}
		a.redis = r
		a.closers = append(a.closers, r.Close)
	}
	return a.redis, nil
}

// Queue opens the asynq client on first use
func (a *App) Queue() (*queue.AsynqClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		c, err := queue.NewAsynqClient(&a.config.Queue, a.Logger())
		if err != nil {
			return nil, err
		}
		a.client = c
		a.closers = append(a.closers, c.Close)
	}
	return a.client, nil
}

// Storage returns the catalog file storage
func (a *App) Storage() (*storage.LocalStorage, error) {
	return storage.NewLocalStorage(&storage.LocalStorageConfig{
		BasePath:    a.config.Storage.BasePath,
		MaxFileSize: a.config.Storage.MaxFileSize * 1024 * 1024,
	}, a.Logger())
}

// Parsers returns the parser factory used for catalog files
func (a *App) Parsers() *parsers.ParserFactory {
	pc := parsers.DefaultParserConfig()
	pc.MaxFileSize = a.config.Storage.MaxFileSize * 1024 * 1024
	return parsers.NewParserFactory(pc)
}

// Services bundles what the commands operate on
type Services struct {
	Files          *repositories.CatalogFileRepository
	Reconciliation *reconciliation.Service
	Intake         *jobs.Intake
	Storage        *storage.LocalStorage
	Parsers        *parsers.ParserFactory
}

// Services builds the reconciliation stack over the database and storage
func (a *App) Services() (*Services, error) {
	db, err := a.Database()
	if err != nil {
		return nil, err
	}
	store, err := a.Storage()
	if err != nil {
		return nil, err
	}

	log := a.Logger()
	factory := a.Parsers()
	files := repositories.NewCatalogFileRepository(db.DB, log)
	svc := reconciliation.NewService(
		repositories.NewCatalogStore(db.DB, log),
		files,
		jobs.NewFileRowSource(store, factory),
		reconciliation.Config{
			ForceUpdate:              a.config.Import.ForceUpdate,
			AllowMissingMainProducts: a.config.Import.AllowMissingMainProducts,
		},
		logger.NewServiceLogger("reconciliation"),
	)

	return &Services{
		Files:          files,
		Reconciliation: svc,
		Intake:         jobs.NewIntake(store, files, factory, log),
		Storage:        store,
		Parsers:        factory,
	}, nil
}

// Scheduler builds the pending-file sweep over the queue
func (a *App) Scheduler(svc *Services) (*jobs.Scheduler, error) {
	client, err := a.Queue()
	if err != nil {
		return nil, err
	}
	return jobs.NewScheduler(svc.Reconciliation, client, jobs.SchedulerConfig{
		Spec:     a.config.Scheduler.Spec,
		MaxRetry: a.config.Queue.MaxRetries,
	}, a.Logger()), nil
}

// LockTTL bounds how long one worker may hold a file
func (a *App) LockTTL() time.Duration {
	return time.Duration(a.config.Import.LockTTLSeconds) * time.Second
}

// Shutdown closes every opened connection, newest first
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger().Warn("shutdown error", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
