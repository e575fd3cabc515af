package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/events"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/normalizer"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/parser"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/repository"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/service"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/snapshot"
	"github.com/FACorreiaa/ledger-ingest/pkg/config"
	"github.com/FACorreiaa/ledger-ingest/pkg/cron"
	"github.com/FACorreiaa/ledger-ingest/pkg/db"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	SQLite *sql.DB
	Logger *slog.Logger

	Registry *prometheus.Registry

	// Repositories
	LedgerRepo repository.LedgerRepository

	// Services
	Publisher     events.Publisher
	Snapshots     *snapshot.Writer
	IngestService *service.IngestService
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}

	// Initialize database
	if err := deps.initDatabase(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	// Initialize repositories
	deps.initRepositories()

	// Initialize services
	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		slog.String("store", cfg.Store.Driver),
		slog.Bool("snapshots", cfg.Ingest.SnapshotsOn),
		slog.Bool("events", cfg.Kafka.Enabled()),
	)

	return deps, nil
}

// initDatabase opens the configured store and runs migrations
func (d *Dependencies) initDatabase(ctx context.Context) error {
	switch d.Config.Store.Driver {
	case config.DriverPostgres:
		database, err := db.New(db.Config{
			DSN:             d.Config.Database.DSN(),
			MaxConns:        25,
			MinConns:        5,
			MaxConnLifetime: 5 * time.Minute,
			MaxConnIdleTime: 10 * time.Minute,
		}, d.Logger)
		if err != nil {
			return err
		}
		d.DB = database

		// Run migrations
		if err := d.DB.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(d.Config.Store.SQLiteDSN)
		if err != nil {
			return err
		}
		d.SQLite = sqlDB

		if err := db.MigrateSQLite(ctx, sqlDB, d.Logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

	case config.DriverMemory:
		d.Logger.Warn("using in-memory ledger store; entries are lost on exit")
		return nil
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes the ledger store
func (d *Dependencies) initRepositories() {
	switch {
	case d.DB != nil:
		d.LedgerRepo = repository.NewPostgresLedgerRepository(d.DB.Pool)
	case d.SQLite != nil:
		d.LedgerRepo = repository.NewSQLiteLedgerRepository(d.SQLite)
	default:
		d.LedgerRepo = repository.NewMemoryLedgerRepository()
	}
}

// initServices wires the ingestion pipeline
func (d *Dependencies) initServices() error {
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipeline := parser.NewPipeline(parser.NewPDFParser(d.Logger), d.Logger)

	d.IngestService = service.NewIngestService(pipeline, d.LedgerRepo, d.Logger).
		WithNormalizer(normalizer.New()).
		WithMetrics(service.NewMetrics(d.Registry))

	d.Publisher = events.NopPublisher{}
	if d.Config.Kafka.Enabled() {
		d.Publisher = events.NewKafkaPublisher(d.Config.Kafka.Brokers, d.Config.Kafka.Topic, d.Logger)
	}
	d.IngestService.WithPublisher(d.Publisher)

	if d.Config.Ingest.SnapshotsOn {
		store, err := storage.New(&storage.Config{
			Type:      storage.StorageTypeLocal,
			LocalPath: d.Config.Ingest.SnapshotDir,
		})
		if err != nil {
			return fmt.Errorf("failed to open snapshot storage: %w", err)
		}
		d.Snapshots = snapshot.NewWriter(store, d.Logger).
			WithFormats(snapshot.ParseFormats(d.Config.Ingest.SnapshotFormats)...).
			WithCurrency(d.Config.Ingest.Currency)
		d.IngestService.WithSnapshotWriter(d.Snapshots)
	}

	return nil
}

// NewInboxScheduler builds the cron sweep over the configured inbox dirs.
func (d *Dependencies) NewInboxScheduler() (*cron.Scheduler, error) {
	open := func(path string) (storage.Storage, error) {
		return storage.New(&storage.Config{Type: storage.StorageTypeLocal, LocalPath: path})
	}

	pending, err := open(d.Config.Ingest.InboxDir)
	if err != nil {
		return nil, err
	}
	processed, err := open(d.Config.Ingest.ProcessedDir)
	if err != nil {
		return nil, err
	}
	failed, err := open(d.Config.Ingest.FailedDir)
	if err != nil {
		return nil, err
	}

	inbox := cron.Inbox{Pending: pending, Processed: processed, Failed: failed}
	return cron.NewScheduler(d.IngestService, inbox, d.Config.Ingest.Schedule, d.Logger).
		WithMaxFileBytes(int64(d.Config.Ingest.MaxFileBytes)), nil
}

// Cleanup releases all resources
func (d *Dependencies) Cleanup() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			d.Logger.Warn("failed to close event publisher", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	if d.SQLite != nil {
		d.SQLite.Close()
	}
}
