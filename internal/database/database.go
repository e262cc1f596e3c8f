// Package database opens the configured SQL engine, applies the embedded
// migrations and hands back a ready store.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"revisionaid/internal/config"
	"revisionaid/internal/observability"
	"revisionaid/internal/store"
	contextutils "revisionaid/internal/utils"

	// Import PostgreSQL driver for database/sql
	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// OpenTelemetry SQL instrumentation
	"go.nhat.io/otelsql"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

//go:embed migrations
var migrationsFS embed.FS

// Manager handles database operations with proper logging
type Manager struct {
	logger *observability.Logger
}

var (
	otelDriversMu sync.Mutex
	otelDrivers   = map[string]string{}
)

// NewManager creates a new database manager with the provided logger
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// DefaultDatabaseConfig returns the pool settings used when none are configured
func DefaultDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: config.DatabaseConnMaxLifetime,
	}
}

// OpenStore migrates the database and returns the store for its driver.
func (dm *Manager) OpenStore(ctx context.Context, cfg config.DatabaseConfig) (result0 store.Store, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "OpenStore",
		attribute.String("db.driver", cfg.Driver),
		attribute.String("db.name", extractDatabaseName(cfg)),
	)
	defer observability.FinishSpan(span, &err)

	if err := dm.RunMigrations(ctx, cfg); err != nil {
		return nil, err
	}

	db, err := dm.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := store.NewSQLiteStore(db, dm.logger)
		if err != nil {
			_ = db.Close()
			return nil, contextutils.WrapError(err, "failed to configure sqlite")
		}
		return s, nil
	default:
		return store.NewPostgresStore(db, dm.logger), nil
	}
}

// Open connects to the database through the OpenTelemetry instrumented driver.
func (dm *Manager) Open(ctx context.Context, cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "Open",
		attribute.String("db.driver", cfg.Driver),
		attribute.Int("db.max_open_conns", cfg.MaxOpenConns),
		attribute.Int("db.max_idle_conns", cfg.MaxIdleConns),
		attribute.String("db.conn_max_lifetime", cfg.ConnMaxLifetime.String()),
	)
	defer observability.FinishSpan(span, &err)

	if cfg.URL == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "database url is not configured")
	}

	driverName, err := registerOtelDriver(cfg)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to register otelsql driver")
	}

	db, err := sql.Open(driverName, cfg.URL)
	if err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"failed to open database connection", err.Error(), err)
	}

	if cfg.Driver != config.DriverSQLite {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database connection after ping failure", closeErr)
		}
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"failed to ping database", err.Error(), err)
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"driver":            cfg.Driver,
		"database":          extractDatabaseName(cfg),
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime,
	})

	return db, nil
}

// registerOtelDriver registers one instrumented driver per engine and reuses its name.
func registerOtelDriver(cfg config.DatabaseConfig) (string, error) {
	otelDriversMu.Lock()
	defer otelDriversMu.Unlock()

	if name, ok := otelDrivers[cfg.Driver]; ok {
		return name, nil
	}

	system := semconv.DBSystemPostgreSQL
	if cfg.Driver == config.DriverSQLite {
		system = semconv.DBSystemSqlite
	}

	name, err := otelsql.Register(cfg.Driver,
		otelsql.WithDatabaseName(extractDatabaseName(cfg)),
		otelsql.WithSystem(system),
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsAffected(),
	)
	if err != nil {
		return "", err
	}
	otelDrivers[cfg.Driver] = name
	return name, nil
}

// RunMigrations applies the embedded migrations for the configured engine.
// It uses its own short-lived connection because closing a migrate instance
// closes the database it was given.
func (dm *Manager) RunMigrations(ctx context.Context, cfg config.DatabaseConfig) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "RunMigrations",
		attribute.String("db.driver", cfg.Driver),
		attribute.String("migration.type", "golang_migrate"),
	)
	defer observability.FinishSpan(span, &err)

	if cfg.URL == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "database url is not configured")
	}

	dm.logger.Info(ctx, "Starting database migrations...", map[string]interface{}{"driver": cfg.Driver})

	m, err := dm.newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			dm.logger.Error(ctx, "Error closing migration", errors.Join(srcErr, dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		dm.logger.Info(ctx, "No new migrations to apply.")
		return nil
	}
	if err != nil {
		return contextutils.WrapError(err, "golang-migrate up failed")
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		span.SetAttributes(attribute.Int("migration.version", int(version)), attribute.Bool("migration.dirty", dirty))
	}
	dm.logger.Info(ctx, "Database migrations completed successfully", map[string]interface{}{"version": version})
	return nil
}

func (dm *Manager) newMigrator(cfg config.DatabaseConfig) (*migrate.Migrate, error) {
	dir := "migrations/postgres"
	if cfg.Driver == config.DriverSQLite {
		dir = "migrations/sqlite"
	}

	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read embedded migrations")
	}

	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		_ = src.Close()
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"failed to open migration connection", err.Error(), err)
	}

	var driver database.Driver
	switch cfg.Driver {
	case config.DriverSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case config.DriverPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		err = contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		_ = db.Close()
		_ = src.Close()
		return nil, contextutils.WrapError(err, "failed to initialize golang-migrate")
	}

	m, err := migrate.NewWithInstance("iofs", src, cfg.Driver, driver)
	if err != nil {
		_ = driver.Close()
		_ = src.Close()
		return nil, contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	return m, nil
}

// extractDatabaseName derives a span-friendly database name from the connection URL
func extractDatabaseName(cfg config.DatabaseConfig) string {
	if cfg.Driver == config.DriverSQLite {
		path := strings.TrimPrefix(cfg.URL, "file:")
		if idx := strings.Index(path, "?"); idx != -1 {
			path = path[:idx]
		}
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if u, err := url.Parse(cfg.URL); err == nil && u.Path != "" {
		if dbName := strings.TrimPrefix(u.Path, "/"); dbName != "" {
			return dbName
		}
	}
	return "revision_aid"
}
