package repository

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// NewSQLiteDB opens the embedded database file at path.
func NewSQLiteDB(path string, logger *zap.Logger) (*sqlx.DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection keeps that explicit.
	db.SetMaxOpenConns(1)

	logger.Info("Successfully opened the database", zap.String("db_path", path))
	return db, nil
}

// MigrateDB applies every pending versioned migration. Already applied
// versions are skipped, so running it on each start is a no-op once current.
func MigrateDB(db *sqlx.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("couldn't load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("couldn't get database instance for running migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("couldn't create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run database migration: %w", err)
	}

	if err := ensureLogColumns(db, logger); err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("couldn't read migration version: %w", err)
	}

	logger.Info("Database migration was run successfully",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}

// logEnrichmentColumns were added to logs after the first schema. Files created
// before them keep their table because the create statement is IF NOT EXISTS.
var logEnrichmentColumns = []struct {
	name string
	ddl  string
}{
	{"severity", "TEXT DEFAULT 'medium'"},
	{"is_exempted", "INTEGER DEFAULT 0"},
	{"processing_path", "TEXT DEFAULT ''"},
	{"all_scores", "TEXT DEFAULT '{}'"},
	{"llm_analysis", "TEXT DEFAULT NULL"},
}

// ensureLogColumns adds the enrichment columns a logs table is missing.
// Columns that already exist are left alone.
func ensureLogColumns(db *sqlx.DB, logger *zap.Logger) error {
	var existing []string
	if err := db.Select(&existing, "SELECT name FROM pragma_table_info('logs')"); err != nil {
		return fmt.Errorf("couldn't inspect logs table: %w", err)
	}

	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, col := range logEnrichmentColumns {
		if present[col.name] {
			continue
		}
		if _, err := db.Exec("ALTER TABLE logs ADD COLUMN " + col.name + " " + col.ddl); err != nil {
			return fmt.Errorf("couldn't add column %s to logs: %w", col.name, err)
		}
		logger.Info("Added missing logs column", zap.String("column", col.name))
	}

	return nil
}
