package repository

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migration source
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver (dev and tests)
)

// NewDB opens the configured datastore. dbType is "sqlite" or "postgres";
// path is a file path or a PostgreSQL URL respectively.
func NewDB(dbType, path string, logger *zap.Logger) (*sqlx.DB, error) {
	switch dbType {
	case "sqlite":
		db, err := sqlx.Connect("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// modernc.org/sqlite serializes writes; a single connection avoids
		// SQLITE_BUSY under concurrent invocations.
		db.SetMaxOpenConns(1)
		if err := migrateSQLite(db); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
		logger.Info("Connected to sqlite database", zap.String("path", path))
		return db, nil
	case "postgres":
		db, err := sqlx.Connect("postgres", path)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		logger.Info("Connected to postgres database")
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type %q", dbType)
	}
}

// MigrateDB runs the file-based migrations against PostgreSQL. SQLite gets
// its schema applied directly in NewDB.
func MigrateDB(db *sqlx.DB, migrationsPath string, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "voxnow", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations applied")
	return nil
}

// migrateSQLite applies the schema for the embedded development database.
// Kept in lockstep with migrations/ (postgres dialect).
func migrateSQLite(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS voicemails (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		caller_number TEXT,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		received_at DATETIME NOT NULL,
		transcription TEXT,
		summary TEXT,
		status TEXT NOT NULL DEFAULT 'new'
			CHECK (status IN ('new','in_progress','reviewed','archived','deleted')),
		is_read BOOLEAN NOT NULL DEFAULT 0,
		is_starred BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_voicemails_account ON voicemails(account_id);
	CREATE INDEX IF NOT EXISTS idx_voicemails_status ON voicemails(status);
	CREATE INDEX IF NOT EXISTS idx_voicemails_received ON voicemails(received_at);

	CREATE TABLE IF NOT EXISTS analysis_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		voicemail_id TEXT NOT NULL REFERENCES voicemails(id),
		batch_id TEXT NOT NULL,
		batch_status TEXT NOT NULL DEFAULT 'pending'
			CHECK (batch_status IN ('pending','complete')),
		analysis_type TEXT NOT NULL
			CHECK (analysis_type IN ('sentiment','urgency','request_category','field_of_law','case_stage','intent')),
		analysis_result TEXT NOT NULL,
		confidence_score REAL NOT NULL DEFAULT 0,
		ai_model_name TEXT NOT NULL DEFAULT '',
		ai_model_version TEXT NOT NULL DEFAULT '',
		processing_time_ms INTEGER NOT NULL DEFAULT 0,
		raw_response TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_analysis_voicemail ON analysis_results(voicemail_id);
	CREATE INDEX IF NOT EXISTS idx_analysis_type ON analysis_results(analysis_type);
	CREATE INDEX IF NOT EXISTS idx_analysis_batch ON analysis_results(batch_id);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'admin',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.Exec(schema)
	return err
}
