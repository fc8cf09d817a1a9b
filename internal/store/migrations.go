package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// CurrentSchemaVersion is the schema version Open migrates to.
//
// Schema versions:
// v1: models table (id, name, algorithm, document, created_at)
// v2: content_hash and action_count columns for deduplication and listing
const CurrentSchemaVersion = 2

// migration upgrades a database from version-1 to version.
type migration struct {
	version     int
	description string
	apply       func(db *sql.DB) error
}

var migrations = []migration{
	{1, "create models table", func(db *sql.DB) error {
		_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			document TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_models_name ON models(name);
		`)
		return err
	}},
	{2, "add content hash and action count", func(db *sql.DB) error {
		for _, c := range []struct{ column, def string }{
			{"content_hash", "TEXT NOT NULL DEFAULT ''"},
			{"action_count", "INTEGER NOT NULL DEFAULT 0"},
		} {
			if columnExists(db, "models", c.column) {
				continue
			}
			if _, err := db.Exec(fmt.Sprintf("ALTER TABLE models ADD COLUMN %s %s", c.column, c.def)); err != nil {
				return err
			}
		}
		_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_models_hash ON models(name, content_hash)")
		return err
	}},
}

// runMigrations applies every migration above the recorded version.
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)`); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	from := schemaVersion(db)
	applied := 0
	for _, m := range migrations {
		if m.version <= from {
			continue
		}
		if err := m.apply(db); err != nil {
			return fmt.Errorf("failed to migrate to v%d: %w", m.version, err)
		}
		if _, err := db.Exec("INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.version, m.description); err != nil {
			return fmt.Errorf("failed to record schema version %d: %w", m.version, err)
		}
		logger.Debug("migration applied", zap.Int("version", m.version), zap.String("description", m.description))
		applied++
	}
	if applied > 0 {
		logger.Info("schema migrated", zap.Int("from", from), zap.Int("to", CurrentSchemaVersion))
	}
	return nil
}

// schemaVersion returns the latest recorded version, 0 for a new database.
func schemaVersion(db *sql.DB) int {
	var version int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version); err != nil {
		return 0
	}
	return version
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
