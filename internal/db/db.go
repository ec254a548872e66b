// Package db owns the SQLite registry of generated documents.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/clerk/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the registry file inside the base directory.
const FileName = "clerk.db"

// migrations[i] upgrades the schema from version i to i+1.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS artifacts (
	  id              TEXT PRIMARY KEY,
	  category        TEXT NOT NULL,
	  subtype         TEXT,
	  template        TEXT NOT NULL,
	  stored_name     TEXT NOT NULL,
	  download_name   TEXT NOT NULL,
	  path            TEXT NOT NULL,
	  size            INTEGER NOT NULL,
	  strategy        TEXT NOT NULL,
	  unresolved_json TEXT,
	  created_at      INTEGER NOT NULL,
	  deleted_at      INTEGER
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_artifacts_stored_name
	ON artifacts(stored_name);

	CREATE INDEX IF NOT EXISTS idx_artifacts_created
	ON artifacts(created_at DESC)
	WHERE deleted_at IS NULL;

	CREATE INDEX IF NOT EXISTS idx_artifacts_category_created
	ON artifacts(category, created_at DESC)
	WHERE deleted_at IS NULL;
	`,
}

// CurrentSchemaVersion is the version a fully migrated registry reports.
var CurrentSchemaVersion = len(migrations)

// Init opens (creating if needed) baseDir/clerk.db in WAL mode and brings its
// schema up to date. Tests pass t.TempDir() for baseDir.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0o700)

	dbPath := filepath.Join(baseDir, FileName)
	// Pragmas in the DSN apply to every pooled connection.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := setup(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0o600)
	return db, nil
}

func setup(db *sql.DB) error {
	mode, err := pragmaString(db, "journal_mode")
	if err != nil {
		return err
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", mode)
	}
	return migrate(db)
}

// ConfigurePool applies the non-zero pool limits from cfg.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate runs every pending migration, each in its own transaction together
// with its user_version bump. A registry written by a newer build is refused.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}
	if version > CurrentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", version, CurrentSchemaVersion)
	}

	for v := version; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", v+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: failed to set user_version: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	return nil
}

func pragmaString(db *sql.DB, name string) (string, error) {
	var v string
	if err := db.QueryRow("PRAGMA " + name + ";").Scan(&v); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return v, nil
}

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion overwrites the user_version pragma.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
