package store

import (
	"database/sql"
	"fmt"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
)

// Schema versions:
// v1: documents, draft_links
// v2: draft_views cache, feature_flags
// v3: landings entry option and completion columns on documents
// v4: backfill section and timestamp columns missing from v1 documents
const CurrentSchemaVersion = 4

// Migration adds one column to an existing table.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists the columns added after a table was first created.
// Databases created before a column existed get it on the next Open.
// SQLite cannot add a column with a CURRENT_TIMESTAMP default, so the timestamp
// columns are added bare and left NULL on old rows.
var pendingMigrations = []Migration{
	{"documents", "exporter", "TEXT"},
	{"documents", "export_location", "TEXT"},
	{"documents", "transport", "TEXT"},
	{"documents", "conservation", "TEXT"},
	{"documents", "created_at", "DATETIME"},
	{"documents", "updated_at", "DATETIME"},
	{"documents", "landings_entry_option", "TEXT NOT NULL DEFAULT ''"},
	{"documents", "artifact_uri", "TEXT NOT NULL DEFAULT ''"},
	{"documents", "completed_by", "TEXT NOT NULL DEFAULT ''"},
	{"documents", "completed_at", "DATETIME"},
}

// RunMigrations applies column migrations and records the schema version.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			logging.StoreDebug("Table missing, skipping migration: %s.%s", m.Table, m.Column)
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	if GetSchemaVersion(db) < CurrentSchemaVersion {
		if err := SetSchemaVersion(db, CurrentSchemaVersion); err != nil {
			return err
		}
	}
	logging.StoreDebug("Schema migrations complete: applied=%d", applied)
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	return err == nil && count > 0
}

// GetSchemaVersion returns the last recorded schema version, or 0 for a fresh database.
func GetSchemaVersion(db *sql.DB) int {
	if !tableExists(db, "schema_versions") {
		return 0
	}
	var version int
	if err := db.QueryRow("SELECT version FROM schema_versions ORDER BY id DESC LIMIT 1").Scan(&version); err != nil {
		return 0
	}
	return version
}

// SetSchemaVersion records a new schema version.
func SetSchemaVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version INTEGER NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_versions (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	logging.Store("Schema version set to %d", version)
	return nil
}
