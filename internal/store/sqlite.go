// Package store provides the SQLite-backed document store for certificates and the
// persisted rule feature flags.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"

	_ "github.com/mattn/go-sqlite3" // SQLite driver "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // SQLite driver "sqlite" (pure Go)
)

// ErrNotFound is returned when a document does not exist for the given reference.
var ErrNotFound = errors.New("document not found")

// SQLiteStore implements the document and flag stores on one SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path with the given driver.
// driver is "sqlite3" (mattn/go-sqlite3) or "sqlite" (modernc.org/sqlite).
func Open(driver, path string) (*SQLiteStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Initializing SQLiteStore at path: %s (driver %s)", path, driver)

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &SQLiteStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("SQLiteStore initialization complete")
	return s, nil
}

// initialize creates the base tables and migrates them to the current schema.
func (s *SQLiteStore) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			document_number TEXT PRIMARY KEY,
			user_principal TEXT NOT NULL,
			contact_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'DRAFT',
			export_payload TEXT,
			exporter TEXT,
			export_location TEXT,
			transport TEXT,
			conservation TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(user_principal, contact_id)`,
		`CREATE TABLE IF NOT EXISTS draft_views (
			document_number TEXT PRIMARY KEY,
			user_principal TEXT NOT NULL,
			contact_id TEXT NOT NULL,
			products INTEGER NOT NULL DEFAULT 0,
			landings INTEGER NOT NULL DEFAULT 0,
			cached_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS draft_links (
			document_number TEXT PRIMARY KEY,
			user_principal TEXT NOT NULL,
			contact_id TEXT NOT NULL,
			link TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS feature_flags (
			rule TEXT PRIMARY KEY,
			blocking INTEGER NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return RunMigrations(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	logging.Store("Closing SQLiteStore database connection")
	return s.db.Close()
}

// GetDB returns the underlying SQL database connection.
func (s *SQLiteStore) GetDB() *sql.DB {
	return s.db
}
