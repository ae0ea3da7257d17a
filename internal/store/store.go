// Package store implements the daemon's embedded SQLite persistence layer.
// The daemon is the only writer; CLI readers open their own connection and
// go through the read-only guard in ExecuteQuery.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Import SQLite driver
	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"
)

// Store owns the SQLite database file. Safe for concurrent use; the
// connection pool serializes writes under WAL.
type Store struct {
	db     *sql.DB
	dbPath string
}

// setupWASMCache configures WASM compilation caching so the embedded SQLite
// engine does not pay JIT compilation cost on every process start. Falls
// back to an in-memory cache when the filesystem cache cannot be created.
func setupWASMCache() {
	var cache wazero.CompilationCache
	if userCache, err := os.UserCacheDir(); err == nil {
		dir := filepath.Join(userCache, "clankers", "wasm")
		if c, err := wazero.NewCompilationCacheWithDir(dir); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

func init() {
	setupWASMCache()
}

// EnsureDB creates the parent directory and the database file with its
// schema if they do not exist. Returns whether the file was newly created.
func EnsureDB(path string) (bool, error) {
	created := false
	if path != ":memory:" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			created = true
		}
	}
	s, err := Open(path)
	if err != nil {
		return false, err
	}
	if err := s.Close(); err != nil {
		return created, err
	}
	return created, nil
}

// Open opens (creating if necessary) the database at path, enables WAL mode
// and foreign-key enforcement, and applies the schema idempotently.
func Open(path string) (*Store, error) {
	var connStr string
	switch {
	case path == ":memory:":
		// Shared in-memory database so pooled connections see the same data.
		// WAL does not work for in-memory databases.
		connStr = "file:memdb?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
	case strings.HasPrefix(path, "file:"):
		connStr = path
		if !strings.Contains(path, "_pragma=foreign_keys") {
			connStr += "&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
		}
	default:
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	isInMemory := path == ":memory:" ||
		(strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory"))
	if isInMemory {
		// In-memory databases are per-connection by default; force one conn.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// WAL supports one writer plus concurrent readers; a small pool is
		// enough for the daemon's per-connection handlers.
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(0)
	}

	if !isInMemory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	absPath := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		absPath, err = filepath.Abs(path)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	return &Store{db: db, dbPath: absPath}, nil
}

// Path returns the absolute path to the database file.
func (s *Store) Path() string {
	return s.dbPath
}

// Close checkpoints the WAL and closes the database. Without the checkpoint
// writes may be stranded in the WAL between daemon restarts.
func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// isForeignKeyErr reports whether err is a foreign-key constraint failure
// from the engine.
func isForeignKeyErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
