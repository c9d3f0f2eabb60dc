package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	sqliteDriverNameConstant        = "sqlite"
	sqliteConnectionOptionsConstant = "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqliteSchemaStatementConstant   = "CREATE TABLE IF NOT EXISTS stored_values (storage_key TEXT PRIMARY KEY, storage_value TEXT NOT NULL)"
	sqliteReadStatementConstant     = "SELECT storage_value FROM stored_values WHERE storage_key = ?"
	sqliteWriteStatementConstant    = "INSERT INTO stored_values (storage_key, storage_value) VALUES (?, ?) ON CONFLICT(storage_key) DO UPDATE SET storage_value = excluded.storage_value"
	sqliteDeleteStatementConstant   = "DELETE FROM stored_values WHERE storage_key = ?"
	sqliteKeysStatementConstant     = "SELECT storage_key FROM stored_values"
	missingPathMessageConstant      = "storage path is required"
	openErrorTemplateConstant       = "open sqlite medium: %w"
	pingErrorTemplateConstant       = "ping sqlite medium: %w"
	schemaErrorTemplateConstant     = "initialize sqlite schema: %w"
)

var errMissingStoragePath = errors.New(missingPathMessageConstant)

// SQLiteMedium persists key-value pairs in a single-table SQLite database.
type SQLiteMedium struct {
	database *sql.DB
}

// OpenSQLiteMedium opens (creating when needed) the database at path and ensures the schema exists.
func OpenSQLiteMedium(path string) (*SQLiteMedium, error) {
	if len(strings.TrimSpace(path)) == 0 {
		return nil, errMissingStoragePath
	}

	dataSourceName := filepath.Clean(path) + sqliteConnectionOptionsConstant
	database, openError := sql.Open(sqliteDriverNameConstant, dataSourceName)
	if openError != nil {
		return nil, fmt.Errorf(openErrorTemplateConstant, openError)
	}

	if pingError := database.Ping(); pingError != nil {
		_ = database.Close()
		return nil, fmt.Errorf(pingErrorTemplateConstant, pingError)
	}

	if _, schemaError := database.Exec(sqliteSchemaStatementConstant); schemaError != nil {
		_ = database.Close()
		return nil, fmt.Errorf(schemaErrorTemplateConstant, schemaError)
	}

	return &SQLiteMedium{database: database}, nil
}

// Close releases the underlying database handle.
func (medium *SQLiteMedium) Close() error {
	if medium == nil || medium.database == nil {
		return nil
	}
	return medium.database.Close()
}

// Read returns the stored value and whether the key was present.
func (medium *SQLiteMedium) Read(key string) (string, bool, error) {
	var value string
	scanError := medium.database.QueryRow(sqliteReadStatementConstant, key).Scan(&value)
	switch {
	case scanError == nil:
		return value, true, nil
	case errors.Is(scanError, sql.ErrNoRows):
		return "", false, nil
	default:
		return "", false, scanError
	}
}

// Write upserts the value under the key.
func (medium *SQLiteMedium) Write(key string, value string) error {
	_, writeError := medium.database.Exec(sqliteWriteStatementConstant, key, value)
	return writeError
}

// Delete removes the key when present.
func (medium *SQLiteMedium) Delete(key string) error {
	_, deleteError := medium.database.Exec(sqliteDeleteStatementConstant, key)
	return deleteError
}

// Keys lists every stored key.
func (medium *SQLiteMedium) Keys() ([]string, error) {
	rows, queryError := medium.database.Query(sqliteKeysStatementConstant)
	if queryError != nil {
		return nil, queryError
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if scanError := rows.Scan(&key); scanError != nil {
			return nil, scanError
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}
