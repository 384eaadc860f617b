// Package filex holds filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DatabasePath returns the file a SQLite DSN points at, or "" for
// in-memory databases.
func DatabasePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	path, _, _ = strings.Cut(path, "?")
	if path == "" || path == ":memory:" {
		return ""
	}
	if strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}

// EnsureDatabaseDir creates the directory holding the database file of dsn
// and returns the file path. In-memory DSNs are left alone.
func EnsureDatabaseDir(dsn string) (string, error) {
	path := DatabasePath(dsn)
	if path == "" {
		return "", nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return path, nil
}
