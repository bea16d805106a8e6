package rooms

import (
	"path/filepath"
	"strings"
)

// Open returns the store for path: SQLite for .db/.sqlite files, JSON
// otherwise.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path)
	default:
		return NewJSONStore(path), nil
	}
}
