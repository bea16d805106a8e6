package rooms

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps rooms in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS rooms (
		name TEXT PRIMARY KEY,
		x REAL NOT NULL,
		y REAL NOT NULL,
		updated_at DATETIME NOT NULL
	);`)
	return err
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (map[string]Point, error) {
	rooms := make(map[string]Point)
	rows, err := s.db.QueryContext(ctx, `SELECT name, x, y FROM rooms`)
	if err != nil {
		return rooms, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name string
			p    Point
		)
		if err := rows.Scan(&name, &p.X, &p.Y); err != nil {
			return make(map[string]Point), fmt.Errorf("scan room: %w", err)
		}
		rooms[name] = p
	}
	if err := rows.Err(); err != nil {
		return make(map[string]Point), err
	}
	return rooms, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, name string, p Point) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (name, x, y, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET x = excluded.x, y = excluded.y, updated_at = excluded.updated_at`,
		name, p.X, p.Y, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save room %q: %w", name, err)
	}
	return nil
}

// Ping checks the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
