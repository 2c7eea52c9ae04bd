// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, and
// cross-compilation just works. The driver registers itself with
// database/sql under the name "sqlite".
//
// CONNECTION SETTINGS:
// sql.DB is a pool, and SQLite PRAGMAs are per connection. Running
// "PRAGMA foreign_keys=ON" once would only configure whichever connection
// happened to run it, so the settings are passed in the DSN instead and
// the driver applies them to every connection it opens:
//   - foreign_keys(1)     → enforce REFERENCES clauses (off by default in SQLite)
//   - journal_mode(WAL)   → readers don't block the writer
//   - busy_timeout(5000)  → wait up to 5s for a lock instead of failing
//   - _txlock=immediate   → write transactions take the lock up front
//   - _time_format=sqlite → time.Time is stored in a format date() understands
//
// SCHEMA:
// Tables are created by versioned migrations embedded in the binary (see
// migrate.go and migrations/). New runs them on every start; already
// applied versions are skipped.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const connParams = "_pragma=foreign_keys(1)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=busy_timeout(5000)" +
	"&_txlock=immediate" +
	"&_time_format=sqlite"

// DB wraps a sql.DB connection pool and implements every repository
// interface in the repository package.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the database at dbPath, verifies the connection and applies
// pending migrations.
func New(dbPath string) (*DB, error) {
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open does not connect; Ping surfaces a bad path or permissions now.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	return &DB{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func dsn(dbPath string) string {
	return fmt.Sprintf("file:%s?%s", dbPath, connParams)
}

// newID returns a time-ordered UUID, so sorting by id follows insertion order.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// timestamp returns the current time truncated to microseconds, which is
// what round-trips through the stored text format without surprises in
// equality checks.
func (db *DB) timestamp() time.Time {
	return db.now().UTC().Truncate(time.Microsecond)
}
