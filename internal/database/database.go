package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection pool
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection
func New(path string) (*DB, error) {
	// Pragmas are applied per pooled connection, so foreign keys hold on all of them
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite with WAL mode supports concurrent reads but serializes writes
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	log.Debug().Str("path", path).Msg("Database connection established")

	return &DB{
		DB:   db,
		path: path,
	}, nil
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// WithConn acquires a dedicated connection for the duration of fn.
// The connection is returned to the pool on every exit path.
func (db *DB) WithConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w: %w", ErrUnavailable, err)
	}
	defer func() {
		if cErr := conn.Close(); cErr != nil {
			log.Warn().Err(cErr).Msg("Failed to release connection")
		}
	}()

	return fn(conn)
}

// Transaction wraps fn in a database transaction on a dedicated connection.
// An error or panic from fn rolls the transaction back before the connection is released.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	return db.WithConn(ctx, func(conn *sql.Conn) (err error) {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		committed := false
		defer func() {
			if committed {
				return
			}
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		}()

		if err := fn(tx); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		committed = true

		return nil
	})
}
