package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Row is a single result row keyed by column name.
type Row map[string]any

// Select runs a parameterized read on a scoped connection and returns the rows in order.
func (db *DB) Select(ctx context.Context, query string, args ...any) ([]Row, error) {
	var out []Row
	err := db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return err
		}

		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}

			row := make(Row, len(cols))
			for i, col := range cols {
				if b, ok := values[i].([]byte); ok {
					row[col] = string(b)
					continue
				}
				row[col] = values[i]
			}
			out = append(out, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run select: %w", err)
	}
	return out, nil
}

// Mutate runs a parameterized insert, update or delete in its own transaction and
// returns the number of affected rows. Zero affected rows means nothing matched.
func (db *DB) Mutate(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to run mutation: %w", err)
	}
	return affected, nil
}

// queryRows runs a read on a scoped connection and hands each row to scan.
func (db *DB) queryRows(ctx context.Context, scan func(*sql.Rows) error, query string, args ...any) error {
	return db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			if err := scan(rows); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

// queryRow runs a single-row read on a scoped connection.
// It returns sql.ErrNoRows unchanged so callers can map it to a not-found value.
func (db *DB) queryRow(ctx context.Context, dest []any, query string, args ...any) error {
	return db.WithConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
}

// exists reports whether query returns at least one row.
func exists(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// outcomeOf maps an affected-row count to an Outcome.
func outcomeOf(affected int64) Outcome {
	if affected == 0 {
		return OutcomeNotFound
	}
	return OutcomeApplied
}
