package database

import (
	"database/sql"
)

// nullStringToPtr converts a sql.NullString to a pointer (nil if not valid)
func nullStringToPtr(n sql.NullString) *string {
	if n.Valid {
		return &n.String
	}
	return nil
}

// nullInt64ToPtr converts a sql.NullInt64 to a pointer (nil if not valid)
func nullInt64ToPtr(n sql.NullInt64) *int64 {
	if n.Valid {
		return &n.Int64
	}
	return nil
}

// ptrToNullString converts an optional string to a sql.NullString.
// Nil and empty strings are both stored as NULL.
func ptrToNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// ptrToNullInt64 converts an optional int64 to a sql.NullInt64
func ptrToNullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
