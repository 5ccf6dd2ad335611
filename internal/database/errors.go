package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Outcome is the non-error result of a mutation.
type Outcome int

const (
	// OutcomeApplied means the write changed at least one row
	OutcomeApplied Outcome = iota
	// OutcomeNotFound means no row matched the key
	OutcomeNotFound
	// OutcomeExists means the tuple was already present and nothing was written
	OutcomeExists
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeNotFound:
		return "not found"
	case OutcomeExists:
		return "already exists"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrorKind classifies a data-access failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConnectivity means the store could not be reached or opened
	KindConnectivity
	// KindDuplicate means a client-supplied key already exists
	KindDuplicate
	// KindConstraint covers foreign key, check and trigger violations
	KindConstraint
	// KindInvalid means the input was rejected before reaching the store
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindDuplicate:
		return "duplicate"
	case KindConstraint:
		return "constraint"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

var (
	// ErrFilterRequired is returned when a filter query is issued without a filter value
	ErrFilterRequired = errors.New("filter value is required")

	// ErrUnavailable wraps failures to obtain a connection from the pool
	ErrUnavailable = errors.New("database unavailable")
)

// ValidationError reports input rejected before it reaches the store
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Kind classifies err into one of the data-access error kinds.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var verr ValidationError
	if errors.As(err, &verr) || errors.Is(err, ErrFilterRequired) {
		return KindInvalid
	}

	if errors.Is(err, ErrUnavailable) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return KindConnectivity
	}

	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return KindUnknown
	}

	code := serr.Code()
	switch code {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return KindDuplicate
	}

	switch code & 0xff {
	case sqlite3.SQLITE_CONSTRAINT:
		return KindConstraint
	case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_BUSY:
		return KindConnectivity
	}

	return KindUnknown
}

// IsDuplicate reports whether err is a duplicate-key violation
func IsDuplicate(err error) bool {
	return Kind(err) == KindDuplicate
}
