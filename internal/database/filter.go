package database

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// foldFunc is a Unicode-aware replacement for LOWER, which only folds ASCII.
const foldFunc = "fold_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(foldFunc, 1, foldLower); err != nil {
		panic(err)
	}
}

// foldLower lowercases text the same way likePattern lowercases search terms.
func foldLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// predicate is a single WHERE fragment with its bound arguments.
// Fragment text only ever contains column names chosen by this package and
// placeholders; user input travels in args.
type predicate struct {
	clause string
	args   []any
}

// whereBuilder composes predicates joined with AND.
type whereBuilder struct {
	preds []predicate
}

// equals adds "column = ?".
func (w *whereBuilder) equals(column string, value any) *whereBuilder {
	w.preds = append(w.preds, predicate{clause: column + " = ?", args: []any{value}})
	return w
}

// contains adds a case-insensitive substring match on one column.
// An empty term adds nothing.
func (w *whereBuilder) contains(column, term string) *whereBuilder {
	return w.anyContains(term, column)
}

// anyContains adds a case-insensitive substring match that succeeds when any of
// the columns matches. An empty term adds nothing.
func (w *whereBuilder) anyContains(term string, columns ...string) *whereBuilder {
	if term == "" || len(columns) == 0 {
		return w
	}

	pattern := likePattern(term)
	parts := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, foldFunc+"("+col+`) LIKE ? ESCAPE '\'`)
		args = append(args, pattern)
	}

	clause := strings.Join(parts, " OR ")
	if len(parts) > 1 {
		clause = "(" + clause + ")"
	}
	w.preds = append(w.preds, predicate{clause: clause, args: args})
	return w
}

// build returns the WHERE clause (empty when no predicates) and its arguments.
func (w *whereBuilder) build() (string, []any) {
	if len(w.preds) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(w.preds))
	var args []any
	for _, p := range w.preds {
		clauses = append(clauses, p.clause)
		args = append(args, p.args...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a free-text term into a lowercase substring LIKE pattern
// with wildcards in the term escaped.
func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
