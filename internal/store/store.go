// ABOUTME: Querier interface, row type, and error taxonomy for database access
// ABOUTME: Tool functions depend on Querier so tests can swap in MockQuerier

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotInitialized is returned when a query runs before Init or after Close.
var ErrNotInitialized = errors.New("database pool not initialized")

// ErrAlreadyInitialized is returned by a second call to Init.
var ErrAlreadyInitialized = errors.New("database pool already initialized")

// ErrMissingCredentials is returned when neither a URL nor host+password are configured.
var ErrMissingCredentials = errors.New("missing required database credentials (host and password)")

// Row is a single result row keyed by column name.
type Row map[string]any

// Querier runs single parameterized statements. Every call borrows a pooled
// connection for its own duration only.
type Querier interface {
	// FetchOne returns the first row, or nil when the statement produced none.
	FetchOne(ctx context.Context, statement string, args ...any) (Row, error)
	// FetchAll returns every row; the slice is empty, never nil, when nothing matched.
	FetchAll(ctx context.Context, statement string, args ...any) ([]Row, error)
	// Execute runs a mutation and returns the affected row count.
	Execute(ctx context.Context, statement string, args ...any) (int64, error)
	// ExecuteReturning runs a mutation with a RETURNING clause.
	ExecuteReturning(ctx context.Context, statement string, args ...any) ([]Row, error)
}

// maxStatementSummary bounds how much SQL text ends up in errors and logs.
const maxStatementSummary = 100

// summarizeStatement collapses whitespace and truncates a statement for error context.
func summarizeStatement(statement string) string {
	s := strings.Join(strings.Fields(statement), " ")
	if len(s) > maxStatementSummary {
		return s[:maxStatementSummary] + "..."
	}
	return s
}

// QueryError wraps a driver failure. It carries the statement and the number of
// bound parameters but never their values, which would leak tenant data.
type QueryError struct {
	Statement  string
	ParamCount int
	Err        error
}

func newQueryError(statement string, paramCount int, err error) *QueryError {
	return &QueryError{
		Statement:  summarizeStatement(statement),
		ParamCount: paramCount,
		Err:        err,
	}
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed (%d params): %s: %s", e.ParamCount, e.Statement, describeCause(e.Err))
}

// describeCause renders a driver error without server messages that may echo
// bound values. Schema errors keep their message since it only names objects.
func describeCause(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err.Error()
	}
	if isSchemaCode(pgErr.Code) {
		return fmt.Sprintf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	}
	return "SQLSTATE " + pgErr.Code
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError reports that the externally owned schema no longer has a
// relation or column these statements rely on.
type SchemaMismatchError struct {
	Relation string
	Missing  []string
	Err      error
}

func (e *SchemaMismatchError) Error() string {
	switch {
	case e.Relation != "" && len(e.Missing) > 0:
		return fmt.Sprintf("schema mismatch: %s is missing columns %s", e.Relation, strings.Join(e.Missing, ", "))
	case e.Relation != "" && e.Err != nil:
		return fmt.Sprintf("schema mismatch on %s: %v", e.Relation, e.Err)
	case e.Relation != "":
		return fmt.Sprintf("schema mismatch: relation %s does not exist", e.Relation)
	case e.Err != nil:
		return fmt.Sprintf("schema mismatch: %v", e.Err)
	default:
		return "schema mismatch"
	}
}

func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}
