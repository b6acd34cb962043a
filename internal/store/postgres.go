// ABOUTME: Postgres implementation of Querier backed by a pgxpool connection pool
// ABOUTME: Explicit Init/Close lifecycle, per-call timeouts, and shutdown cancellation

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool defaults
const (
	DefaultMinConns       = 1
	DefaultMaxConns       = 10
	DefaultQueryTimeout   = 5 * time.Second
	DefaultConnectTimeout = 10 * time.Second
)

// Postgres error codes that mean the schema contract was broken.
const (
	sqlStateUndefinedTable  = "42P01"
	sqlStateUndefinedColumn = "42703"
)

// PoolConfig describes how to reach the database and size the pool.
// URL, when set, takes precedence over the individual connection fields.
type PoolConfig struct {
	URL      string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	MinConns       int32
	MaxConns       int32
	QueryTimeout   time.Duration
	ConnectTimeout time.Duration
}

// withDefaults fills zero values.
func (c PoolConfig) withDefaults() PoolConfig {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.Database == "" {
		c.Database = "postgres"
	}
	if c.User == "" {
		c.User = "postgres"
	}
	if c.SSLMode == "" {
		c.SSLMode = "require"
	}
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.MinConns < 0 {
		c.MinConns = 0
	}
	if c.MinConns > c.MaxConns {
		c.MinConns = c.MaxConns
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	return c
}

// connString builds a postgres:// URL from the discrete fields.
func (c PoolConfig) connString() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.Host == "" || c.Password == "" {
		return "", ErrMissingCredentials
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String(), nil
}

// Accessor owns the connection pool. It is an explicit handle: construct one
// per process (or per test) and pass it to whatever needs database access.
type Accessor struct {
	cfg    PoolConfig
	logger *slog.Logger

	mu       sync.RWMutex
	pool     *pgxpool.Pool
	shutdown context.Context
	cancel   context.CancelFunc
}

// Ensure Accessor implements Querier.
var _ Querier = (*Accessor)(nil)

// New creates an Accessor. No connections are opened until Init.
func New(cfg PoolConfig, logger *slog.Logger) *Accessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accessor{
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "store"),
	}
}

// Init creates the pool and verifies connectivity. Calling it on an already
// initialized Accessor returns ErrAlreadyInitialized and leaves the pool alone.
func (a *Accessor) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pool != nil {
		return ErrAlreadyInitialized
	}

	connString, err := a.cfg.connString()
	if err != nil {
		return err
	}

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MinConns = a.cfg.MinConns
	poolCfg.MaxConns = a.cfg.MaxConns
	poolCfg.ConnConfig.ConnectTimeout = a.cfg.ConnectTimeout
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "unwind-gateway"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("creating pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("connecting to database: %w", err)
	}

	a.pool = pool
	a.shutdown, a.cancel = context.WithCancel(context.Background())

	a.logger.Info("database pool created",
		"host", poolCfg.ConnConfig.Host,
		"port", poolCfg.ConnConfig.Port,
		"database", poolCfg.ConnConfig.Database,
		"min_conns", a.cfg.MinConns,
		"max_conns", a.cfg.MaxConns,
	)
	return nil
}

// Close cancels in-flight statements and closes every pooled connection.
// Safe to call more than once and before Init.
func (a *Accessor) Close() {
	a.mu.Lock()
	pool, cancel := a.pool, a.cancel
	a.pool, a.cancel = nil, nil
	a.mu.Unlock()

	if pool == nil {
		return
	}
	// Cancel first so pool.Close does not wait on long-running statements.
	cancel()
	pool.Close()
	a.logger.Info("database pool closed")
}

// Stat returns pool statistics, or nil before Init.
func (a *Accessor) Stat() *pgxpool.Stat {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.pool == nil {
		return nil
	}
	return a.pool.Stat()
}

// begin resolves the pool and derives a call context bounded by the query
// timeout and by Close.
func (a *Accessor) begin(ctx context.Context) (*pgxpool.Pool, context.Context, func(), error) {
	a.mu.RLock()
	pool, shutdown := a.pool, a.shutdown
	a.mu.RUnlock()

	if pool == nil {
		return nil, nil, nil, ErrNotInitialized
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout)
	stop := context.AfterFunc(shutdown, cancel)
	return pool, callCtx, func() {
		stop()
		cancel()
	}, nil
}

// FetchOne returns the first row, or nil when there is none.
func (a *Accessor) FetchOne(ctx context.Context, statement string, args ...any) (Row, error) {
	pool, callCtx, done, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	rows, err := pool.Query(callCtx, statement, args...)
	if err != nil {
		return nil, a.wrapError(statement, args, err)
	}
	row, err := pgx.CollectOneRow(rows, collectRow)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, a.wrapError(statement, args, err)
	}
	return row, nil
}

// FetchAll returns every row produced by the statement.
func (a *Accessor) FetchAll(ctx context.Context, statement string, args ...any) ([]Row, error) {
	pool, callCtx, done, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	rows, err := pool.Query(callCtx, statement, args...)
	if err != nil {
		return nil, a.wrapError(statement, args, err)
	}
	result, err := pgx.CollectRows(rows, collectRow)
	if err != nil {
		return nil, a.wrapError(statement, args, err)
	}
	if result == nil {
		result = []Row{}
	}
	return result, nil
}

// Execute runs a mutation and returns the number of affected rows.
func (a *Accessor) Execute(ctx context.Context, statement string, args ...any) (int64, error) {
	pool, callCtx, done, err := a.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer done()

	tag, err := pool.Exec(callCtx, statement, args...)
	if err != nil {
		return 0, a.wrapError(statement, args, err)
	}
	return tag.RowsAffected(), nil
}

// ExecuteReturning runs a mutation with a RETURNING clause and returns its rows.
func (a *Accessor) ExecuteReturning(ctx context.Context, statement string, args ...any) ([]Row, error) {
	return a.FetchAll(ctx, statement, args...)
}

// collectRow adapts pgx.RowToMap to the Row type.
func collectRow(row pgx.CollectableRow) (Row, error) {
	m, err := pgx.RowToMap(row)
	if err != nil {
		return nil, err
	}
	return Row(m), nil
}

// wrapError classifies a driver error and logs it without parameter values.
func (a *Accessor) wrapError(statement string, args []any, err error) error {
	var wrapped error
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && isSchemaCode(pgErr.Code) {
		wrapped = &SchemaMismatchError{Relation: pgErr.TableName, Err: newQueryError(statement, len(args), err)}
	} else {
		wrapped = newQueryError(statement, len(args), err)
	}

	a.logger.Error("query failed",
		"statement", summarizeStatement(statement),
		"params", len(args),
		"error", describeCause(err),
	)
	return wrapped
}

func isSchemaCode(code string) bool {
	return code == sqlStateUndefinedTable || code == sqlStateUndefinedColumn
}
