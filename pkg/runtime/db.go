package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	// database/sql drivers selectable through Config.Driver.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DB represents a database connection.
type DB struct {
	sql     *sql.DB
	pool    *pgxpool.Pool
	dialect Dialect
	logger  *zap.Logger
	slow    time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithLogger traces every statement on the given logger.
func WithLogger(logger *zap.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithSlowThreshold logs statements slower than d at warn level.
func WithSlowThreshold(d time.Duration) Option {
	return func(db *DB) {
		db.slow = d
	}
}

// NewDB creates a new DB instance from an open database/sql handle.
func NewDB(db *sql.DB, dialect Dialect, opts ...Option) *DB {
	d := &DB{
		sql:     db,
		dialect: dialect,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open opens a database/sql handle for driverName and wraps it without
// checking connectivity.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	dialect, err := DialectForDriver(driverName)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(NormalizeDriver(driverName), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}

	if dialect == SQLite {
		// Every connection to ":memory:" is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	return NewDB(sqlDB, dialect, opts...), nil
}

// Connect creates a new DB instance from config and verifies the connection.
// The pgx driver goes through a pgxpool.Pool; other drivers through
// database/sql directly.
func Connect(ctx context.Context, config *Config, opts ...Option) (*DB, error) {
	if driver := NormalizeDriver(config.Driver); driver == "" || driver == DriverPgx {
		return connectPgx(ctx, config, opts...)
	}

	db, err := Open(config.Driver, config.ConnectionString(), opts...)
	if err != nil {
		return nil, err
	}
	if config.MaxConns > 0 && db.dialect != SQLite {
		db.sql.SetMaxOpenConns(int(config.MaxConns))
	}
	if config.MinConns > 0 {
		db.sql.SetMaxIdleConns(int(config.MinConns))
	}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func connectPgx(ctx context.Context, config *Config, opts ...Option) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply pool configuration
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := NewDB(stdlib.OpenDBFromPool(pool), Postgres, opts...)
	db.pool = pool
	return db, nil
}

// SQL returns the underlying database/sql handle.
func (db *DB) SQL() *sql.DB {
	return db.sql
}

// Pool returns the underlying pgxpool.Pool, or nil when the connection was
// not opened through pgx.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Dialect returns the SQL dialect of the connection.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Logger returns the statement logger.
func (db *DB) Logger() *zap.Logger {
	return db.logger
}

// Close closes the database handle and, if present, the pgx pool.
func (db *DB) Close() error {
	var err error
	if db.sql != nil {
		err = db.sql.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil || db.sql == nil {
		return ErrNoConnection
	}
	return db.sql.PingContext(ctx)
}

// Exec executes a query without returning any rows.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if db == nil || db.sql == nil {
		return nil, ErrNoConnection
	}

	begin := time.Now()
	result, err := db.sql.ExecContext(ctx, query, args...)
	if err != nil {
		db.trace(begin, query, -1, err)
		return nil, &QueryError{Query: query, Err: err}
	}

	rows, rerr := result.RowsAffected()
	if rerr != nil {
		rows = -1
	}
	db.trace(begin, query, rows, nil)
	return result, nil
}

// Query executes a query that returns rows.
func (db *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if db == nil || db.sql == nil {
		return nil, ErrNoConnection
	}

	begin := time.Now()
	rows, err := db.sql.QueryContext(ctx, query, args...)
	db.trace(begin, query, -1, err)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return rows, nil
}

// Row is the result of QueryRow.
type Row struct {
	row *sql.Row
	err error
}

// Scan copies the columns of the row into dest. It returns sql.ErrNoRows
// when the query selected nothing.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return r.row.Scan(dest...)
}

// Err reports a connection or query error without scanning.
func (r *Row) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.row.Err()
}

// QueryRow executes a query that returns at most one row. Errors are
// deferred to Scan, as with database/sql.
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *Row {
	if db == nil || db.sql == nil {
		return &Row{err: ErrNoConnection}
	}

	begin := time.Now()
	row := db.sql.QueryRowContext(ctx, query, args...)
	db.trace(begin, query, -1, row.Err())
	return &Row{row: row}
}

func (db *DB) trace(begin time.Time, query string, rows int64, err error) {
	elapsed := time.Since(begin)

	fields := []zap.Field{
		zap.String("dialect", db.dialect.String()),
		zap.String("duration", fmt.Sprintf("%.3fms", float64(elapsed.Nanoseconds())/1e6)),
		zap.String("sql", query),
	}
	if rows != -1 {
		fields = append(fields, zap.Int64("rows", rows))
	}

	switch {
	case err != nil:
		fields = append(fields, zap.Error(err))
		db.logger.Error("SQL executed", fields...)
	case db.slow != 0 && elapsed > db.slow:
		db.logger.Warn("slow SQL", fields...)
	default:
		db.logger.Debug("SQL executed", fields...)
	}
}
