package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

func (d Dialect) IsValid() bool {
	return d == DialectPostgres || d == DialectMySQL
}

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "mysql"
}

// Store is the shared handle every repository in this package works through.
// Queries are written with '?' placeholders and rebound for the dialect.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	now     func() time.Time
}

type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func Open(ctx context.Context, dialect Dialect, dsn string, pool PoolOptions) (*Store, error) {
	if !dialect.IsValid() {
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}
	if dialect == DialectMySQL {
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		dsn = cfg.FormatDSN()
	}

	db, err := sqlx.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}

	return New(db.DB, dialect), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      sqlx.NewDb(db, dialect.driverName()),
		dialect: dialect,
		now:     time.Now,
	}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// insert runs an INSERT and returns the generated id.
func (s *Store) insert(ctx context.Context, ext sqlx.ExtContext, query string, args ...any) (int64, error) {
	if s.dialect == DialectPostgres {
		var id int64
		if err := sqlx.GetContext(ctx, ext, &id, s.rebind(query+" RETURNING id"), args...); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := ext.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (retErr error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// limitClause appends LIMIT/OFFSET when a positive limit is given.
func limitClause(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	if offset < 0 {
		offset = 0
	}
	return query + " LIMIT ? OFFSET ?", append(args, limit, offset)
}
