/*
Package sqldb provides a SQL-backed implementation of fuel.Store.

PURPOSE:
  One database/sql store serving both SQLite (mattn/go-sqlite3) and
  PostgreSQL (pgx stdlib). Queries are written once with "?" placeholders;
  a dialect value rebinds them and encodes times for the engine.

DIALECT DIFFERENCES:
  - Placeholders: "?" for SQLite, "$n" for PostgreSQL
  - Times:        SQLite stores fixed-width UTC text so that string order is
                  time order; PostgreSQL binds time.Time into TIMESTAMPTZ
  - Decimals:     TEXT in SQLite, NUMERIC in PostgreSQL; both are scanned
                  as strings and parsed once with fuel.ParseLitres

  Year/month/day filters never reach SQL as EXTRACT or strftime. The
  filter is first collapsed to a [from, to) interval (fuel.EventFilter.Bounds),
  so one WHERE builder serves both engines.

KEY TABLES:
  users:       Accounts (unique username, optional unique email)
  places:      Where machinery sits
  machinery:   Equipment with optional capacity
  fuel_events: Consumption, refill and maintenance records

INDEXES:
  - idx_fuel_events_machinery_occurred: per-machine tank analysis (hot path)
  - idx_fuel_events_occurred: list, summaries, central tank

MIGRATIONS:
  Embedded per-dialect SQL run through a goose Provider on Open.

TIMEOUTS:
  Every statement runs under Options.QueryTimeout (default 5s).

USAGE:
  st, err := sqldb.Open(ctx, "sqlite://fuel.db", sqldb.Options{})
  if err != nil {
      log.Fatal().Err(err).Msg("open store")
  }
  defer st.Close()

SEE ALSO:
  - fuel/store.go: Interface definitions
  - fuel/store/memory.go: In-memory implementation for testing
*/
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/warp/fuel-engine/fuel"
)

// DefaultQueryTimeout bounds every statement when Options leaves it unset.
const DefaultQueryTimeout = 5 * time.Second

//go:embed migrations
var migrationsFS embed.FS

// =============================================================================
// DIALECT
// =============================================================================

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// sqliteTimeLayout is fixed width so lexical order equals time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

func (d dialect) gooseDialect() goose.Dialect {
	if d == dialectPostgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

// rebind rewrites "?" placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg encodes t for binding.
func (d dialect) timeArg(t time.Time) any {
	if d == dialectPostgres {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

var timeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// parseTime decodes a stored timestamp. Unparseable values become the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// =============================================================================
// STORE
// =============================================================================

type Options struct {
	// QueryTimeout bounds every statement. Zero means DefaultQueryTimeout.
	QueryTimeout time.Duration

	// Logger receives migration progress. Zero value logs nothing.
	Logger zerolog.Logger

	// Now stamps created_at. Defaults to time.Now.
	Now func() time.Time
}

type Store struct {
	db      *sql.DB
	dialect dialect
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

var _ fuel.Store = (*Store)(nil)

// Open picks the engine from the URL scheme:
//
//	sqlite://fuel.db, sqlite://:memory:  -> SQLite
//	postgres://..., postgresql://...     -> PostgreSQL
func Open(ctx context.Context, url string, opts Options) (*Store, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"), opts)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url, opts)
	default:
		return nil, fmt.Errorf("unsupported database url %q", url)
	}
}

// OpenSQLite opens a SQLite database at path. Use ":memory:" for an
// in-memory database.
func OpenSQLite(ctx context.Context, path string, opts Options) (*Store, error) {
	dsn := path + "?_foreign_keys=on"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)
	return newStore(ctx, db, dialectSQLite, opts)
}

// OpenPostgres opens a PostgreSQL database through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return newStore(ctx, db, dialectPostgres, opts)
}

func newStore(ctx context.Context, db *sql.DB, d dialect, opts Options) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: d,
		timeout: opts.QueryTimeout,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultQueryTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}

	pingCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach %s database: %w", d, err)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate applies the embedded migrations of the store's dialect.
func (s *Store) migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationsFS, "migrations/"+s.dialect.String())
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(s.dialect.gooseDialect(), s.db, sub)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		s.log.Info().
			Str("dialect", s.dialect.String()).
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("took", r.Duration).
			Msg("migration applied")
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks the database is reachable within the query timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Reset deletes all events, machinery and places. Users are kept.
func (s *Store) Reset(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"fuel_events", "machinery", "places"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insert runs an INSERT ... RETURNING id and returns the new id.
func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(query+" RETURNING id"), args...).Scan(&id)
	return id, err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullLitres stores zero as NULL (unknown).
func nullLitres(l fuel.Litres) sql.NullString {
	if l.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: l.String(), Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
