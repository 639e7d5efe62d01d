// Package sqlstore implements every loadboard store on database/sql. The same
// queries run on PostgreSQL (lib/pq, production) and SQLite (modernc, local
// runs and tests); queries are written with ? placeholders and rebound for
// Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/Tanmoy095/loadboard/store"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// Store manages database operations for shipments, bids, listings and the
// marketplace projection.
type Store struct {
	db      *sql.DB
	dialect Dialect
	txOpts  *sql.TxOptions
	now     func() time.Time
}

// Open connects with the named driver ("postgres" or "sqlite"), verifies the
// connection and applies the embedded migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		db      *sql.DB
		err     error
		dialect Dialect
	)
	switch driver {
	case "postgres":
		dialect = Postgres
		db, err = sql.Open("postgres", dsn)
	case "sqlite":
		dialect = SQLite
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s db: %w", driver, err)
	}
	if dialect == SQLite {
		// One writer at a time; transactions carry their own connection so
		// this never deadlocks as long as tx-scoped code uses the tx.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s db: %w", driver, err)
	}
	s := New(db, dialect)
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// New wraps an already open handle without running migrations.
func New(db *sql.DB, dialect Dialect) *Store {
	s := &Store{db: db, dialect: dialect, now: func() time.Time { return time.Now().UTC() }}
	if dialect == Postgres {
		s.txOpts = &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	return s
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks the connection; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or the pool.
func (s *Store) conn(ctx context.Context) execer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn(ctx).ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn(ctx).QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn(ctx).QueryRowContext(ctx, s.rebind(query), args...)
}

// rebind rewrites ? placeholders to $1..$n for Postgres. Queries in this
// package never contain a literal question mark.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// inClause returns "?, ?, ?" for n values together with the values as args.
func inClause[T ~string](values []T) (string, []any) {
	marks := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		marks[i] = "?"
		args[i] = string(v)
	}
	return strings.Join(marks, ", "), args
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(v *string) sql.NullString {
	if v == nil || *v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

var (
	_ store.TransactionManager = (*Store)(nil)
	_ store.ShipmentStore      = (*Store)(nil)
	_ store.BidStore           = (*Store)(nil)
	_ store.ListingStore       = (*Store)(nil)
	_ store.MarketplaceStore   = (*Store)(nil)
	_ store.ReadModel          = (*Store)(nil)
	_ store.MetricsStore       = (*Store)(nil)
)
