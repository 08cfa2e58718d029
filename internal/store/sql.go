package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/ultramynd/notesync/internal/types"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a SQLStore.
type Option func(*SQLStore)

// WithClock overrides the clock used for created_at and timestamp substitution.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) { s.now = now }
}

// WithLogger sets the logger used by the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLStore) { s.logger = l }
}

// NewSQLStore opens the database for the given driver, applies
// connection settings and runs migrations.
func NewSQLStore(driverName, dsn string, opts ...Option) (*SQLStore, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}

	if d.name == DriverSQLite {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d.name == DriverSQLite {
		// SQLite permits a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLStore{
		db:      db,
		dialect: d,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store", "driver", d.name)
	return s, nil
}

// NewSQLiteStore opens a SQLite database file.
func NewSQLiteStore(path string, opts ...Option) (*SQLStore, error) {
	return NewSQLStore(DriverSQLite, path, opts...)
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	return nil
}

// sqliteDSN appends the connection pragmas as modernc _pragma parameters
// so that every pooled connection gets them.
func sqliteDSN(dsn string) string {
	pragmas := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=busy_timeout(5000)",
		"_pragma=synchronous(NORMAL)",
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for tooling and tests.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Driver returns the dialect name, "sqlite" or "postgres".
func (s *SQLStore) Driver() string {
	return s.dialect.name
}

func (s *SQLStore) nowUTC() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(query)
}

// withTx runs fn in a transaction, committing on nil error.
func (s *SQLStore) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetStats returns aggregate store statistics
func (s *SQLStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.Users)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	err = s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM takeaways WHERE is_deleted = ?`), false).Scan(&stats.Takeaways)
	if err != nil {
		return nil, fmt.Errorf("count takeaways: %w", err)
	}

	err = s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM takeaway_embeddings WHERE status = ?`), types.EmbeddingStatusComplete).Scan(&stats.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("count embeddings: %w", err)
	}

	err = s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM takeaways t
		LEFT JOIN takeaway_embeddings e ON e.takeaway_id = t.takeaway_id
		WHERE t.is_deleted = ? AND (e.takeaway_id IS NULL OR e.source_updated_at < t.updated_at)
	`), false).Scan(&stats.PendingEmbeddings)
	if err != nil {
		return nil, fmt.Errorf("count pending embeddings: %w", err)
	}

	return &stats, nil
}

var _ Store = (*SQLStore)(nil)
