package store

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ultramynd/notesync/migrations"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqliteTimeLayout is fixed width so that lexical order equals time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000Z"

// dialect captures the few places where SQLite and PostgreSQL differ.
// Queries are written with ? placeholders and rebound per dialect.
type dialect struct {
	name          string
	sqlDriver     string
	gooseDialect  string
	migrationsDir string
	numbered      bool
}

var (
	sqliteDialect = dialect{
		name:          DriverSQLite,
		sqlDriver:     "sqlite",
		gooseDialect:  "sqlite3",
		migrationsDir: migrations.SQLiteDir,
	}
	postgresDialect = dialect{
		name:          DriverPostgres,
		sqlDriver:     "pgx",
		gooseDialect:  "postgres",
		migrationsDir: migrations.PostgresDir,
		numbered:      true,
	}
)

func dialectFor(driverName string) (dialect, error) {
	switch driverName {
	case DriverSQLite, "sqlite3", "":
		return sqliteDialect, nil
	case DriverPostgres, "pgx", "postgresql":
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driverName)
	}
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL.
// Question marks inside single-quoted literals are left alone.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// timeArg converts a time to the value bound for a timestamp column.
func (d dialect) timeArg(t time.Time) any {
	t = t.UTC().Truncate(time.Millisecond)
	if d.name == DriverSQLite {
		return t.Format(sqliteTimeLayout)
	}
	return t
}

// dbTime scans a timestamp column from either dialect.
type dbTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	if s == "" {
		t.Time, t.Valid = time.Time{}, false
		return nil
	}
	parsed, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		if parsed, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return fmt.Errorf("parse timestamp %q: %w", s, err)
		}
	}
	t.Time, t.Valid = parsed.UTC(), true
	return nil
}

// Value implements driver.Valuer so dbTime can round-trip in tests.
func (t dbTime) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time.UTC().Format(sqliteTimeLayout), nil
}

// ptr returns a pointer to the scanned time, or nil when NULL.
func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
