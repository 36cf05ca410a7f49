package sqldb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3/database"
)

// Dialect names a supported SQL backend.
type Dialect string

// Supported dialects. The values match the database.driver config key.
const (
	Postgres  Dialect = "postgres"
	SQLServer Dialect = "sqlserver"
	MySQL     Dialect = "mysql"
	SQLite    Dialect = "sqlite"
)

// ErrUnsupportedDialect is returned for an unknown database.driver value.
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// ParseDialect converts a config value into a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(name))); d {
	case Postgres, SQLServer, MySQL, SQLite:
		return d, nil
	case "mssql":
		return SQLServer, nil
	case "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	switch d {
	case Postgres:
		return "pgx"
	case SQLServer:
		return "sqlserver"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	default:
		return ""
	}
}

// GooseDialect returns the goose dialect used to track schema versions.
func (d Dialect) GooseDialect() database.Dialect {
	switch d {
	case Postgres:
		return database.DialectPostgres
	case SQLServer:
		return database.DialectMSSQL
	case MySQL:
		return database.DialectMySQL
	case SQLite:
		return database.DialectSQLite3
	default:
		return ""
	}
}

// Placeholder returns the bind parameter for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	switch d {
	case Postgres:
		return "$" + strconv.Itoa(n)
	case SQLServer:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// Rebind rewrites the '?' placeholders of query into the dialect's bind
// syntax. Question marks inside single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != Postgres && d != SQLServer {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
			b.WriteRune(r)
		case r == '?' && !quoted:
			n++
			b.WriteString(d.Placeholder(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// String implements fmt.Stringer.
func (d Dialect) String() string {
	return string(d)
}
