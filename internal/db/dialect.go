package db

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/kuitang/drupal-e2e/internal/errs"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect captures the SQL differences between the supported backends.
type Dialect struct {
	Name       string // mysql, postgres or sqlite
	DriverName string // database/sql driver name
}

var (
	MySQL    = Dialect{Name: "mysql", DriverName: "mysql"}
	Postgres = Dialect{Name: "postgres", DriverName: "postgres"}
	SQLite   = Dialect{Name: "sqlite", DriverName: SQLiteDriverName}
)

// DialectFor returns the dialect for a configured driver name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "pgsql", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, errs.New(errs.InvalidArgument, fmt.Sprintf("unsupported database driver %q", name))
	}
}

// QuoteIdent validates and quotes a table or column name.
func (d Dialect) QuoteIdent(name string) (string, error) {
	if !identPattern.MatchString(name) {
		return "", errs.New(errs.InvalidArgument, fmt.Sprintf("invalid SQL identifier %q", name))
	}
	switch d.Name {
	case "mysql":
		return "`" + name + "`", nil
	case "postgres":
		return pq.QuoteIdentifier(name), nil
	default:
		return `"` + name + `"`, nil
	}
}

// Rebind rewrites '?' placeholders for the dialect. Postgres gets $1..$n;
// question marks inside quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d.Name != "postgres" || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote rune
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Placeholders returns n comma-separated '?' markers for an IN list.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
