package db

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// SQLiteDriverName is the SQLite driver with the SQL functions Drupal's
	// SQLite backend registers on every connection.
	SQLiteDriverName = "sqlite3_drupal"
)

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			funcs := []struct {
				name string
				impl any
			}{
				{"regexp", sqliteRegexp},
				{"greatest", sqliteGreatest},
			}
			for _, f := range funcs {
				if err := conn.RegisterFunc(f.name, f.impl, true); err != nil {
					// Some SQLite builds already expose these.
					if strings.Contains(strings.ToLower(err.Error()), "already exists") {
						continue
					}
					return fmt.Errorf("register %s SQL function: %w", f.name, err)
				}
			}
			return nil
		},
	})
}

// sqliteRegexp backs "subject REGEXP pattern", which SQLite rewrites as regexp(pattern, subject).
func sqliteRegexp(pattern, subject string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("regexp %q: %w", pattern, err)
	}
	return re.MatchString(subject), nil
}

func sqliteGreatest(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
