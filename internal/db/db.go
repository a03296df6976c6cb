// Package db is the direct database connection the helpers use to read
// fixture values (last inserted IDs, aliases, user names) from the site under
// test and to make small out-of-band writes (publish flags, cache bins).
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/logutil"
	"github.com/kuitang/drupal-e2e/internal/obs"
)

const (
	// MaxOpenConns bounds the pool; helpers issue one statement at a time.
	MaxOpenConns = 4

	// MaxIdleConns is the number of idle connections kept for reuse.
	MaxIdleConns = 2

	// ConnMaxLifetime recycles connections so long suites survive server-side timeouts.
	ConnMaxLifetime = 5 * time.Minute

	logSQLChars = 300
)

// Criteria is an equality filter: column => value, joined with AND.
type Criteria map[string]any

// Client wraps the sql.DB connection to the site's database.
type Client struct {
	db      *sql.DB
	dialect Dialect
}

// NewClient wraps an existing sql.DB.
func NewClient(sqlDB *sql.DB, dialect Dialect) *Client {
	return &Client{db: sqlDB, dialect: dialect}
}

// Open connects to the database for the given driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*Client, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	var sqlDB *sql.DB
	switch dialect.Name {
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "invalid mysql DSN", err)
		}
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "invalid mysql DSN", err)
		}
		sqlDB = sql.OpenDB(connector)
	case "postgres":
		connector, err := pq.NewConnector(dsn)
		if err != nil {
			return nil, errs.Wrap(errs.InvalidArgument, "invalid postgres DSN", err)
		}
		sqlDB = sql.OpenDB(connector)
	default:
		sqlDB, err = sql.Open(dialect.DriverName, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
	}

	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)
	sqlDB.SetConnMaxLifetime(ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, errs.Wrap(errs.Unavailable,
			fmt.Sprintf("database %s unreachable", logutil.RedactDSN(dialect.Name, dsn)), err)
	}

	obs.From(ctx, "db").Debug("database connected",
		"driver", dialect.Name,
		"dsn", logutil.RedactDSN(dialect.Name, dsn),
	)
	return NewClient(sqlDB, dialect), nil
}

// DB returns the underlying sql.DB for direct access when needed.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Dialect returns the SQL dialect of the connection.
func (c *Client) Dialect() Dialect {
	return c.dialect
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// Query runs a statement written with '?' placeholders and returns the rows.
func (c *Client) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query = c.dialect.Rebind(query)
	c.logStatement(ctx, query, len(args))
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", logutil.FormatSQLForLog(query, logSQLChars), err)
	}
	return rows, nil
}

// Exec runs a statement written with '?' placeholders.
func (c *Client) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = c.dialect.Rebind(query)
	c.logStatement(ctx, query, len(args))
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec %q: %w", logutil.FormatSQLForLog(query, logSQLChars), err)
	}
	return res, nil
}

// GrabColumn returns the first column of the first row, like PDO fetchColumn.
// The result is invalid when there is no row or the value is NULL.
func (c *Client) GrabColumn(ctx context.Context, query string, args ...any) (sql.NullString, error) {
	query = c.dialect.Rebind(query)
	c.logStatement(ctx, query, len(args))

	var value sql.NullString
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.NullString{}, nil
	}
	if err != nil {
		return sql.NullString{}, fmt.Errorf("query %q: %w", logutil.FormatSQLForLog(query, logSQLChars), err)
	}
	return value, nil
}

// GrabInt is GrabColumn for integer results. ok is false when there is no value.
func (c *Client) GrabInt(ctx context.Context, query string, args ...any) (value int64, ok bool, err error) {
	query = c.dialect.Rebind(query)
	c.logStatement(ctx, query, len(args))

	var v sql.NullInt64
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query %q: %w", logutil.FormatSQLForLog(query, logSQLChars), err)
	}
	return v.Int64, v.Valid, nil
}

// GrabRow returns the first row as column => value. Byte slices become strings.
func (c *Client) GrabRow(ctx context.Context, query string, args ...any) (map[string]any, error) {
	rows, err := c.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		return nil, errs.New(errs.NotFound, "no row matched")
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := make(map[string]any, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}

// GrabMax returns MAX(column) from table, optionally filtered by a raw WHERE
// fragment that may contain '?' placeholders bound to args.
func (c *Client) GrabMax(ctx context.Context, table, column, where string, args ...any) (sql.NullString, error) {
	t, err := c.dialect.QuoteIdent(table)
	if err != nil {
		return sql.NullString{}, err
	}
	col, err := c.dialect.QuoteIdent(column)
	if err != nil {
		return sql.NullString{}, err
	}
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", col, t)
	if strings.TrimSpace(where) != "" {
		query += " WHERE " + where
	}
	return c.GrabColumn(ctx, query, args...)
}

// GrabMaxInt is GrabMax for integer ID columns.
func (c *Client) GrabMaxInt(ctx context.Context, table, column, where string, args ...any) (int64, bool, error) {
	t, err := c.dialect.QuoteIdent(table)
	if err != nil {
		return 0, false, err
	}
	col, err := c.dialect.QuoteIdent(column)
	if err != nil {
		return 0, false, err
	}
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", col, t)
	if strings.TrimSpace(where) != "" {
		query += " WHERE " + where
	}
	return c.GrabInt(ctx, query, args...)
}

// GrabFromDatabase returns column from the first row of table matching criteria.
func (c *Client) GrabFromDatabase(ctx context.Context, table, column string, criteria Criteria) (string, error) {
	t, err := c.dialect.QuoteIdent(table)
	if err != nil {
		return "", err
	}
	col, err := c.dialect.QuoteIdent(column)
	if err != nil {
		return "", err
	}
	where, args, err := c.whereClause(criteria)
	if err != nil {
		return "", err
	}

	value, err := c.GrabColumn(ctx, fmt.Sprintf("SELECT %s FROM %s%s", col, t, where), args...)
	if err != nil {
		return "", err
	}
	if !value.Valid {
		return "", errs.New(errs.NotFound, fmt.Sprintf("no %s.%s matching %s", table, column, describeCriteria(criteria)))
	}
	return value.String, nil
}

// CountRecords counts rows of table matching criteria.
func (c *Client) CountRecords(ctx context.Context, table string, criteria Criteria) (int64, error) {
	t, err := c.dialect.QuoteIdent(table)
	if err != nil {
		return 0, err
	}
	where, args, err := c.whereClause(criteria)
	if err != nil {
		return 0, err
	}
	n, _, err := c.GrabInt(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", t, where), args...)
	return n, err
}

// SeeNumRecords asserts that exactly expected rows of table match criteria.
func (c *Client) SeeNumRecords(ctx context.Context, expected int64, table string, criteria Criteria) error {
	n, err := c.CountRecords(ctx, table, criteria)
	if err != nil {
		return err
	}
	if n != expected {
		return errs.Assertf("expected %d record(s) in %s matching %s, found %d", expected, table, describeCriteria(criteria), n)
	}
	return nil
}

// DeleteFrom removes every row of table matching criteria and returns the count.
// Empty criteria empties the table.
func (c *Client) DeleteFrom(ctx context.Context, table string, criteria Criteria) (int64, error) {
	t, err := c.dialect.QuoteIdent(table)
	if err != nil {
		return 0, err
	}
	where, args, err := c.whereClause(criteria)
	if err != nil {
		return 0, err
	}
	res, err := c.Exec(ctx, fmt.Sprintf("DELETE FROM %s%s", t, where), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// TableExists reports whether table is present in the current database.
func (c *Client) TableExists(ctx context.Context, table string) (bool, error) {
	if _, err := c.dialect.QuoteIdent(table); err != nil {
		return false, err
	}
	var query string
	switch c.dialect.Name {
	case "mysql":
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	case "postgres":
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?"
	default:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
	n, _, err := c.GrabInt(ctx, query, table)
	return n > 0, err
}

// whereClause builds " WHERE a = ? AND b = ?" with columns in sorted order.
func (c *Client) whereClause(criteria Criteria) (string, []any, error) {
	if len(criteria) == 0 {
		return "", nil, nil
	}
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		col, err := c.dialect.QuoteIdent(k)
		if err != nil {
			return "", nil, err
		}
		if criteria[k] == nil {
			parts = append(parts, col+" IS NULL")
			continue
		}
		parts = append(parts, col+" = ?")
		args = append(args, criteria[k])
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func describeCriteria(criteria Criteria) string {
	if len(criteria) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, criteria[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (c *Client) logStatement(ctx context.Context, query string, nargs int) {
	obs.From(ctx, "db").Debug("sql",
		"statement", logutil.FormatSQLForLog(query, logSQLChars),
		"args", nargs,
	)
}
