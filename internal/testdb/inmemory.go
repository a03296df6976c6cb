package testdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kuitang/drupal-e2e/internal/db"
)

// NewDrupalDBInMemory creates an in-memory SQLite database seeded with
// DrupalSchema. Each call gets its own database.
func NewDrupalDBInMemory() (*db.Client, error) {
	dsn := fmt.Sprintf("file:drupal-%s?mode=memory&cache=shared", uuid.NewString())

	sqlDB, err := sql.Open(db.SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory drupal database: %w", err)
	}

	// A shared-cache memory database lives as long as one connection is open.
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping in-memory drupal database: %w", err)
	}

	if err := applyFastSQLitePragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply fast SQLite pragmas: %w", err)
	}

	if _, err := sqlDB.Exec(DrupalSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize drupal schema: %w", err)
	}

	return db.NewClient(sqlDB, db.SQLite), nil
}

// Seeder inserts fixture rows the way Drupal would when content is saved.
type Seeder struct {
	Client *db.Client
}

// Node inserts a node of the given type and returns its nid.
func (s Seeder) Node(ctx context.Context, nodeType, title string) (int64, error) {
	res, err := s.Client.Exec(ctx, "INSERT INTO node (type, uuid) VALUES (?, ?)", nodeType, uuid.NewString())
	if err != nil {
		return 0, err
	}
	nid, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := s.Client.Exec(ctx,
		"INSERT INTO node_field_data (nid, vid, type, title) VALUES (?, ?, ?, ?)",
		nid, nid, nodeType, title,
	); err != nil {
		return 0, err
	}
	return nid, nil
}

// Term inserts a taxonomy term in vocabulary vid and returns its tid.
func (s Seeder) Term(ctx context.Context, vid string) (int64, error) {
	return s.insert(ctx, "INSERT INTO taxonomy_term_data (vid, uuid) VALUES (?, ?)", vid, uuid.NewString())
}

// MenuLink inserts a custom menu link and returns its id and uuid.
func (s Seeder) MenuLink(ctx context.Context) (int64, string, error) {
	id := uuid.NewString()
	n, err := s.insert(ctx, "INSERT INTO menu_link_content (uuid) VALUES (?)", id)
	return n, id, err
}

// File inserts a managed file and returns its fid.
func (s Seeder) File(ctx context.Context, filename, uri, mime string, size int64) (int64, error) {
	return s.insert(ctx,
		"INSERT INTO file_managed (uuid, uid, filename, uri, filemime, filesize, created, changed) VALUES (?, 1, ?, ?, ?, ?, 0, 0)",
		uuid.NewString(), filename, uri, mime, size,
	)
}

// User inserts an account with the given uid and name.
func (s Seeder) User(ctx context.Context, uid int64, name string) error {
	if _, err := s.Client.Exec(ctx, "INSERT INTO users (uid, uuid) VALUES (?, ?)", uid, uuid.NewString()); err != nil {
		return err
	}
	_, err := s.Client.Exec(ctx, "INSERT INTO users_field_data (uid, name, mail) VALUES (?, ?, ?)", uid, name, name+"@example.com")
	return err
}

// Alias inserts a path alias.
func (s Seeder) Alias(ctx context.Context, path, alias string) error {
	_, err := s.insert(ctx, "INSERT INTO path_alias (path, alias) VALUES (?, ?)", path, alias)
	return err
}

// Watchdog inserts a log entry of the given type.
func (s Seeder) Watchdog(ctx context.Context, logType, message string) error {
	_, err := s.insert(ctx, "INSERT INTO watchdog (type, message) VALUES (?, ?)", logType, message)
	return err
}

// Product inserts a commerce product and returns its id.
func (s Seeder) Product(ctx context.Context, productType, title string, published bool) (int64, error) {
	id, err := s.insert(ctx, "INSERT INTO commerce_product (type, uuid) VALUES (?, ?)", productType, uuid.NewString())
	if err != nil {
		return 0, err
	}
	status := 0
	if published {
		status = 1
	}
	if _, err := s.Client.Exec(ctx,
		"INSERT INTO commerce_product_field_data (product_id, type, title, status) VALUES (?, ?, ?, ?)",
		id, productType, title, status,
	); err != nil {
		return 0, err
	}
	return id, nil
}

// Variation inserts a product variation and returns its id.
func (s Seeder) Variation(ctx context.Context, variationType string) (int64, error) {
	return s.insert(ctx, "INSERT INTO commerce_product_variation (type, uuid) VALUES (?, ?)", variationType, uuid.NewString())
}

// CacheEntry inserts a row into cache_<bin>.
func (s Seeder) CacheEntry(ctx context.Context, bin, cid string) error {
	_, err := s.Client.Exec(ctx, fmt.Sprintf("INSERT INTO cache_%s (cid, data) VALUES (?, ?)", bin), cid, []byte("x"))
	return err
}

func (s Seeder) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.Client.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func applyFastSQLitePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
