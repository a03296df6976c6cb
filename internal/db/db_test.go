package db_test

import (
	"context"
	"testing"

	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/testdb"
)

func newTestClient(t *testing.T) (*db.Client, testdb.Seeder) {
	t.Helper()
	client, err := testdb.NewDrupalDBInMemory()
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, testdb.Seeder{Client: client}
}

func TestGrabColumn_NoRowsIsInvalid(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	got, err := client.GrabColumn(ctx, "SELECT alias FROM path_alias WHERE path = ?", "/node/1")
	if err != nil {
		t.Fatalf("GrabColumn failed: %v", err)
	}
	if got.Valid {
		t.Fatalf("expected invalid result for missing row, got %q", got.String)
	}
}

func TestGrabMaxInt(t *testing.T) {
	client, seed := newTestClient(t)
	ctx := context.Background()

	if _, ok, err := client.GrabMaxInt(ctx, "node", "nid", ""); err != nil || ok {
		t.Fatalf("empty table: ok=%v err=%v", ok, err)
	}

	for _, typ := range []string{"article", "page", "article", "page"} {
		if _, err := seed.Node(ctx, typ, "title"); err != nil {
			t.Fatalf("seed node: %v", err)
		}
	}

	nid, ok, err := client.GrabMaxInt(ctx, "node", "nid", "type = ?", "article")
	if err != nil || !ok {
		t.Fatalf("GrabMaxInt: ok=%v err=%v", ok, err)
	}
	if nid != 3 {
		t.Fatalf("last article nid = %d, want 3", nid)
	}

	max, err := client.GrabMax(ctx, "node", "nid", "")
	if err != nil {
		t.Fatalf("GrabMax: %v", err)
	}
	if !max.Valid || max.String != "4" {
		t.Fatalf("GrabMax = %+v, want 4", max)
	}
}

func TestGrabMax_RejectsBadIdentifiers(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for _, tc := range []struct{ table, column string }{
		{"node; DROP TABLE node", "nid"},
		{"node", "nid) FROM users --"},
		{"", "nid"},
	} {
		_, err := client.GrabMax(ctx, tc.table, tc.column, "")
		if errs.CodeOf(err) != errs.InvalidArgument {
			t.Errorf("GrabMax(%q, %q): expected invalid_argument, got %v", tc.table, tc.column, err)
		}
	}
}

func TestGrabFromDatabase(t *testing.T) {
	client, seed := newTestClient(t)
	ctx := context.Background()

	id, linkUUID, err := seed.MenuLink(ctx)
	if err != nil {
		t.Fatalf("seed menu link: %v", err)
	}

	got, err := client.GrabFromDatabase(ctx, "menu_link_content", "uuid", db.Criteria{"id": id})
	if err != nil {
		t.Fatalf("GrabFromDatabase: %v", err)
	}
	if got != linkUUID {
		t.Fatalf("uuid = %q, want %q", got, linkUUID)
	}

	_, err = client.GrabFromDatabase(ctx, "menu_link_content", "uuid", db.Criteria{"id": id + 100})
	if errs.CodeOf(err) != errs.NotFound {
		t.Fatalf("expected not_found for missing id, got %v", err)
	}
}

func TestGrabRow_ConvertsBytes(t *testing.T) {
	client, seed := newTestClient(t)
	ctx := context.Background()

	fid, err := seed.File(ctx, "report.pdf", "public://report.pdf", "application/pdf", 2048)
	if err != nil {
		t.Fatalf("seed file: %v", err)
	}

	row, err := client.GrabRow(ctx, "SELECT * FROM file_managed WHERE fid = ?", fid)
	if err != nil {
		t.Fatalf("GrabRow: %v", err)
	}
	if row["uri"] != "public://report.pdf" {
		t.Errorf("uri = %#v", row["uri"])
	}
	if row["filesize"] != int64(2048) {
		t.Errorf("filesize = %#v", row["filesize"])
	}

	_, err = client.GrabRow(ctx, "SELECT * FROM file_managed WHERE fid = ?", fid+1)
	if errs.CodeOf(err) != errs.NotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestSeeNumRecords(t *testing.T) {
	client, seed := newTestClient(t)
	ctx := context.Background()

	if err := client.SeeNumRecords(ctx, 0, "watchdog", db.Criteria{"type": "php"}); err != nil {
		t.Fatalf("empty watchdog should pass: %v", err)
	}
	if err := seed.Watchdog(ctx, "cron", "Cron run completed."); err != nil {
		t.Fatalf("seed watchdog: %v", err)
	}
	if err := client.SeeNumRecords(ctx, 0, "watchdog", db.Criteria{"type": "php"}); err != nil {
		t.Fatalf("non-php entries should not count: %v", err)
	}
	if err := seed.Watchdog(ctx, "php", "Warning: Undefined array key"); err != nil {
		t.Fatalf("seed watchdog: %v", err)
	}

	err := client.SeeNumRecords(ctx, 0, "watchdog", db.Criteria{"type": "php"})
	if !errs.IsAssertion(err) {
		t.Fatalf("expected assertion failure, got %v", err)
	}
	if err := client.SeeNumRecords(ctx, 2, "watchdog", nil); err != nil {
		t.Fatalf("total count: %v", err)
	}
}

func TestDeleteFromAndTableExists(t *testing.T) {
	client, seed := newTestClient(t)
	ctx := context.Background()

	for _, cid := range []string{"node:1", "node:2"} {
		if err := seed.CacheEntry(ctx, "entity", cid); err != nil {
			t.Fatalf("seed cache: %v", err)
		}
	}

	n, err := client.DeleteFrom(ctx, "cache_entity", nil)
	if err != nil {
		t.Fatalf("DeleteFrom: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d rows, want 2", n)
	}

	exists, err := client.TableExists(ctx, "cache_entity")
	if err != nil || !exists {
		t.Fatalf("cache_entity should exist: %v %v", exists, err)
	}
	exists, err = client.TableExists(ctx, "cache_missing")
	if err != nil || exists {
		t.Fatalf("cache_missing should not exist: %v %v", exists, err)
	}
}

func TestSQLiteFunctions(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	match, _, err := client.GrabInt(ctx, "SELECT 'node/12' REGEXP '^node/[0-9]+$'")
	if err != nil {
		t.Fatalf("REGEXP: %v", err)
	}
	if match != 1 {
		t.Fatalf("REGEXP should match, got %d", match)
	}

	greatest, _, err := client.GrabInt(ctx, "SELECT greatest(3, 9)")
	if err != nil {
		t.Fatalf("greatest: %v", err)
	}
	if greatest != 9 {
		t.Fatalf("greatest = %d, want 9", greatest)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := db.Open(context.Background(), "oracle", "whatever")
	if errs.CodeOf(err) != errs.InvalidArgument {
		t.Fatalf("expected invalid_argument, got %v", err)
	}
}

func TestOpen_InvalidMySQLDSN(t *testing.T) {
	_, err := db.Open(context.Background(), "mysql", "no-slash-here")
	if errs.CodeOf(err) != errs.InvalidArgument {
		t.Fatalf("expected invalid_argument, got %v", err)
	}
}
