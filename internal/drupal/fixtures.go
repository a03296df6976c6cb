package drupal

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/errs"
)

const currentUserIDScript = "return drupalSettings.user.uid;"

// GrabLastAddedNodeID returns the highest nid of nodeType.
func (h *Helper) GrabLastAddedNodeID(ctx context.Context, nodeType string) (int64, error) {
	return h.grabMaxID(ctx, "node", "nid", "type = ?", nodeType)
}

// GrabLastAddedMenuItemID returns the highest custom menu link id.
func (h *Helper) GrabLastAddedMenuItemID(ctx context.Context) (int64, error) {
	return h.grabMaxID(ctx, "menu_link_content", "id", "")
}

// GrabMenuItemUUIDByID returns the uuid of a custom menu link.
func (h *Helper) GrabMenuItemUUIDByID(ctx context.Context, id int64) (string, error) {
	return h.db.GrabFromDatabase(ctx, "menu_link_content", "uuid", db.Criteria{"id": id})
}

// GrabLastAddedFileID returns the highest managed file id.
func (h *Helper) GrabLastAddedFileID(ctx context.Context) (int64, error) {
	return h.grabMaxID(ctx, "file_managed", "fid", "")
}

// GrabFileInfoFromDatabase returns the file_managed row of fid.
func (h *Helper) GrabFileInfoFromDatabase(ctx context.Context, fid int64) (map[string]any, error) {
	row, err := h.db.GrabRow(ctx, "SELECT * FROM file_managed WHERE fid = ?", fid)
	if errs.CodeOf(err) == errs.NotFound {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("file %d not found", fid))
	}
	return row, err
}

// GrabLastAddedTermID returns the highest tid in vocabulary.
func (h *Helper) GrabLastAddedTermID(ctx context.Context, vocabulary string) (int64, error) {
	return h.grabMaxID(ctx, "taxonomy_term_data", "tid", "vid = ?", vocabulary)
}

// GrabCurrentUserID reads the signed-in uid from the drupalSettings of the
// loaded page; 0 is anonymous. Changing cookies without loading a page leaves
// the previous uid in place.
func (h *Helper) GrabCurrentUserID(ctx context.Context) (int64, error) {
	v, err := h.browser.ExecuteJS(ctx, currentUserIDScript)
	if err != nil {
		return 0, err
	}
	uid, err := toInt64(v)
	if err != nil {
		return 0, errs.Wrap(errs.FailedPrecondition, "read drupalSettings.user.uid", err)
	}
	return uid, nil
}

// GrabCurrentUserName returns the account name of the signed-in user.
func (h *Helper) GrabCurrentUserName(ctx context.Context) (string, error) {
	uid, err := h.GrabCurrentUserID(ctx)
	if err != nil {
		return "", err
	}
	return h.GrabUserNameByID(ctx, uid)
}

// GrabUserNameByID returns the account name of uid.
func (h *Helper) GrabUserNameByID(ctx context.Context, uid int64) (string, error) {
	return h.db.GrabFromDatabase(ctx, "users_field_data", "name", db.Criteria{"uid": uid})
}

// GrabPathAlias returns the newest alias of systemPath, or systemPath itself
// when it has none.
func (h *Helper) GrabPathAlias(ctx context.Context, systemPath string) (string, error) {
	alias, err := h.db.GrabColumn(ctx,
		"SELECT alias FROM path_alias WHERE path = ? ORDER BY id DESC", systemPath)
	if err != nil {
		return "", err
	}
	if !alias.Valid || alias.String == "" {
		return systemPath, nil
	}
	return alias.String, nil
}

func (h *Helper) grabMaxID(ctx context.Context, table, column, where string, args ...any) (int64, error) {
	id, ok, err := h.db.GrabMaxInt(ctx, table, column, where, args...)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errs.New(errs.NotFound, fmt.Sprintf("no rows in %s matching %v", table, args))
	}
	return id, nil
}

// toInt64 converts a JavaScript number or numeric string.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integer value %v", n)
		}
		return int64(n), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected value %v (%T)", v, v)
	}
}
