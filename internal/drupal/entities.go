package drupal

import (
	"context"
	"fmt"

	"github.com/kuitang/drupal-e2e/internal/obs"
)

const (
	nodeTitleField = `[name="title[0][value]"]`
	nodeBodyField  = `[name="body[0][value]"]`
	termNameField  = `[name="name[0][value]"]`
	submitButton   = "#edit-submit"
)

// CreateNode creates a node through the admin UI and returns its nid. An
// empty body leaves the body field untouched.
func (h *Helper) CreateNode(ctx context.Context, nodeType, title, body string) (int64, error) {
	var nid int64
	err := h.AsAdmin(ctx, func(ctx context.Context) error {
		if err := h.AmOnDrupalPage(ctx, "/node/add/"+nodeType); err != nil {
			return err
		}
		if err := h.browser.FillField(ctx, nodeTitleField, title); err != nil {
			return err
		}
		if body != "" {
			if err := h.browser.FillField(ctx, nodeBodyField, body); err != nil {
				return err
			}
		}
		if err := h.browser.Click(ctx, submitButton); err != nil {
			return err
		}
		if err := h.DontSeeDrupalErrors(ctx); err != nil {
			return err
		}
		id, err := h.GrabLastAddedNodeID(ctx, nodeType)
		if err != nil {
			return err
		}
		nid = id
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create %s node: %w", nodeType, err)
	}
	obs.From(ctx, "drupal").Info("node created", "type", nodeType, "nid", nid)
	return nid, nil
}

// CreateTerm adds a taxonomy term to vocabulary through the admin UI and
// returns its tid.
func (h *Helper) CreateTerm(ctx context.Context, vocabulary, name string) (int64, error) {
	var tid int64
	err := h.AsAdmin(ctx, func(ctx context.Context) error {
		if err := h.AmOnDrupalPage(ctx, "/admin/structure/taxonomy/manage/"+vocabulary+"/add"); err != nil {
			return err
		}
		if err := h.browser.FillField(ctx, termNameField, name); err != nil {
			return err
		}
		if err := h.browser.Click(ctx, submitButton); err != nil {
			return err
		}
		if err := h.DontSeeDrupalErrors(ctx); err != nil {
			return err
		}
		id, err := h.GrabLastAddedTermID(ctx, vocabulary)
		if err != nil {
			return err
		}
		tid = id
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create %s term: %w", vocabulary, err)
	}
	obs.From(ctx, "drupal").Info("term created", "vocabulary", vocabulary, "tid", tid)
	return tid, nil
}

// DeleteEntities deletes entities with drush. Without ids every entity of
// entityType is deleted.
func (h *Helper) DeleteEntities(ctx context.Context, entityType string, ids ...int64) error {
	runner, err := h.requireDrush()
	if err != nil {
		return err
	}
	return runner.EntityDelete(ctx, entityType, ids...)
}

// ClearCacheTable empties the cache_<bin> table, e.g. "entity" or "render".
func (h *Helper) ClearCacheTable(ctx context.Context, bin string) error {
	n, err := h.db.DeleteFrom(ctx, "cache_"+bin, nil)
	if err != nil {
		return err
	}
	obs.From(ctx, "drupal").Debug("cache table cleared", "bin", bin, "rows", n)
	return nil
}

// ClearCache rebuilds every Drupal cache with drush.
func (h *Helper) ClearCache(ctx context.Context) error {
	runner, err := h.requireDrush()
	if err != nil {
		return err
	}
	return runner.CacheRebuild(ctx)
}
