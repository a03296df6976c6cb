// Package commerce provides helpers for Drupal Commerce products, variations
// and the cart.
package commerce

import (
	"context"
	"fmt"
	"strings"

	"github.com/kuitang/drupal-e2e/internal/browser"
	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/drupal"
	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/obs"
)

const (
	productEntityType = "commerce_product"
	orderItemDelete   = ".delete-order-item"

	// Bounds ClearCart when a remove button does not remove anything.
	maxCartItems = 100
)

// Helper wraps a Drupal helper with Commerce-specific operations.
type Helper struct {
	drupal  *drupal.Helper
	browser browser.Driver
	db      *db.Client
}

// New creates a commerce helper on top of d.
func New(d *drupal.Helper) *Helper {
	acc := d.Acceptance()
	return &Helper{drupal: d, browser: acc.Browser(), db: acc.DB()}
}

// GrabLastAddedProductID returns the highest product id, optionally of
// productType. ok is false when there is no product.
func (h *Helper) GrabLastAddedProductID(ctx context.Context, productType string) (id int64, ok bool, err error) {
	if productType == "" {
		return h.db.GrabMaxInt(ctx, "commerce_product", "product_id", "")
	}
	return h.db.GrabMaxInt(ctx, "commerce_product", "product_id", "type = ?", productType)
}

// GrabLastAddedVariationID returns the highest variation id, optionally of
// variationType, or 0 when there is none.
func (h *Helper) GrabLastAddedVariationID(ctx context.Context, variationType string) (int64, error) {
	var (
		id  int64
		err error
	)
	if variationType == "" {
		id, _, err = h.db.GrabMaxInt(ctx, "commerce_product_variation", "variation_id", "")
	} else {
		id, _, err = h.db.GrabMaxInt(ctx, "commerce_product_variation", "variation_id", "type = ?", variationType)
	}
	return id, err
}

// DeleteProducts deletes products with drush, or through the product delete
// form as admin when useBrowser is set. No ids is a no-op.
func (h *Helper) DeleteProducts(ctx context.Context, ids []int64, useBrowser bool) error {
	if len(ids) == 0 {
		return nil
	}
	if !useBrowser {
		return h.drupal.DeleteEntities(ctx, productEntityType, ids...)
	}
	for _, id := range ids {
		err := h.drupal.AsAdmin(ctx, func(ctx context.Context) error {
			if err := h.drupal.AmOnDrupalPage(ctx, fmt.Sprintf("/product/%d/delete", id)); err != nil {
				return err
			}
			if err := h.browser.Click(ctx, ".form-submit"); err != nil {
				return err
			}
			return h.drupal.DontSeeDrupalErrors(ctx)
		})
		if err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}
		obs.From(ctx, "commerce").Info("product deleted", "product_id", id)
	}
	return nil
}

// DeleteAllProducts deletes every product with drush.
func (h *Helper) DeleteAllProducts(ctx context.Context) error {
	return h.drupal.DeleteEntities(ctx, productEntityType)
}

// ChangeProductPublishStatus publishes or unpublishes products directly in
// the database and clears the entity cache so Drupal sees the change.
func (h *Helper) ChangeProductPublishStatus(ctx context.Context, ids []int64, publish bool) error {
	if len(ids) == 0 {
		return errs.New(errs.InvalidArgument, "at least one product id is required")
	}
	status := 0
	if publish {
		status = 1
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, status)
	for _, id := range ids {
		args = append(args, id)
	}
	query := fmt.Sprintf(
		"UPDATE commerce_product_field_data SET status = ? WHERE product_id IN (%s)",
		db.Placeholders(len(ids)),
	)
	res, err := h.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	obs.From(ctx, "commerce").Info("product status changed",
		"product_ids", productIDs(ids), "published", publish, "rows", n)
	return h.drupal.ClearCacheTable(ctx, "entity")
}

// GrabProductAlias returns the path alias of a product page.
func (h *Helper) GrabProductAlias(ctx context.Context, id int64) (string, error) {
	return h.drupal.GrabPathAlias(ctx, fmt.Sprintf("/product/%d", id))
}

// GrabProductIDByTitle returns the id of the product titled title.
func (h *Helper) GrabProductIDByTitle(ctx context.Context, title string) (id int64, ok bool, err error) {
	return h.db.GrabInt(ctx,
		"SELECT product_id FROM commerce_product_field_data WHERE title = ? ORDER BY product_id", title)
}

// AmOnProductPage opens a product page by its alias.
func (h *Helper) AmOnProductPage(ctx context.Context, id int64) error {
	alias, err := h.GrabProductAlias(ctx, id)
	if err != nil {
		return err
	}
	return h.drupal.AmOnDrupalPage(ctx, alias)
}

// ClearCart removes every item from the current cart.
func (h *Helper) ClearCart(ctx context.Context) error {
	if err := h.drupal.AmOnDrupalPage(ctx, "/cart"); err != nil {
		return err
	}
	for removed := 0; ; removed++ {
		n, err := h.browser.Count(ctx, orderItemDelete)
		if err != nil {
			return err
		}
		if n == 0 {
			obs.From(ctx, "commerce").Debug("cart cleared", "removed", removed)
			return nil
		}
		if removed >= maxCartItems {
			return errs.New(errs.FailedPrecondition,
				fmt.Sprintf("cart still has %d item(s) after %d removals", n, removed))
		}
		if err := h.browser.Click(ctx, orderItemDelete); err != nil {
			return err
		}
	}
}

// productIDs formats ids for log lines.
func productIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
