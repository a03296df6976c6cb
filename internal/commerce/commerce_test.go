package commerce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/drupal-e2e/internal/browser/browsertest"
	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/drupal"
	"github.com/kuitang/drupal-e2e/internal/drupal/drupaltest"
	"github.com/kuitang/drupal-e2e/internal/errs"
)

func newHelper(t *testing.T) (*Helper, *drupal.Helper, *drupaltest.Site) {
	t.Helper()
	site := drupaltest.NewSite(t)
	d := drupal.New(site.Acceptance(), site.Runner, drupal.Settings{})
	return New(d), d, site
}

func TestGrabLastAddedProductID(t *testing.T) {
	h, _, site := newHelper(t)
	ctx := context.Background()

	_, ok, err := h.GrabLastAddedProductID(ctx, "")
	require.NoError(t, err)
	require.False(t, ok)

	shirt, err := site.Seed.Product(ctx, "clothing", "Shirt", true)
	require.NoError(t, err)
	book, err := site.Seed.Product(ctx, "default", "Book", true)
	require.NoError(t, err)

	id, ok, err := h.GrabLastAddedProductID(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, book, id)

	id, ok, err = h.GrabLastAddedProductID(ctx, "clothing")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, shirt, id)

	_, ok, err = h.GrabLastAddedProductID(ctx, "bundle")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGrabLastAddedVariationID(t *testing.T) {
	h, _, site := newHelper(t)
	ctx := context.Background()

	id, err := h.GrabLastAddedVariationID(ctx, "")
	require.NoError(t, err)
	require.Zero(t, id)

	_, err = site.Seed.Variation(ctx, "default")
	require.NoError(t, err)
	clothing, err := site.Seed.Variation(ctx, "clothing")
	require.NoError(t, err)
	last, err := site.Seed.Variation(ctx, "default")
	require.NoError(t, err)

	id, err = h.GrabLastAddedVariationID(ctx, "")
	require.NoError(t, err)
	require.Equal(t, last, id)
	id, err = h.GrabLastAddedVariationID(ctx, "clothing")
	require.NoError(t, err)
	require.Equal(t, clothing, id)
}

func TestDeleteProducts_Drush(t *testing.T) {
	h, _, site := newHelper(t)
	ctx := context.Background()

	require.NoError(t, h.DeleteProducts(ctx, nil, false))
	require.Empty(t, site.Drush.Calls(), "no ids must not delete every product")

	require.NoError(t, h.DeleteProducts(ctx, []int64{3}, false))
	require.NoError(t, h.DeleteProducts(ctx, []int64{4, 5}, false))
	require.NoError(t, h.DeleteAllProducts(ctx))

	calls := site.Drush.Calls()
	require.Len(t, calls, 3)
	require.Equal(t, []string{"entity:delete", "commerce_product", "3", "--yes"}, calls[0].Args)
	require.Equal(t, []string{"entity:delete", "commerce_product", "4,5", "--yes"}, calls[1].Args)
	require.Equal(t, []string{"entity:delete", "commerce_product", "--yes"}, calls[2].Args)
}

func TestDeleteProducts_Browser(t *testing.T) {
	h, d, site := newHelper(t)
	ctx := context.Background()
	site.AddAccount(t, 9, "customer", "pw")
	require.NoError(t, d.Login(ctx, "customer", "pw"))

	first, err := site.Seed.Product(ctx, "default", "First", true)
	require.NoError(t, err)
	second, err := site.Seed.Product(ctx, "default", "Second", true)
	require.NoError(t, err)
	keep, err := site.Seed.Product(ctx, "default", "Keep", true)
	require.NoError(t, err)
	site.ProductDeleteForm(first)
	site.ProductDeleteForm(second)

	require.NoError(t, h.DeleteProducts(ctx, []int64{first, second}, true))

	n, err := site.DB.CountRecords(ctx, "commerce_product", nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	id, ok, err := h.GrabLastAddedProductID(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, keep, id)

	require.Equal(t, "customer", site.LoggedInAs())
	require.Empty(t, d.RememberedSessions())
	require.Empty(t, site.Drush.Calls())
}

func TestDeleteProducts_BrowserFailureRestoresSession(t *testing.T) {
	h, d, site := newHelper(t)
	ctx := context.Background()

	site.Browser.Route("/product/42/delete", func(p *browsertest.Page) {
		p.Set(".form-submit", browsertest.Element{})
		p.Set(".messages--error", browsertest.Element{Text: "You are not authorized to access this page."})
	})

	err := h.DeleteProducts(ctx, []int64{42}, true)
	require.True(t, errs.IsAssertion(err), "got %v", err)
	require.Contains(t, err.Error(), "delete product 42")
	require.Empty(t, site.LoggedInAs())
	require.Empty(t, d.RememberedSessions())
}

func TestChangeProductPublishStatus(t *testing.T) {
	h, _, site := newHelper(t)
	ctx := context.Background()

	a, err := site.Seed.Product(ctx, "default", "A", true)
	require.NoError(t, err)
	b, err := site.Seed.Product(ctx, "default", "B", true)
	require.NoError(t, err)
	c, err := site.Seed.Product(ctx, "default", "C", true)
	require.NoError(t, err)
	require.NoError(t, site.Seed.CacheEntry(ctx, "entity", "values:commerce_product:1"))

	status := func(id int64) string {
		t.Helper()
		v, err := site.DB.GrabFromDatabase(ctx, "commerce_product_field_data", "status", db.Criteria{"product_id": id})
		require.NoError(t, err)
		return v
	}

	require.NoError(t, h.ChangeProductPublishStatus(ctx, []int64{a, b}, false))
	require.Equal(t, "0", status(a))
	require.Equal(t, "0", status(b))
	require.Equal(t, "1", status(c))

	n, err := site.DB.CountRecords(ctx, "cache_entity", nil)
	require.NoError(t, err)
	require.Zero(t, n, "entity cache must be cleared")

	require.NoError(t, h.ChangeProductPublishStatus(ctx, []int64{b}, true))
	require.Equal(t, "0", status(a))
	require.Equal(t, "1", status(b))

	err = h.ChangeProductPublishStatus(ctx, nil, true)
	require.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

func TestProductAliasAndPage(t *testing.T) {
	h, _, site := newHelper(t)
	ctx := context.Background()

	id, err := site.Seed.Product(ctx, "default", "Blue Shirt", true)
	require.NoError(t, err)

	alias, err := h.GrabProductAlias(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "/product/1", alias)

	require.NoError(t, site.Seed.Alias(ctx, "/product/1", "/shop/blue-shirt"))
	alias, err = h.GrabProductAlias(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "/shop/blue-shirt", alias)

	require.NoError(t, h.AmOnProductPage(ctx, id))
	require.Equal(t, drupaltest.BaseURL+"/shop/blue-shirt", site.Browser.CurrentURL())
}

func TestGrabProductIDByTitle(t *testing.T) {
	h, _, site := newHelper(t)
	ctx := context.Background()

	_, ok, err := h.GrabProductIDByTitle(ctx, "Missing")
	require.NoError(t, err)
	require.False(t, ok)

	want, err := site.Seed.Product(ctx, "default", "It's a hat", false)
	require.NoError(t, err)
	got, ok, err := h.GrabProductIDByTitle(ctx, "It's a hat")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestClearCart(t *testing.T) {
	h, _, site := newHelper(t)
	ctx := context.Background()
	site.Cart(3)

	require.NoError(t, h.ClearCart(ctx))
	require.Len(t, site.Browser.CallsTo("Click"), 3)
	require.NotNil(t, site.Browser.Element(".cart-empty-page"))

	site.Browser.ResetCalls()
	require.NoError(t, h.ClearCart(ctx))
	require.Empty(t, site.Browser.CallsTo("Click"))
}

func TestClearCart_StuckItem(t *testing.T) {
	h, _, site := newHelper(t)
	site.Browser.Route("/cart", func(p *browsertest.Page) {
		p.Set(orderItemDelete, browsertest.Element{})
	})

	err := h.ClearCart(context.Background())
	require.Equal(t, errs.FailedPrecondition, errs.CodeOf(err))
	require.Len(t, site.Browser.CallsTo("Click"), maxCartItems)
}
