// Package acceptance provides page, DOM and SQL assertions shared by the
// Drupal and Commerce helpers.
package acceptance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kuitang/drupal-e2e/internal/browser"
	"github.com/kuitang/drupal-e2e/internal/config"
	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/obs"
)

const jsClickScript = "document.querySelector(arguments[0]).click();"

// Helper wraps a browser and a database connection to the site under test.
type Helper struct {
	browser                browser.Driver
	db                     *db.Client
	pageTitleSelector      string
	breadcrumbItemSelector string
}

// Option configures a Helper.
type Option func(*Helper)

// WithPageTitleSelector overrides the page title selector.
func WithPageTitleSelector(selector string) Option {
	return func(h *Helper) { h.pageTitleSelector = selector }
}

// WithBreadcrumbItemSelector overrides the breadcrumb item selector.
func WithBreadcrumbItemSelector(selector string) Option {
	return func(h *Helper) { h.breadcrumbItemSelector = selector }
}

// New creates a Helper with the default Drupal theme selectors.
func New(driver browser.Driver, client *db.Client, opts ...Option) *Helper {
	h := &Helper{
		browser:                driver,
		db:                     client,
		pageTitleSelector:      config.DefaultPageTitleSelector,
		breadcrumbItemSelector: config.DefaultBreadcrumbItemSelector,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewFromConfig creates a Helper using the selectors in cfg.
func NewFromConfig(cfg *config.Config, driver browser.Driver, client *db.Client) *Helper {
	var opts []Option
	if cfg.PageTitleSelector != "" {
		opts = append(opts, WithPageTitleSelector(cfg.PageTitleSelector))
	}
	if cfg.BreadcrumbItemSelector != "" {
		opts = append(opts, WithBreadcrumbItemSelector(cfg.BreadcrumbItemSelector))
	}
	return New(driver, client, opts...)
}

// Browser returns the underlying driver.
func (h *Helper) Browser() browser.Driver {
	return h.browser
}

// DB returns the database client.
func (h *Helper) DB() *db.Client {
	return h.db
}

// SQLQuery runs a raw query against the site database. The caller closes rows.
func (h *Helper) SQLQuery(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return h.db.Query(ctx, query, args...)
}

// SeePageTitle asserts the page title contains title.
func (h *Helper) SeePageTitle(ctx context.Context, title string) error {
	return h.browser.See(ctx, title, h.pageTitleSelector)
}

// SeeList asserts that the i-th element matching itemSelector contains items[i].
func (h *Helper) SeeList(ctx context.Context, items []string, itemSelector string) error {
	for i, item := range items {
		selector := fmt.Sprintf("%s:nth-child(%d)", itemSelector, i+1)
		if err := h.browser.See(ctx, item, selector); err != nil {
			return err
		}
	}
	return nil
}

// SeeBreadcrumb asserts the breadcrumb trail, in order.
func (h *Helper) SeeBreadcrumb(ctx context.Context, items []string) error {
	return h.SeeList(ctx, items, h.breadcrumbItemSelector)
}

// SeeElementAttribute asserts the element has attr. When value is non-nil the
// attribute must equal it.
func (h *Helper) SeeElementAttribute(ctx context.Context, selector, attr string, value *string) error {
	if err := h.browser.SeeElementInDOM(ctx, selector); err != nil {
		return err
	}
	if err := h.browser.SeeElementInDOM(ctx, selector+"["+attr+"]"); err != nil {
		return err
	}
	if value == nil {
		return nil
	}
	got, _, err := h.browser.GrabAttributeFrom(ctx, selector, attr)
	if err != nil {
		return err
	}
	if got != *value {
		return errs.Assertf("attribute %s of %s is %q, want %q", attr, selector, got, *value)
	}
	return nil
}

// DontSeeElementAttribute asserts the element exists without attr.
func (h *Helper) DontSeeElementAttribute(ctx context.Context, selector, attr string) error {
	if err := h.browser.SeeElementInDOM(ctx, selector); err != nil {
		return err
	}
	return h.browser.DontSeeElementInDOM(ctx, selector+"["+attr+"]")
}

// SeeField asserts a visible form field with the given name attribute.
func (h *Helper) SeeField(ctx context.Context, name string) error {
	return h.browser.SeeElement(ctx, fieldSelector(name))
}

// SeeFieldInDOM asserts a form field with the given name exists, visible or not.
func (h *Helper) SeeFieldInDOM(ctx context.Context, name string) error {
	return h.browser.SeeElementInDOM(ctx, fieldSelector(name))
}

// GrabMaxDatabaseValue returns MAX(column) from table. where is an optional
// raw SQL condition. NULL reads as "".
func (h *Helper) GrabMaxDatabaseValue(ctx context.Context, table, column, where string) (string, error) {
	v, err := h.db.GrabMax(ctx, table, column, where)
	if err != nil {
		return "", err
	}
	return v.String, nil
}

// FillCheckbox checks or unchecks a checkbox.
func (h *Helper) FillCheckbox(ctx context.Context, selector string, state bool) error {
	if state {
		return h.browser.CheckOption(ctx, selector)
	}
	return h.browser.UncheckOption(ctx, selector)
}

// JSClick clicks through page JavaScript, for elements the browser considers
// obscured.
func (h *Helper) JSClick(ctx context.Context, selector string) error {
	obs.From(ctx, "acceptance").Debug("js click", "selector", selector)
	_, err := h.browser.ExecuteJS(ctx, jsClickScript, selector)
	return err
}

// GrabNumberOfElements returns how many elements match selector.
func (h *Helper) GrabNumberOfElements(ctx context.Context, selector string) (int, error) {
	return h.browser.Count(ctx, selector)
}

func fieldSelector(name string) string {
	return fmt.Sprintf("[name=%q]", name)
}
