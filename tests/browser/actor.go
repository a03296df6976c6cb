package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/drupal-e2e/internal/acceptance"
	ibrowser "github.com/kuitang/drupal-e2e/internal/browser"
	"github.com/kuitang/drupal-e2e/internal/commerce"
	"github.com/kuitang/drupal-e2e/internal/config"
	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/drupal"
	"github.com/kuitang/drupal-e2e/internal/drush"
	"github.com/kuitang/drupal-e2e/internal/obs"
)

// I is the test actor: every step fails the test immediately, so scenarios
// read as a list of steps without error plumbing.
type I struct {
	t   testing.TB
	ctx context.Context

	Browser    ibrowser.Driver
	Acceptance *acceptance.Helper
	Drupal     *drupal.Helper
	Commerce   *commerce.Helper
}

// NewActor wires the helpers for one test. runner may be nil when the suite
// has no drush.
func NewActor(t testing.TB, driver ibrowser.Driver, client *db.Client, runner *drush.Runner, cfg *config.Config) *I {
	t.Helper()
	acc := acceptance.NewFromConfig(cfg, driver, client)
	d := drupal.New(acc, runner, drupal.SettingsFromConfig(cfg))
	return &I{
		t:          t,
		ctx:        obs.WithTest(t.Context(), t.Name()),
		Browser:    driver,
		Acceptance: acc,
		Drupal:     d,
		Commerce:   commerce.New(d),
	}
}

// Context returns the per-test context passed to every helper.
func (i *I) Context() context.Context {
	return i.ctx
}

func (i *I) ok(err error, msgAndArgs ...any) {
	i.t.Helper()
	require.NoError(i.t, err, msgAndArgs...)
}

// Browser steps.

func (i *I) Click(selector string) {
	i.t.Helper()
	i.ok(i.Browser.Click(i.ctx, selector))
}

func (i *I) FillField(selector, value string) {
	i.t.Helper()
	i.ok(i.Browser.FillField(i.ctx, selector, value))
}

func (i *I) See(text, selector string) {
	i.t.Helper()
	i.ok(i.Browser.See(i.ctx, text, selector))
}

func (i *I) SeeElement(selector string) {
	i.t.Helper()
	i.ok(i.Browser.SeeElement(i.ctx, selector))
}

func (i *I) DontSeeElement(selector string) {
	i.t.Helper()
	i.ok(i.Browser.DontSeeElement(i.ctx, selector))
}

// Acceptance steps.

func (i *I) SeePageTitle(title string) {
	i.t.Helper()
	i.ok(i.Acceptance.SeePageTitle(i.ctx, title))
}

func (i *I) SeeList(items []string, itemSelector string) {
	i.t.Helper()
	i.ok(i.Acceptance.SeeList(i.ctx, items, itemSelector))
}

func (i *I) SeeBreadcrumb(items ...string) {
	i.t.Helper()
	i.ok(i.Acceptance.SeeBreadcrumb(i.ctx, items))
}

// SeeElementAttribute checks attr exists and, when value is given, equals it.
func (i *I) SeeElementAttribute(selector, attr string, value ...string) {
	i.t.Helper()
	var want *string
	if len(value) > 0 {
		want = &value[0]
	}
	i.ok(i.Acceptance.SeeElementAttribute(i.ctx, selector, attr, want))
}

func (i *I) DontSeeElementAttribute(selector, attr string) {
	i.t.Helper()
	i.ok(i.Acceptance.DontSeeElementAttribute(i.ctx, selector, attr))
}

func (i *I) SeeField(name string) {
	i.t.Helper()
	i.ok(i.Acceptance.SeeField(i.ctx, name))
}

func (i *I) SeeFieldInDOM(name string) {
	i.t.Helper()
	i.ok(i.Acceptance.SeeFieldInDOM(i.ctx, name))
}

func (i *I) GrabMaxDatabaseValue(table, column, where string) string {
	i.t.Helper()
	v, err := i.Acceptance.GrabMaxDatabaseValue(i.ctx, table, column, where)
	i.ok(err)
	return v
}

func (i *I) FillCheckbox(selector string, state bool) {
	i.t.Helper()
	i.ok(i.Acceptance.FillCheckbox(i.ctx, selector, state))
}

func (i *I) JSClick(selector string) {
	i.t.Helper()
	i.ok(i.Acceptance.JSClick(i.ctx, selector))
}

func (i *I) GrabNumberOfElements(selector string) int {
	i.t.Helper()
	n, err := i.Acceptance.GrabNumberOfElements(i.ctx, selector)
	i.ok(err)
	return n
}

// Drupal steps.

func (i *I) AmOnDrupalPage(url string) {
	i.t.Helper()
	i.ok(i.Drupal.AmOnDrupalPage(i.ctx, url))
}

func (i *I) DontSeeErrorMessage() {
	i.t.Helper()
	i.ok(i.Drupal.DontSeeErrorMessage(i.ctx))
}

func (i *I) DontSeeWatchdogPHPErrors() {
	i.t.Helper()
	i.ok(i.Drupal.DontSeeWatchdogPHPErrors(i.ctx))
}

func (i *I) DontSeeDrupalErrors() {
	i.t.Helper()
	i.ok(i.Drupal.DontSeeDrupalErrors(i.ctx))
}

func (i *I) Login(username, password string) {
	i.t.Helper()
	i.ok(i.Drupal.Login(i.ctx, username, password), "login as %s", username)
}

func (i *I) LoginAsAdmin() {
	i.t.Helper()
	i.ok(i.Drupal.LoginAsAdmin(i.ctx))
}

func (i *I) Logout(hard bool) {
	i.t.Helper()
	i.ok(i.Drupal.Logout(i.ctx, hard))
}

func (i *I) RememberCurrentSession() {
	i.Drupal.RememberCurrentSession()
}

func (i *I) RestoreRememberedSession() {
	i.t.Helper()
	i.ok(i.Drupal.RestoreRememberedSession(i.ctx))
}

// AsAdmin runs steps as the admin user and switches back afterwards.
func (i *I) AsAdmin(steps func()) {
	i.t.Helper()
	i.RememberCurrentSession()
	i.LoginAsAdmin()
	defer i.RestoreRememberedSession()
	steps()
}

func (i *I) OpenVerticalTab(id string) {
	i.t.Helper()
	i.ok(i.Drupal.OpenVerticalTab(i.ctx, id))
}

func (i *I) OpenDetails(selector string) {
	i.t.Helper()
	i.ok(i.Drupal.OpenDetails(i.ctx, selector))
}

func (i *I) FillTextareaWithFormat(wrapper, text, format string) {
	i.t.Helper()
	i.ok(i.Drupal.FillTextareaWithFormat(i.ctx, wrapper, text, format))
}

func (i *I) GrabLastAddedNodeID(nodeType string) int64 {
	i.t.Helper()
	id, err := i.Drupal.GrabLastAddedNodeID(i.ctx, nodeType)
	i.ok(err)
	return id
}

func (i *I) GrabLastAddedMenuItemID() int64 {
	i.t.Helper()
	id, err := i.Drupal.GrabLastAddedMenuItemID(i.ctx)
	i.ok(err)
	return id
}

func (i *I) GrabMenuItemUUIDByID(id int64) string {
	i.t.Helper()
	v, err := i.Drupal.GrabMenuItemUUIDByID(i.ctx, id)
	i.ok(err)
	return v
}

func (i *I) GrabLastAddedFileID() int64 {
	i.t.Helper()
	id, err := i.Drupal.GrabLastAddedFileID(i.ctx)
	i.ok(err)
	return id
}

func (i *I) GrabFileInfoFromDatabase(fid int64) map[string]any {
	i.t.Helper()
	row, err := i.Drupal.GrabFileInfoFromDatabase(i.ctx, fid)
	i.ok(err)
	return row
}

func (i *I) GrabLastAddedTermID(vocabulary string) int64 {
	i.t.Helper()
	id, err := i.Drupal.GrabLastAddedTermID(i.ctx, vocabulary)
	i.ok(err)
	return id
}

func (i *I) GrabCurrentUserID() int64 {
	i.t.Helper()
	uid, err := i.Drupal.GrabCurrentUserID(i.ctx)
	i.ok(err)
	return uid
}

func (i *I) GrabCurrentUserName() string {
	i.t.Helper()
	name, err := i.Drupal.GrabCurrentUserName(i.ctx)
	i.ok(err)
	return name
}

func (i *I) GrabUserNameByID(uid int64) string {
	i.t.Helper()
	name, err := i.Drupal.GrabUserNameByID(i.ctx, uid)
	i.ok(err)
	return name
}

func (i *I) GrabPathAlias(systemPath string) string {
	i.t.Helper()
	alias, err := i.Drupal.GrabPathAlias(i.ctx, systemPath)
	i.ok(err)
	return alias
}

func (i *I) TestURLs(urls ...string) {
	i.t.Helper()
	i.ok(i.Drupal.TestURLs(i.ctx, urls))
}

func (i *I) CreateNode(nodeType, title, body string) int64 {
	i.t.Helper()
	nid, err := i.Drupal.CreateNode(i.ctx, nodeType, title, body)
	i.ok(err)
	return nid
}

func (i *I) CreateTerm(vocabulary, name string) int64 {
	i.t.Helper()
	tid, err := i.Drupal.CreateTerm(i.ctx, vocabulary, name)
	i.ok(err)
	return tid
}

func (i *I) DeleteEntities(entityType string, ids ...int64) {
	i.t.Helper()
	i.ok(i.Drupal.DeleteEntities(i.ctx, entityType, ids...))
}

func (i *I) ClearCacheTable(bin string) {
	i.t.Helper()
	i.ok(i.Drupal.ClearCacheTable(i.ctx, bin))
}

func (i *I) ClearCache() {
	i.t.Helper()
	i.ok(i.Drupal.ClearCache(i.ctx))
}

// Commerce steps.

// GrabLastAddedProductID returns the newest product id, 0 when none.
func (i *I) GrabLastAddedProductID(productType string) int64 {
	i.t.Helper()
	id, _, err := i.Commerce.GrabLastAddedProductID(i.ctx, productType)
	i.ok(err)
	return id
}

func (i *I) GrabLastAddedVariationID(variationType string) int64 {
	i.t.Helper()
	id, err := i.Commerce.GrabLastAddedVariationID(i.ctx, variationType)
	i.ok(err)
	return id
}

func (i *I) DeleteProducts(ids []int64, useBrowser bool) {
	i.t.Helper()
	i.ok(i.Commerce.DeleteProducts(i.ctx, ids, useBrowser))
}

func (i *I) DeleteAllProducts() {
	i.t.Helper()
	i.ok(i.Commerce.DeleteAllProducts(i.ctx))
}

func (i *I) ChangeProductPublishStatus(ids []int64, publish bool) {
	i.t.Helper()
	i.ok(i.Commerce.ChangeProductPublishStatus(i.ctx, ids, publish))
}

func (i *I) GrabProductAlias(id int64) string {
	i.t.Helper()
	alias, err := i.Commerce.GrabProductAlias(i.ctx, id)
	i.ok(err)
	return alias
}

// GrabProductIDByTitle returns the product id, 0 when no product has title.
func (i *I) GrabProductIDByTitle(title string) int64 {
	i.t.Helper()
	id, _, err := i.Commerce.GrabProductIDByTitle(i.ctx, title)
	i.ok(err)
	return id
}

func (i *I) AmOnProductPage(id int64) {
	i.t.Helper()
	i.ok(i.Commerce.AmOnProductPage(i.ctx, id))
}

func (i *I) ClearCart() {
	i.t.Helper()
	i.ok(i.Commerce.ClearCart(i.ctx))
}
