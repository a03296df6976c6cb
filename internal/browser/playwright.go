package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/obs"
)

// DefaultTimeout bounds every wait. Never use a larger value in suites.
const DefaultTimeout = 5 * time.Second

// Playwright implements Driver on a single Playwright page.
type Playwright struct {
	page      playwright.Page
	baseURL   string
	timeoutMS float64
	snapshots *SnapshotStore
}

var _ Driver = (*Playwright)(nil)

// NewPlaywright wraps page. Snapshots are shared through store; a nil store
// gets a private one.
func NewPlaywright(page playwright.Page, baseURL string, timeout time.Duration, store *SnapshotStore) *Playwright {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if store == nil {
		store = NewSnapshotStore()
	}
	ms := float64(timeout / time.Millisecond)
	page.SetDefaultTimeout(ms)
	page.SetDefaultNavigationTimeout(ms)
	return &Playwright{
		page:      page,
		baseURL:   baseURL,
		timeoutMS: ms,
		snapshots: store,
	}
}

// Page returns the underlying Playwright page.
func (p *Playwright) Page() playwright.Page {
	return p.page
}

func (p *Playwright) AmOnPage(ctx context.Context, path string) error {
	return p.AmOnURL(ctx, JoinURL(p.baseURL, path))
}

func (p *Playwright) AmOnURL(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	obs.From(ctx, "browser").Debug("navigate", "url", url)
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(p.timeoutMS),
	})
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *Playwright) CurrentURL() string {
	return p.page.URL()
}

func (p *Playwright) See(ctx context.Context, text, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := p.page.Locator(selector).Filter(playwright.LocatorFilterOptions{HasText: text}).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(p.timeoutMS),
	})
	if err != nil {
		return p.assertionOr(err, "did not see %q in %s", text, selector)
	}
	return nil
}

func (p *Playwright) SeeElement(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(p.timeoutMS),
	})
	if err != nil {
		return p.assertionOr(err, "element %s is not visible", selector)
	}
	return nil
}

// DontSeeElement checks the current page without waiting.
func (p *Playwright) DontSeeElement(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := p.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return fmt.Errorf("count %s: %w", selector, err)
	}
	for i := 0; i < n; i++ {
		visible, err := loc.Nth(i).IsVisible()
		if err != nil {
			return fmt.Errorf("visibility of %s: %w", selector, err)
		}
		if visible {
			text, _ := loc.Nth(i).InnerText()
			return errs.Assertf("element %s is visible: %q", selector, text)
		}
	}
	return nil
}

func (p *Playwright) SeeElementInDOM(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(p.timeoutMS),
	})
	if err != nil {
		return p.assertionOr(err, "element %s is not in the DOM", selector)
	}
	return nil
}

// DontSeeElementInDOM checks the current page without waiting.
func (p *Playwright) DontSeeElementInDOM(ctx context.Context, selector string) error {
	n, err := p.Count(ctx, selector)
	if err != nil {
		return err
	}
	if n > 0 {
		return errs.Assertf("element %s is in the DOM (%d match(es))", selector, n)
	}
	return nil
}

func (p *Playwright) GrabAttributeFrom(ctx context.Context, selector, attr string) (string, bool, error) {
	if err := p.requireElement(ctx, selector); err != nil {
		return "", false, err
	}
	v, err := p.page.Locator(selector).First().Evaluate(
		"(el, name) => el.hasAttribute(name) ? el.getAttribute(name) : null", attr)
	if err != nil {
		return "", false, fmt.Errorf("read %s from %s: %w", attr, selector, err)
	}
	if v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v), true, nil
	}
	return s, true, nil
}

func (p *Playwright) GrabTextFrom(ctx context.Context, selector string) (string, error) {
	if err := p.requireElement(ctx, selector); err != nil {
		return "", err
	}
	text, err := p.page.Locator(selector).First().InnerText()
	if err != nil {
		return "", fmt.Errorf("read text of %s: %w", selector, err)
	}
	return text, nil
}

func (p *Playwright) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.page.Locator(selector).Count()
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", selector, err)
	}
	return n, nil
}

func (p *Playwright) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(p.timeoutMS),
	})
	if err != nil {
		return p.notFoundOr(err, "click %s", selector)
	}
	// A click only waits for a triggered navigation to start; checks that
	// follow must see the parsed document.
	err = p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(p.timeoutMS),
	})
	if err != nil {
		return fmt.Errorf("wait for page after clicking %s: %w", selector, err)
	}
	return nil
}

func (p *Playwright) FillField(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(p.timeoutMS),
	})
	if err != nil {
		return p.notFoundOr(err, "fill %s", selector)
	}
	return nil
}

func (p *Playwright) SelectOption(ctx context.Context, selector, option string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Locator(selector).First().SelectOption(
		playwright.SelectOptionValues{Values: &[]string{option}},
		playwright.LocatorSelectOptionOptions{Timeout: playwright.Float(p.timeoutMS)},
	)
	if err != nil {
		return p.notFoundOr(err, "select %q in %s", option, selector)
	}
	return nil
}

func (p *Playwright) CheckOption(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().Check(playwright.LocatorCheckOptions{
		Timeout: playwright.Float(p.timeoutMS),
	})
	if err != nil {
		return p.notFoundOr(err, "check %s", selector)
	}
	return nil
}

func (p *Playwright) UncheckOption(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().Uncheck(playwright.LocatorUncheckOptions{
		Timeout: playwright.Float(p.timeoutMS),
	})
	if err != nil {
		return p.notFoundOr(err, "uncheck %s", selector)
	}
	return nil
}

func (p *Playwright) ExecuteJS(ctx context.Context, script string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if args == nil {
		args = []any{}
	}
	fn := "(args) => (function() {\n" + script + "\n}).apply(null, args)"
	v, err := p.page.Evaluate(fn, args)
	if err != nil {
		return nil, fmt.Errorf("execute script: %w", err)
	}
	return v, nil
}

func (p *Playwright) ScrollTo(ctx context.Context, selector string, offsetX, offsetY int) error {
	if err := p.requireElement(ctx, selector); err != nil {
		return err
	}
	_, err := p.page.Locator(selector).First().Evaluate(
		"(el, off) => { el.scrollIntoView(); window.scrollBy(off[0], off[1]); }",
		[]int{offsetX, offsetY},
	)
	if err != nil {
		return fmt.Errorf("scroll to %s: %w", selector, err)
	}
	return nil
}

func (p *Playwright) SaveSessionSnapshot(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cookies, err := p.page.Context().Cookies()
	if err != nil {
		return fmt.Errorf("read cookies for snapshot %s: %w", name, err)
	}
	p.snapshots.Save(name, cookies)
	obs.From(ctx, "browser").Debug("session snapshot saved", "name", name, "cookies", len(cookies))
	return nil
}

func (p *Playwright) LoadSessionSnapshot(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	snap, ok := p.snapshots.Get(name)
	if !ok {
		return false, nil
	}
	bc := p.page.Context()
	if err := bc.ClearCookies(); err != nil {
		return false, fmt.Errorf("clear cookies: %w", err)
	}
	if len(snap.Cookies) > 0 {
		if err := bc.AddCookies(snap.Cookies); err != nil {
			return false, fmt.Errorf("restore snapshot %s: %w", name, err)
		}
	}
	obs.From(ctx, "browser").Debug("session snapshot loaded", "name", name)
	return true, nil
}

func (p *Playwright) DeleteSessionSnapshot(name string) {
	p.snapshots.Delete(name)
}

func (p *Playwright) DeleteAllCookies(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.page.Context().ClearCookies(); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	return nil
}

func (p *Playwright) requireElement(ctx context.Context, selector string) error {
	n, err := p.Count(ctx, selector)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.New(errs.NotFound, fmt.Sprintf("element %s not found", selector))
	}
	return nil
}

// assertionOr turns a wait timeout into an assertion failure.
func (p *Playwright) assertionOr(err error, format string, args ...any) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Wrap(errs.AssertionFailed, fmt.Sprintf(format, args...), err)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// notFoundOr turns an action timeout (no actionable element) into NotFound.
func (p *Playwright) notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Wrap(errs.NotFound, fmt.Sprintf(format, args...), err)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
