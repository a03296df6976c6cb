// Package browser drives the site under test through a real browser.
//
// Helpers depend on the Driver interface; Playwright implements it for real
// suites and browsertest.Driver implements it for unit tests.
package browser

import (
	"context"
	"strings"
)

// Driver is the browser surface the helpers need. Selectors are CSS or
// Playwright selectors. Assertion methods (See*, DontSee*) return errors coded
// errs.AssertionFailed when the page does not match.
type Driver interface {
	// AmOnPage opens a path relative to the site base URL.
	AmOnPage(ctx context.Context, path string) error
	// AmOnURL opens an absolute URL.
	AmOnURL(ctx context.Context, url string) error
	CurrentURL() string

	// See asserts that an element matching selector visibly contains text.
	See(ctx context.Context, text, selector string) error
	SeeElement(ctx context.Context, selector string) error
	DontSeeElement(ctx context.Context, selector string) error
	SeeElementInDOM(ctx context.Context, selector string) error
	DontSeeElementInDOM(ctx context.Context, selector string) error

	// GrabAttributeFrom reads attr from the first match; present is false when
	// the attribute is missing.
	GrabAttributeFrom(ctx context.Context, selector, attr string) (value string, present bool, err error)
	GrabTextFrom(ctx context.Context, selector string) (string, error)
	Count(ctx context.Context, selector string) (int, error)

	Click(ctx context.Context, selector string) error
	FillField(ctx context.Context, selector, value string) error
	SelectOption(ctx context.Context, selector, option string) error
	CheckOption(ctx context.Context, selector string) error
	UncheckOption(ctx context.Context, selector string) error

	// ExecuteJS runs script as a function body; args are available as arguments[i].
	ExecuteJS(ctx context.Context, script string, args ...any) (any, error)
	// ScrollTo scrolls the first match into view, then by the given offset.
	ScrollTo(ctx context.Context, selector string, offsetX, offsetY int) error

	SaveSessionSnapshot(ctx context.Context, name string) error
	// LoadSessionSnapshot restores a saved snapshot; false when none exists.
	LoadSessionSnapshot(ctx context.Context, name string) (bool, error)
	DeleteSessionSnapshot(name string)
	DeleteAllCookies(ctx context.Context) error
}

// JoinURL joins a base URL and a site-relative path with exactly one slash.
func JoinURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
