package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/drupal-e2e/internal/errs"
)

// Options selects and configures the browser.
type Options struct {
	Browser  string // chromium, firefox or webkit
	Headless bool
	BaseURL  string
	Timeout  time.Duration
}

// Instance is a running browser shared by a suite.
type Instance struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	opts      Options
	snapshots *SnapshotStore
}

// Launch starts Playwright and the configured browser. Errors are coded
// errs.Unavailable so suites can skip when browsers are not installed.
func Launch(opts Options) (*Instance, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "start playwright", err)
	}

	var bt playwright.BrowserType
	switch strings.ToLower(strings.TrimSpace(opts.Browser)) {
	case "", "chromium", "chrome":
		bt = pw.Chromium
	case "firefox":
		bt = pw.Firefox
	case "webkit", "safari":
		bt = pw.WebKit
	default:
		_ = pw.Stop()
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown browser %q", opts.Browser))
	}

	b, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, errs.Wrap(errs.Unavailable, "launch "+bt.Name(), err)
	}
	return &Instance{pw: pw, browser: b, opts: opts, snapshots: NewSnapshotStore()}, nil
}

// Snapshots returns the suite-wide session snapshot store.
func (in *Instance) Snapshots() *SnapshotStore {
	return in.snapshots
}

// NewDriver opens a fresh context and page. The returned close func releases
// both.
func (in *Instance) NewDriver() (*Playwright, func(), error) {
	bctx, err := in.browser.NewContext(playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("new browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, nil, fmt.Errorf("new page: %w", err)
	}
	d := NewPlaywright(page, in.opts.BaseURL, in.opts.Timeout, in.snapshots)
	return d, func() { _ = bctx.Close() }, nil
}

// Close stops the browser and the Playwright driver.
func (in *Instance) Close() error {
	var firstErr error
	if in.browser != nil {
		if err := in.browser.Close(); err != nil {
			firstErr = err
		}
	}
	if in.pw != nil {
		if err := in.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
