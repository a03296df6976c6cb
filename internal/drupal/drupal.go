// Package drupal provides Drupal-aware test helpers: navigation with error
// checks, login with cached sessions, a remember/restore session stack,
// fixture queries and entity/cache maintenance.
package drupal

import (
	"context"
	"sync"

	"github.com/kuitang/drupal-e2e/internal/acceptance"
	"github.com/kuitang/drupal-e2e/internal/browser"
	"github.com/kuitang/drupal-e2e/internal/config"
	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/drush"
	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/obs"
	"github.com/kuitang/drupal-e2e/internal/urlutil"
)

// Settings configures a Helper.
type Settings struct {
	CreateDump            bool
	Populate              bool
	DumpPath              string
	AdminUsername         string
	AdminPassword         string
	ErrorMessageSelectors []string
	ExcludeDataTables     []string
}

// SettingsFromConfig extracts the Drupal helper settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		CreateDump:            cfg.CreateDump,
		Populate:              cfg.DBPopulate,
		DumpPath:              cfg.DBDumpPath,
		AdminUsername:         cfg.AdminUsername,
		AdminPassword:         cfg.AdminPassword,
		ErrorMessageSelectors: append([]string(nil), cfg.ErrorMessageSelectors...),
		ExcludeDataTables:     append([]string(nil), cfg.ExcludeDataTables...),
	}
}

// Helper drives a Drupal site. It is not safe to share between parallel
// tests: the session stack belongs to one browser.
type Helper struct {
	acc      *acceptance.Helper
	browser  browser.Driver
	db       *db.Client
	drush    *drush.Runner
	settings Settings

	mu         sync.Mutex
	current    Credentials
	remembered []Credentials
}

// New creates a Helper. runner may be nil when no drush is available; the
// operations that need it then fail with errs.FailedPrecondition.
func New(acc *acceptance.Helper, runner *drush.Runner, settings Settings) *Helper {
	if settings.AdminUsername == "" {
		settings.AdminUsername = config.DefaultAdminUsername
	}
	if settings.AdminPassword == "" {
		settings.AdminPassword = config.DefaultAdminPassword
	}
	if settings.ErrorMessageSelectors == nil {
		settings.ErrorMessageSelectors = append([]string(nil), config.DefaultErrorMessageSelectors...)
	}
	if settings.DumpPath == "" {
		settings.DumpPath = config.DefaultDumpPath
	}
	return &Helper{
		acc:      acc,
		browser:  acc.Browser(),
		db:       acc.DB(),
		drush:    runner,
		settings: settings,
	}
}

// Acceptance returns the underlying acceptance helper.
func (h *Helper) Acceptance() *acceptance.Helper {
	return h.acc
}

// Browser returns the browser driver.
func (h *Helper) Browser() browser.Driver {
	return h.browser
}

// BeforeSuite dumps the database with drush when the suite repopulates the
// database from that dump. Cache, session, queue and log tables keep their
// structure only.
func (h *Helper) BeforeSuite(ctx context.Context) error {
	log := obs.From(ctx, "drupal")
	if !h.settings.CreateDump || !h.settings.Populate {
		log.Info("skipping database dump", "create_dump", h.settings.CreateDump, "populate", h.settings.Populate)
		return nil
	}
	runner, err := h.requireDrush()
	if err != nil {
		return err
	}
	tables := drush.StructureTables(h.settings.ExcludeDataTables)
	log.Info("dumping database", "result_file", h.settings.DumpPath, "structure_tables", len(tables))
	return runner.SQLDump(ctx, h.settings.DumpPath, tables)
}

// AmOnDrupalPage opens url (site-relative, or absolute when it contains
// "://") and checks that the page rendered without Drupal errors.
func (h *Helper) AmOnDrupalPage(ctx context.Context, url string) error {
	var err error
	if urlutil.IsAbsolute(url) {
		err = h.browser.AmOnURL(ctx, url)
	} else {
		err = h.browser.AmOnPage(ctx, url)
	}
	if err != nil {
		return err
	}
	if err := h.browser.SeeElementInDOM(ctx, "body"); err != nil {
		return err
	}
	return h.DontSeeDrupalErrors(ctx)
}

// DontSeeErrorMessage asserts that no error status message is visible.
func (h *Helper) DontSeeErrorMessage(ctx context.Context) error {
	for _, selector := range h.settings.ErrorMessageSelectors {
		if err := h.browser.DontSeeElement(ctx, selector); err != nil {
			return err
		}
	}
	return nil
}

// DontSeeWatchdogPHPErrors asserts the watchdog log holds no PHP errors.
func (h *Helper) DontSeeWatchdogPHPErrors(ctx context.Context) error {
	return h.db.SeeNumRecords(ctx, 0, "watchdog", db.Criteria{"type": "php"})
}

// DontSeeDrupalErrors runs both error checks.
func (h *Helper) DontSeeDrupalErrors(ctx context.Context) error {
	if err := h.DontSeeErrorMessage(ctx); err != nil {
		return err
	}
	return h.DontSeeWatchdogPHPErrors(ctx)
}

// TestURLs opens every url with AmOnDrupalPage and stops at the first failure.
func (h *Helper) TestURLs(ctx context.Context, urls []string) error {
	for _, url := range urls {
		if err := h.AmOnDrupalPage(ctx, url); err != nil {
			return errs.Wrap(errs.CodeOf(err), "check "+url, err)
		}
	}
	return nil
}

func (h *Helper) requireDrush() (*drush.Runner, error) {
	if h.drush == nil {
		return nil, errs.New(errs.FailedPrecondition, "drush is not configured")
	}
	return h.drush, nil
}
