// Package browser runs end-to-end suites against a live Drupal site.
// All suites share one DrupalTestEnv via SetupDrupalTestEnv(t) and drive the
// site through the I actor from NewActor.
//
// The suites skip unless DRUPAL_BASE_URL and DRUPAL_DB_DSN are set (directly
// or in tests/.env) and a Playwright browser can be launched.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/drupal-e2e/internal/acceptance"
	ibrowser "github.com/kuitang/drupal-e2e/internal/browser"
	"github.com/kuitang/drupal-e2e/internal/config"
	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/drupal"
	"github.com/kuitang/drupal-e2e/internal/drush"
	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/obs"
)

const (
	// CODING AGENT RULE: Always use these timeout constants for browser tests.
	// Never introduce a larger timeout value anywhere in tests/browser.
	browserMaxTimeoutMS = 5000
	browserMaxTimeout   = 5 * time.Second

	// Exported aliases for subpackages under tests/browser.
	BrowserMaxTimeoutMS = browserMaxTimeoutMS
	BrowserMaxTimeout   = browserMaxTimeout
)

var drupalFixtureMu sync.Mutex
var drupalSharedFixture *DrupalTestEnv

// DrupalTestEnv is the shared environment for all live-site suites.
type DrupalTestEnv struct {
	Config *config.Config
	DB     *db.Client
	Drush  *drush.Runner

	instance *ibrowser.Instance
}

// SetupDrupalTestEnv returns the shared environment, creating it on first use.
func SetupDrupalTestEnv(t *testing.T) *DrupalTestEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("live Drupal suites are skipped in -short mode")
	}

	drupalFixtureMu.Lock()
	defer drupalFixtureMu.Unlock()

	if drupalSharedFixture != nil {
		if err := drupalSharedFixture.DB.DB().Ping(); err == nil {
			return drupalSharedFixture
		}
		cleanupSharedDrupalTestEnvLocked()
	}

	drupalSharedFixture = createDrupalTestEnv(t)
	return drupalSharedFixture
}

func createDrupalTestEnv(t *testing.T) *DrupalTestEnv {
	t.Helper()

	cfg, err := config.LoadConfig(filepath.Join(repositoryRoot(), "tests", ".env"))
	if err != nil {
		t.Skip("Drupal site not configured:", err)
	}
	cfg.BrowserTimeout = min(cfg.BrowserTimeout, browserMaxTimeout)
	obs.SetLevel(obs.ParseLevel(cfg.LogLevel))

	if err := siteReachable(cfg.BaseURL); err != nil {
		t.Skip("Drupal site unreachable:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), browserMaxTimeout)
	defer cancel()
	client, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		if errs.CodeOf(err) == errs.Unavailable {
			t.Skip("Drupal database unavailable:", err)
		}
		t.Fatalf("Failed to open Drupal database: %v", err)
	}

	runner, err := drush.New(cfg.DrushCommand)
	if err != nil {
		client.Close()
		t.Fatalf("Invalid drush command: %v", err)
	}

	instance, err := ibrowser.Launch(ibrowser.Options{
		Browser:  cfg.Browser,
		Headless: cfg.Headless,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.BrowserTimeout,
	})
	if err != nil {
		client.Close()
		if errs.CodeOf(err) == errs.Unavailable {
			t.Skip("Could not launch browser:", err)
		}
		t.Fatalf("Failed to launch browser: %v", err)
	}

	env := &DrupalTestEnv{Config: cfg, DB: client, Drush: runner, instance: instance}

	// The dump is taken once per process, before any suite mutates the site.
	suite := drupal.New(acceptance.NewFromConfig(cfg, nil, client), runner, drupal.SettingsFromConfig(cfg))
	if err := suite.BeforeSuite(obs.WithTest(context.Background(), "BeforeSuite")); err != nil {
		cleanupDrupalTestEnv(env)
		t.Fatalf("BeforeSuite failed: %v", err)
	}
	return env
}

func siteReachable(baseURL string) error {
	client := &http.Client{Timeout: browserMaxTimeout}
	resp, err := client.Get(baseURL)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("GET %s: status %d", baseURL, resp.StatusCode)
	}
	return nil
}

func cleanupSharedDrupalTestEnv() {
	drupalFixtureMu.Lock()
	defer drupalFixtureMu.Unlock()
	cleanupSharedDrupalTestEnvLocked()
}

func cleanupSharedDrupalTestEnvLocked() {
	if drupalSharedFixture == nil {
		return
	}
	cleanupDrupalTestEnv(drupalSharedFixture)
	drupalSharedFixture = nil
}

func cleanupDrupalTestEnv(env *DrupalTestEnv) {
	if env.instance != nil {
		env.instance.Snapshots().Clear()
		_ = env.instance.Close()
	}
	if env.DB != nil {
		_ = env.DB.Close()
	}
}

func repositoryRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

// NewActor opens a fresh browser context and returns an actor driving it.
// Session snapshots are shared across actors, so a login performed by one
// test is reused by the next.
func (env *DrupalTestEnv) NewActor(t *testing.T) *I {
	t.Helper()

	driver, closeDriver, err := env.instance.NewDriver()
	if err != nil {
		t.Fatalf("could not create browser page: %v", err)
	}
	t.Cleanup(closeDriver)
	return NewActor(t, driver, env.DB, env.Drush, env.Config)
}

// SessionSnapshots lists the logins cached for the suite.
func (env *DrupalTestEnv) SessionSnapshots() []string {
	return env.instance.Snapshots().Names()
}

// GenerateUniqueTitle returns a title no other test run will produce.
func GenerateUniqueTitle(prefix string) string {
	return fmt.Sprintf("%s %s", prefix, uuid.NewString())
}
