// Package config loads the settings shared by the Drupal test helpers.
// Values come from environment variables, optionally seeded from .env files,
// are defaulted to the stock Drupal/Olivero selectors, and are validated together
// so a misconfigured suite reports every problem at once.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kuitang/drupal-e2e/internal/urlutil"
)

const (
	DefaultPageTitleSelector      = ".page-title"
	DefaultBreadcrumbItemSelector = ".breadcrumb__item"
	DefaultAdminUsername          = "admin"
	DefaultAdminPassword          = "admin"
	DefaultDrushCommand           = "vendor/bin/drush"
	DefaultDumpPath               = "tests/_data/dump.sql"
	DefaultBrowserTimeout         = 5 * time.Second
	DefaultDumpStoreRegion        = "us-east-1"
)

// DefaultErrorMessageSelectors match Drupal status messages of type error
// in the Olivero and Claro themes.
var DefaultErrorMessageSelectors = []string{".status-message--error", ".messages--error"}

// Supported database drivers.
var supportedDrivers = map[string]bool{
	"mysql":    true,
	"postgres": true,
	"sqlite":   true,
}

var supportedBrowsers = map[string]bool{
	"chromium": true,
	"firefox":  true,
	"webkit":   true,
}

// Config holds all helper configuration.
type Config struct {
	// Site under test
	BaseURL string

	// Database (black-box connection to the site's database)
	DBDriver   string // mysql, postgres or sqlite
	DBDSN      string
	DBPopulate bool   // suite loads DBDumpPath before running
	DBDumpPath string // where BeforeSuite writes the dump

	// Drupal helper
	CreateDump            bool
	AdminUsername         string
	AdminPassword         string
	ErrorMessageSelectors []string
	ExcludeDataTables     []string // appended to the built-in structure-only tables
	DrushCommand          string   // split with shell rules, e.g. "ddev drush"

	// Acceptance helper
	PageTitleSelector      string
	BreadcrumbItemSelector string

	// Shared dump storage (S3-compatible); disabled when DumpStoreBucket is empty
	DumpStoreBucket       string
	DumpStorePrefix       string
	DumpStoreEndpoint     string
	DumpStoreRegion       string
	DumpStoreAccessKeyID  string
	DumpStoreSecretKey    string
	DumpStoreUsePathStyle bool

	// Browser
	Browser        string
	Headless       bool
	BrowserTimeout time.Duration

	LogLevel string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Defaults returns a Config with every optional field at its default.
// BaseURL and the database settings are left empty.
func Defaults() *Config {
	return &Config{
		DBDriver:               "mysql",
		DBDumpPath:             DefaultDumpPath,
		CreateDump:             true,
		AdminUsername:          DefaultAdminUsername,
		AdminPassword:          DefaultAdminPassword,
		ErrorMessageSelectors:  append([]string(nil), DefaultErrorMessageSelectors...),
		DrushCommand:           DefaultDrushCommand,
		PageTitleSelector:      DefaultPageTitleSelector,
		BreadcrumbItemSelector: DefaultBreadcrumbItemSelector,
		DumpStoreRegion:        DefaultDumpStoreRegion,
		Browser:                "chromium",
		Headless:               true,
		BrowserTimeout:         DefaultBrowserTimeout,
		LogLevel:               "info",
	}
}

// LoadConfig reads .env files (missing files are skipped, real environment
// variables win) and then the environment, and validates the result.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	cfg := Defaults()

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("DRUPAL_BASE_URL")), "/")

	cfg.DBDriver = strings.ToLower(getEnvOrDefault("DRUPAL_DB_DRIVER", cfg.DBDriver))
	cfg.DBDSN = strings.TrimSpace(os.Getenv("DRUPAL_DB_DSN"))
	cfg.DBPopulate = parseBoolOrDefault("DRUPAL_DB_POPULATE", false)
	cfg.DBDumpPath = getEnvOrDefault("DRUPAL_DB_DUMP", cfg.DBDumpPath)

	cfg.CreateDump = parseBoolOrDefault("DRUPAL_CREATE_DUMP", cfg.CreateDump)
	cfg.AdminUsername = getEnvOrDefault("DRUPAL_ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnvOrDefault("DRUPAL_ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.ErrorMessageSelectors = parseListOrDefault("DRUPAL_ERROR_SELECTORS", cfg.ErrorMessageSelectors)
	cfg.ExcludeDataTables = parseListOrDefault("DRUPAL_EXCLUDE_DATA_TABLES", nil)
	cfg.DrushCommand = getEnvOrDefault("DRUSH_COMMAND", cfg.DrushCommand)

	cfg.PageTitleSelector = getEnvOrDefault("DRUPAL_PAGE_TITLE_SELECTOR", cfg.PageTitleSelector)
	cfg.BreadcrumbItemSelector = getEnvOrDefault("DRUPAL_BREADCRUMB_ITEM_SELECTOR", cfg.BreadcrumbItemSelector)

	cfg.DumpStoreBucket = strings.TrimSpace(os.Getenv("DRUPAL_DUMP_S3_BUCKET"))
	cfg.DumpStorePrefix = strings.Trim(strings.TrimSpace(os.Getenv("DRUPAL_DUMP_S3_PREFIX")), "/")
	cfg.DumpStoreEndpoint = strings.TrimSpace(os.Getenv("DRUPAL_DUMP_S3_ENDPOINT"))
	cfg.DumpStoreRegion = getEnvOrDefault("DRUPAL_DUMP_S3_REGION", cfg.DumpStoreRegion)
	cfg.DumpStoreAccessKeyID = strings.TrimSpace(os.Getenv("DRUPAL_DUMP_S3_ACCESS_KEY_ID"))
	cfg.DumpStoreSecretKey = strings.TrimSpace(os.Getenv("DRUPAL_DUMP_S3_SECRET_ACCESS_KEY"))
	cfg.DumpStoreUsePathStyle = parseBoolOrDefault("DRUPAL_DUMP_S3_PATH_STYLE", cfg.DumpStoreUsePathStyle)

	cfg.Browser = strings.ToLower(getEnvOrDefault("BROWSER", cfg.Browser))
	cfg.Headless = parseBoolOrDefault("BROWSER_HEADLESS", cfg.Headless)
	cfg.BrowserTimeout = parseDurationOrDefault("BROWSER_TIMEOUT", cfg.BrowserTimeout)

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.BaseURL == "" {
		errs = append(errs, "DRUPAL_BASE_URL is required (e.g. http://localhost:8080)")
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "DRUPAL_BASE_URL must be an absolute URL with scheme and host")
	}

	if !supportedDrivers[c.DBDriver] {
		errs = append(errs, fmt.Sprintf("DRUPAL_DB_DRIVER %q is not supported (mysql, postgres, sqlite)", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, "DRUPAL_DB_DSN is required")
	}
	if c.CreateDump && c.DBPopulate && strings.TrimSpace(c.DBDumpPath) == "" {
		errs = append(errs, "DRUPAL_DB_DUMP is required when DRUPAL_CREATE_DUMP and DRUPAL_DB_POPULATE are set")
	}

	if c.AdminUsername == "" {
		errs = append(errs, "DRUPAL_ADMIN_USERNAME must not be empty")
	}
	if len(c.ErrorMessageSelectors) == 0 {
		errs = append(errs, "DRUPAL_ERROR_SELECTORS must list at least one selector")
	}
	if strings.TrimSpace(c.DrushCommand) == "" {
		errs = append(errs, "DRUSH_COMMAND must not be empty")
	}
	if c.PageTitleSelector == "" {
		errs = append(errs, "DRUPAL_PAGE_TITLE_SELECTOR must not be empty")
	}
	if c.BreadcrumbItemSelector == "" {
		errs = append(errs, "DRUPAL_BREADCRUMB_ITEM_SELECTOR must not be empty")
	}

	if c.DumpStoreBucket != "" {
		if (c.DumpStoreAccessKeyID == "") != (c.DumpStoreSecretKey == "") {
			errs = append(errs, "DRUPAL_DUMP_S3_ACCESS_KEY_ID and DRUPAL_DUMP_S3_SECRET_ACCESS_KEY must be set together")
		}
		if c.DumpStoreEndpoint != "" {
			if u, err := url.Parse(c.DumpStoreEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, "DRUPAL_DUMP_S3_ENDPOINT must be an absolute URL")
			}
		}
	}

	if !supportedBrowsers[c.Browser] {
		errs = append(errs, fmt.Sprintf("BROWSER %q is not supported (chromium, firefox, webkit)", c.Browser))
	}
	if c.BrowserTimeout <= 0 {
		errs = append(errs, "BROWSER_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ResolveURL turns a site-relative path into an absolute URL.
// Values that already contain "://" are returned unchanged.
func (c *Config) ResolveURL(path string) string {
	return urlutil.BuildAbsolute(c.BaseURL, path)
}

// TimeoutMS returns the browser timeout in milliseconds as Playwright expects it.
func (c *Config) TimeoutMS() float64 {
	return float64(c.BrowserTimeout / time.Millisecond)
}

func loadEnvFiles(files []string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseListOrDefault splits a comma-separated variable, dropping blanks.
func parseListOrDefault(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
