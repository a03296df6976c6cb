package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kuitang/drupal-e2e/internal/acceptance"
	ibrowser "github.com/kuitang/drupal-e2e/internal/browser"
	"github.com/kuitang/drupal-e2e/internal/drupal"
	"github.com/kuitang/drupal-e2e/internal/drush"
	"github.com/kuitang/drupal-e2e/internal/obs"
	"github.com/kuitang/drupal-e2e/internal/ratelimit"
	"github.com/kuitang/drupal-e2e/internal/urlutil"
)

func (a *app) dumpCommand() *cobra.Command {
	var out, name string
	var upload bool
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the site database with drush for later repopulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := a.config()
			if err != nil {
				return err
			}
			runner, err := a.drush(cfg)
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.DBDumpPath
			}
			if err := runner.SQLDump(ctx, out, drush.StructureTables(cfg.ExcludeDataTables)); err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			if !upload {
				return nil
			}

			store, err := a.newStore(ctx, cfg)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(out)
			}
			if err := store.Upload(ctx, name, out); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "s3://%s/%s\n", store.BucketName(), store.Key(name))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "result file (default DRUPAL_DB_DUMP)")
	cmd.Flags().BoolVar(&upload, "upload", false, "also upload the dump to the shared dump bucket")
	cmd.Flags().StringVar(&name, "name", "", "object name in the bucket (default the file name)")
	return cmd
}

func (a *app) fetchDumpCommand() *cobra.Command {
	var out, name string
	cmd := &cobra.Command{
		Use:   "fetch-dump",
		Short: "Download the shared dump so the suite can repopulate from it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := a.config()
			if err != nil {
				return err
			}
			store, err := a.newStore(ctx, cfg)
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.DBDumpPath
			}
			if name == "" {
				name = filepath.Base(out)
			}
			if err := store.Download(ctx, name, out); err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "destination file (default DRUPAL_DB_DUMP)")
	cmd.Flags().StringVar(&name, "name", "", "object name in the bucket (default the file name)")
	return cmd
}

func (a *app) checkURLsCommand() *cobra.Command {
	var asAdmin bool
	pacing := ratelimit.DefaultConfig
	cmd := &cobra.Command{
		Use:   "check-urls URL...",
		Short: "Open each URL in a browser and fail on Drupal errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, urls []string) error {
			ctx := cmd.Context()
			cfg, err := a.config()
			if err != nil {
				return err
			}
			client, err := a.openDB(ctx, cfg.DBDriver, cfg.DBDSN)
			if err != nil {
				return err
			}
			defer client.Close()
			runner, err := a.drush(cfg)
			if err != nil {
				return err
			}

			instance, err := ibrowser.Launch(ibrowser.Options{
				Browser:  cfg.Browser,
				Headless: cfg.Headless,
				BaseURL:  cfg.BaseURL,
				Timeout:  cfg.BrowserTimeout,
			})
			if err != nil {
				return err
			}
			defer instance.Close()
			driver, closeDriver, err := instance.NewDriver()
			if err != nil {
				return err
			}
			defer closeDriver()

			h := drupal.New(acceptance.NewFromConfig(cfg, driver, client), runner, drupal.SettingsFromConfig(cfg))
			if asAdmin {
				if err := h.LoginAsAdmin(ctx); err != nil {
					return err
				}
			}
			limiter := ratelimit.New(pacing)
			for _, url := range urls {
				if err := limiter.Wait(ctx, urlutil.Host(cfg.BaseURL, url)); err != nil {
					return err
				}
				if err := h.TestURLs(ctx, []string{url}); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "ok\t%s\n", url)
			}
			obs.From(ctx, "cli").Info("urls checked", "count", len(urls), "as_admin", asAdmin)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asAdmin, "as-admin", false, "log in as the admin user first")
	cmd.Flags().Float64Var(&pacing.RPS, "rps", pacing.RPS, "requests per second per host (0 disables pacing)")
	cmd.Flags().IntVar(&pacing.Burst, "burst", pacing.Burst, "requests allowed back to back per host")
	return cmd
}

func (a *app) aliasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "alias SYSTEM_PATH...",
		Short: "Print the newest path alias of each system path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, paths []string) error {
			ctx := cmd.Context()
			cfg, err := a.config()
			if err != nil {
				return err
			}
			client, err := a.openDB(ctx, cfg.DBDriver, cfg.DBDSN)
			if err != nil {
				return err
			}
			defer client.Close()

			// Alias lookups only touch the database.
			h := drupal.New(acceptance.NewFromConfig(cfg, nil, client), nil, drupal.SettingsFromConfig(cfg))
			for _, p := range paths {
				alias, err := h.GrabPathAlias(ctx, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s\t%s\n", p, alias)
			}
			return nil
		},
	}
}
