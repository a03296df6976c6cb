// Command drupaltest runs the Drupal test helpers outside a test binary:
// taking and sharing the fixture dump, smoke-checking URLs and resolving
// path aliases.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kuitang/drupal-e2e/internal/config"
	"github.com/kuitang/drupal-e2e/internal/db"
	"github.com/kuitang/drupal-e2e/internal/drush"
	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/obs"
	"github.com/kuitang/drupal-e2e/internal/s3client"
)

// app carries the global flags and the seams the commands are built on.
type app struct {
	envFiles    []string
	logLevel    string
	logLevelSet bool

	out        io.Writer
	loadConfig func(envFiles ...string) (*config.Config, error)
	openDB     func(ctx context.Context, driver, dsn string) (*db.Client, error)
	newStore   func(ctx context.Context, cfg *config.Config) (*s3client.Client, error)
	drushOpts  []drush.Option
}

func newApp(out io.Writer) *app {
	return &app{
		out:        out,
		loadConfig: config.LoadConfig,
		openDB:     db.Open,
		newStore:   dumpStore,
	}
}

// dumpStore connects to the shared dump bucket configured in cfg.
func dumpStore(ctx context.Context, cfg *config.Config) (*s3client.Client, error) {
	if cfg.DumpStoreBucket == "" {
		return nil, errs.New(errs.FailedPrecondition, "DRUPAL_DUMP_S3_BUCKET is not set")
	}
	return s3client.New(ctx, s3client.Config{
		Endpoint:        cfg.DumpStoreEndpoint,
		Region:          cfg.DumpStoreRegion,
		AccessKeyID:     cfg.DumpStoreAccessKeyID,
		SecretAccessKey: cfg.DumpStoreSecretKey,
		BucketName:      cfg.DumpStoreBucket,
		Prefix:          cfg.DumpStorePrefix,
		UsePathStyle:    cfg.DumpStoreUsePathStyle,
	})
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "drupaltest",
		Short:         "Drupal end-to-end test helpers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			obs.Init()
			a.logLevelSet = cmd.Flags().Changed("log-level")
			if a.logLevelSet {
				obs.SetLevel(obs.ParseLevel(a.logLevel))
			}
		},
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files to load before the environment")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(a.dumpCommand())
	root.AddCommand(a.fetchDumpCommand())
	root.AddCommand(a.checkURLsCommand())
	root.AddCommand(a.aliasCommand())
	return root
}

func (a *app) config() (*config.Config, error) {
	cfg, err := a.loadConfig(a.envFiles...)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return nil, errs.Wrap(errs.InvalidArgument, "load config", err)
		}
		return nil, err
	}
	if !a.logLevelSet {
		obs.SetLevel(obs.ParseLevel(cfg.LogLevel))
	}
	return cfg, nil
}

func (a *app) drush(cfg *config.Config) (*drush.Runner, error) {
	return drush.New(cfg.DrushCommand, a.drushOpts...)
}

// exitCode maps a command error to the process status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return errs.ExitCode(errs.CodeOf(err))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp(os.Stdout).rootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "drupaltest:", err)
	}
	os.Exit(exitCode(err))
}
