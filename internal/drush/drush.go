// Package drush runs the Drupal shell against the site under test.
package drush

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/logutil"
	"github.com/kuitang/drupal-e2e/internal/obs"
)

const logOutputChars = 500

// DefaultStructureTables are dumped without data: caches, sessions, queues
// and logs are rebuilt by Drupal and only bloat the fixture.
var DefaultStructureTables = []string{
	"batch",
	"cache_*",
	"cachetags",
	"captcha_sessions",
	"flood",
	"queue",
	"sessions",
	"watchdog",
}

// Executor runs a process and returns its combined output.
type Executor interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct{}

// Run implements Executor.
func (OSExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Runner invokes drush with a fixed base command line.
type Runner struct {
	base []string
	dir  string
	exec Executor
}

// Option configures a Runner.
type Option func(*Runner)

// WithDir runs drush from dir (the Drupal project root).
func WithDir(dir string) Option {
	return func(r *Runner) { r.dir = dir }
}

// WithExecutor replaces the process executor.
func WithExecutor(e Executor) Option {
	return func(r *Runner) { r.exec = e }
}

// New parses command with shell quoting rules, e.g. `ddev drush` or
// `vendor/bin/drush --root="my site/web"`.
func New(command string, opts ...Option) (*Runner, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	base, err := parser.Parse(command)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, fmt.Sprintf("invalid drush command %q", command), err)
	}
	if len(base) == 0 {
		return nil, errs.New(errs.InvalidArgument, "drush command is empty")
	}
	base[0] = filepath.FromSlash(base[0])

	r := &Runner{base: base, exec: OSExecutor{}}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Command returns the parsed base command line.
func (r *Runner) Command() []string {
	return append([]string(nil), r.base...)
}

// Run executes drush with args appended to the base command.
func (r *Runner) Run(ctx context.Context, args ...string) ([]byte, error) {
	argv := append(r.Command()[1:], args...)
	log := obs.From(ctx, "drush")
	log.Info("drush", "args", strings.Join(args, " "))

	out, err := r.exec.Run(ctx, r.dir, r.base[0], argv...)
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return out, errs.Wrap(errs.Unavailable, fmt.Sprintf("drush not found at %q", r.base[0]), err)
		case errors.As(err, &exitErr):
			log.Error("drush failed",
				"args", strings.Join(args, " "),
				"exit_code", exitErr.ExitCode(),
				"output", logutil.TruncateForLog(string(out), logOutputChars),
			)
			return out, errs.Wrap(errs.Internal,
				fmt.Sprintf("drush %s exited with %d: %s", strings.Join(args, " "), exitErr.ExitCode(),
					logutil.TruncateForLog(string(out), logOutputChars)), err)
		default:
			return out, fmt.Errorf("run drush %s: %w", strings.Join(args, " "), err)
		}
	}
	return out, nil
}

// SQLDump writes the database to resultFile. Tables in structureTables
// (wildcards allowed) are dumped without rows.
func (r *Runner) SQLDump(ctx context.Context, resultFile string, structureTables []string) error {
	if strings.TrimSpace(resultFile) == "" {
		return errs.New(errs.InvalidArgument, "sql-dump result file is required")
	}
	args := []string{"sql-dump", "--result-file=" + filepath.FromSlash(resultFile)}
	if len(structureTables) > 0 {
		args = append(args, "--structure-tables-list="+strings.Join(structureTables, ","))
	}
	_, err := r.Run(ctx, args...)
	return err
}

// EntityDelete deletes entities of entityType. With no ids every entity of
// the type is deleted.
func (r *Runner) EntityDelete(ctx context.Context, entityType string, ids ...int64) error {
	if strings.TrimSpace(entityType) == "" {
		return errs.New(errs.InvalidArgument, "entity type is required")
	}
	args := []string{"entity:delete", entityType}
	if len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(id, 10)
		}
		args = append(args, strings.Join(parts, ","))
	}
	args = append(args, "--yes")
	_, err := r.Run(ctx, args...)
	return err
}

// CacheRebuild rebuilds all Drupal caches.
func (r *Runner) CacheRebuild(ctx context.Context) error {
	_, err := r.Run(ctx, "cache:rebuild", "--yes")
	return err
}

// StructureTables returns the default structure-only tables followed by extra.
func StructureTables(extra []string) []string {
	out := make([]string, 0, len(DefaultStructureTables)+len(extra))
	out = append(out, DefaultStructureTables...)
	return append(out, extra...)
}
