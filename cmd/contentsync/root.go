package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	contentsync "github.com/goliatone/go-content-sync"
	"github.com/goliatone/go-content-sync/adapters/gologger"
	"github.com/goliatone/go-content-sync/contract"
	"github.com/goliatone/go-content-sync/core"
	"github.com/goliatone/go-content-sync/query"
	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/cobra"
)

const (
	exitOK    = 0
	exitFatal = 1
)

type cliOptions struct {
	id       string
	dryRun   bool
	force    bool
	list     bool
	history  bool
	mode     string
	limit    int
	envFile  string
	logLevel string
}

type cliEnv struct {
	stdout io.Writer
	stderr io.Writer
	lookup func(string) (string, bool)
}

// execute runs the CLI and returns the process exit code. Child record
// failures do not change the exit code; fatal run errors do.
func execute(ctx context.Context, args []string, stdout io.Writer, stderr io.Writer, lookup func(string) (string, bool)) int {
	env := cliEnv{stdout: stdout, stderr: stderr, lookup: lookup}
	cmd := newRootCmd(env)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %s\n", core.ErrorMessage(err))
		return exitFatal
	}
	return exitOK
}

func newRootCmd(env cliEnv) *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:   "contentsync",
		Short: "Import a course and its lessons, assignments and resources from Notion",
		Long: `contentsync imports one course from the Notion authoring databases into the
content store. Records are validated against the schema contract, written
idempotently by checksum, and the sync status is written back to Notion.

Environment: NOTION_TOKEN, NOTION_DB_COURSES, NOTION_DB_LESSONS,
NOTION_DB_ASSIGNMENTS, NOTION_DB_RESOURCES, STRAPI_URL, STRAPI_API_TOKEN.`,
		Example: `  contentsync --list
  contentsync --id course-a --dry-run
  contentsync --id course-a --force
  contentsync --history --id course-a`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), env, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.id, "id", "", "course ID or Notion page ID/URL to import (required unless --list or --history)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "log intended writes without touching the content store or Notion")
	flags.BoolVar(&opts.force, "force", false, "rewrite records even when their checksum is unchanged, and import courses whose status is not ready")
	flags.BoolVar(&opts.list, "list", false, "list courses in the courses database with their import status")
	flags.BoolVar(&opts.history, "history", false, "list recorded import runs from the run ledger")
	flags.StringVar(&opts.mode, "mode", "", "validation mode: IMPORT or RUNTIME (default from CONTENTSYNC_MODE, else IMPORT)")
	flags.IntVar(&opts.limit, "limit", 20, "maximum runs shown by --history")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment; empty disables it")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: trace, debug, info, warn or error")
	cmd.MarkFlagsMutuallyExclusive("list", "history")
	cmd.MarkFlagsMutuallyExclusive("list", "dry-run")

	return cmd
}

func run(ctx context.Context, env cliEnv, opts cliOptions) error {
	if strings.TrimSpace(opts.envFile) != "" {
		if err := contentsync.LoadDotEnv(opts.envFile); err != nil {
			return err
		}
	}

	runtimeCfg := contentsync.Config{}
	if strings.TrimSpace(opts.mode) != "" {
		mode, ok := contract.ParseMode(opts.mode)
		if !ok {
			return usageError(fmt.Sprintf("invalid --mode %q: expected IMPORT or RUNTIME", opts.mode))
		}
		runtimeCfg.Sync.Mode = string(mode)
	}
	cfg, err := contentsync.ResolveConfig(ctx, core.EnvConfigLoader{Lookup: env.lookup}, runtimeCfg)
	if err != nil {
		return err
	}

	level := opts.logLevel
	if cfg.Sync.Debug && strings.EqualFold(strings.TrimSpace(level), "info") {
		level = "debug"
	}
	provider := gologger.NewConsole(env.stderr, level)
	_, logger := gologger.Named("cli", provider, nil)

	switch {
	case opts.history:
		return runHistory(ctx, env, cfg, opts)
	case opts.list:
		return runList(ctx, env, cfg, provider, logger)
	default:
		return runImport(ctx, env, cfg, opts, provider, logger)
	}
}

func runImport(ctx context.Context, env cliEnv, cfg contentsync.Config, opts cliOptions, provider core.LoggerProvider, logger core.Logger) error {
	if strings.TrimSpace(opts.id) == "" {
		return usageError("--id is required unless --list or --history is given")
	}
	if err := cfg.RequireRuntime(); err != nil {
		return err
	}
	metrics := core.NewTallyMetrics()
	rt, err := contentsync.New(ctx, cfg, contentsync.WithLoggerProvider(provider), contentsync.WithMetrics(metrics))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			logger.Warn("closing runtime failed", "error", closeErr)
		}
	}()

	report, runErr := rt.Import(ctx, contentsync.ImportRequest{
		CourseID: opts.id,
		DryRun:   opts.dryRun,
		Force:    opts.force,
	})
	if report.RunID != "" {
		printReport(env.stdout, report)
	}
	logger.Debug("sync metrics",
		"upserts", metrics.Counter(core.MetricUpsertTotal, ""),
		"upsert_failures", metrics.Counter(core.MetricUpsertTotal, string(core.OutcomeFailed)),
		"upsert_ms", metrics.Histogram(core.MetricUpsertDuration).Sum,
		"write_backs", metrics.Counter(core.MetricWriteBackTotal, ""),
	)
	return runErr
}

func runList(ctx context.Context, env cliEnv, cfg contentsync.Config, provider core.LoggerProvider, logger core.Logger) error {
	if err := cfg.RequireListing(); err != nil {
		return err
	}
	rt, err := contentsync.New(ctx, cfg, contentsync.WithLoggerProvider(provider))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			logger.Warn("closing runtime failed", "error", closeErr)
		}
	}()

	courses, err := rt.ListCourses(ctx)
	if err != nil {
		return err
	}
	printCourses(env.stdout, courses)
	return nil
}

func runHistory(ctx context.Context, env cliEnv, cfg contentsync.Config, opts cliOptions) error {
	ledger, err := contentsync.OpenLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = ledger.Close() }()

	page, err := ledger.ListRuns(ctx, query.ListRunsMessage{CourseID: strings.TrimSpace(opts.id), Limit: opts.limit})
	if err != nil {
		return err
	}
	printRuns(env.stdout, page)
	return nil
}

func usageError(message string) error {
	return core.NewSyncError(message, goerrors.CategoryBadInput, core.SyncErrorInvalidRequest, nil)
}
