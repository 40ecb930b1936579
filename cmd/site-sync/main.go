package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/site-sync/internal/config"
	"github.com/yuya-takeyama/site-sync/internal/retry"
	"github.com/yuya-takeyama/site-sync/pkg/factory"
	"github.com/yuya-takeyama/site-sync/pkg/logger"
	"github.com/yuya-takeyama/site-sync/pkg/syncer"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	dryRun         bool
	quiet          bool
	verbose        bool
	envFile        string
	planJSONFile   string
	resultJSONFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "site-sync",
		Short: "Sync a local directory to an object storage bucket using MD5 comparison",
		Long: `site-sync uploads new and changed files from a local directory to a bucket
on AWS S3, Cloudflare R2, Aliyun OSS, Baidu BOS, Tencent COS, MinIO, Google
Cloud Storage or Azure Blob Storage. Files are compared by MD5 digest.

Settings are read from flags, SYNC_* environment variables and an optional
.env file.`,
		Version:      fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := rootCmd.Flags()
	flags.String("dir", "", "Local directory to sync (default \"_site\")")
	flags.String("type", "", "Storage type: "+fmt.Sprint(factory.Types()))
	flags.String("region", "", "Region, or account ID for cloudflare")
	flags.String("bucket", "", "Bucket or container name")
	flags.String("endpoint", "", "Custom endpoint URL")
	flags.String("unused", "", "What to do with remote objects missing locally: keep or delete")
	flags.StringSlice("exclude", nil, "Exclude patterns (multiple allowed)")
	flags.Int("concurrency", 0, "Number of concurrent operations (default 8)")
	flags.Duration("timeout", 0, "Timeout per upload or delete (default 5m)")
	flags.Bool("fail-fast", false, "Stop dispatching operations after the first failure")

	flags.BoolVar(&dryRun, "dryrun", false, "Shows operations without executing")
	flags.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug details")
	flags.StringVar(&envFile, "env-file", ".env", "Path to a dotenv file")
	flags.StringVar(&planJSONFile, "plan-json-file", "", "Path to output plan as JSON file")
	flags.StringVar(&resultJSONFile, "result-json-file", "", "Path to output result as JSON file")

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	syncLogger := logger.New(cmd.ErrOrStderr(), dryRun, quiet, verbose)

	if err := config.LoadDotenv(envFile); err != nil {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := config.New()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	storage, err := factory.NewStorage(cfg.Type, cfg.Settings())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	target := targetFormatter(cfg.Type, cfg.Bucket)
	report, err := syncer.Run(ctx, syncer.Config{
		LocalRoot:   cfg.Dir,
		Backend:     storage,
		Unused:      cfg.Unused,
		Excludes:    cfg.Excludes,
		DryRun:      dryRun,
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		FailFast:    cfg.FailFast,
		Retry:       retry.Default(),
		Logger:      syncLogger,
		Target:      target,
	})
	if report == nil {
		return err
	}

	errs := []error{err}
	if planJSONFile != "" {
		if werr := writeJSON(planJSONFile, newPlanResult(report.Plan, target)); werr != nil {
			syncLogger.Error("write plan", planJSONFile, werr)
			errs = append(errs, fmt.Errorf("failed to write plan JSON: %w", werr))
		}
	}
	if resultJSONFile != "" && !dryRun {
		if werr := writeJSON(resultJSONFile, newSyncResult(report, target)); werr != nil {
			syncLogger.Error("write result", resultJSONFile, werr)
			errs = append(errs, fmt.Errorf("failed to write result JSON: %w", werr))
		}
	}

	syncLogger.Summary(report.Summary())
	return errors.Join(errs...)
}

// targetFormatter renders keys as <type>://<bucket>/<key> for log lines and
// JSON output.
func targetFormatter(storageType, bucket string) func(string) string {
	return func(key string) string {
		return fmt.Sprintf("%s://%s/%s", storageType, bucket, key)
	}
}
