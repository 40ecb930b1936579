// Package syncer drives one sync run: inventory both sides, diff them, then
// apply uploads followed by deletes through a backend.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuya-takeyama/site-sync/internal/retry"
	"github.com/yuya-takeyama/site-sync/pkg/backend"
	"github.com/yuya-takeyama/site-sync/pkg/executor"
	"github.com/yuya-takeyama/site-sync/pkg/inventory"
	"github.com/yuya-takeyama/site-sync/pkg/logger"
	"github.com/yuya-takeyama/site-sync/pkg/planner"
	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

type Config struct {
	// LocalRoot is the directory whose contents become the bucket contents.
	LocalRoot string
	Backend   backend.Backend
	Unused    planner.UnusedPolicy
	Excludes  inventory.Excludes

	// DryRun plans and logs without calling Upload or Delete.
	DryRun      bool
	Concurrency int
	Timeout     time.Duration
	FailFast    bool
	Retry       retry.Policy

	Logger logger.Logger
	// Target renders keys for log lines, e.g. as s3://bucket/key.
	Target func(key string) string
}

// Failure is one key whose upload or delete did not succeed.
type Failure struct {
	Action planner.Action
	Key    string
	Err    error
}

// SyncError aggregates per-key failures. It is returned after every key has
// been attempted.
type SyncError struct {
	Failures []Failure
}

func (e *SyncError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d operations failed", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s %s: %v", f.Action, f.Key, f.Err)
	}
	return b.String()
}

func (e *SyncError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

type Report struct {
	DryRun bool
	// Plan holds every planned item in execution order.
	Plan []planner.Item
	// Results is empty for a dry run.
	Results []executor.Result

	Added    []string
	Updated  []string
	Deleted  []string
	Kept     []string
	Failures []Failure

	BytesUploaded int64
	Duration      time.Duration
}

// Summary condenses the report for logging.
func (r *Report) Summary() logger.Summary {
	return logger.Summary{
		Added:         len(r.Added),
		Updated:       len(r.Updated),
		Deleted:       len(r.Deleted),
		Kept:          len(r.Kept),
		Failed:        len(r.Failures),
		BytesUploaded: r.BytesUploaded,
		Duration:      r.Duration,
	}
}

// Run performs one sync. Configuration, local walk, and listing failures are
// returned without touching the bucket. Per-key failures do not stop other
// keys; they are reported in the Report and returned as a *SyncError.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	start := time.Now()
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	local, err := inventory.BuildLocal(ctx, cfg.LocalRoot, inventory.LocalOptions{Excludes: cfg.Excludes})
	if err != nil {
		return nil, err
	}
	cfg.Logger.Debug("local inventory", "root", cfg.LocalRoot, "files", local.Len(), "size", logger.Size(local.TotalSize()))

	remote, err := inventory.FetchRemote(ctx, cfg.Backend, cfg.Excludes)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Debug("remote inventory", "backend", cfg.Backend.Name(), "objects", remote.Len(), "size", logger.Size(remote.TotalSize()))

	items := planner.Plan(local, remote, planner.Options{LocalRoot: cfg.LocalRoot, Unused: cfg.Unused})
	report := &Report{DryRun: cfg.DryRun, Plan: items}

	if cfg.DryRun {
		for _, item := range items {
			logPlanned(cfg, item)
			report.record(item, nil)
		}
		report.Duration = time.Since(start)
		return report, nil
	}

	exec := executor.NewExecutor(cfg.Backend, cfg.Logger, executor.Options{
		Concurrency: cfg.Concurrency,
		Timeout:     cfg.Timeout,
		FailFast:    cfg.FailFast,
		Retry:       cfg.Retry,
	}).WithTarget(cfg.Target)

	uploads, deletes, keeps := planner.Split(items)
	for _, r := range exec.Execute(ctx, uploads) {
		report.add(r)
	}

	if cfg.FailFast && len(report.Failures) > 0 {
		cause := report.Failures[0].Err
		for _, item := range deletes {
			report.add(executor.Result{Item: item, Error: errors.Join(executor.ErrNotDispatched, cause)})
		}
	} else {
		for _, r := range exec.Execute(ctx, deletes) {
			report.add(r)
		}
	}

	// Keeps make no backend call, so neither fail-fast nor cancellation
	// applies to them.
	for _, item := range keeps {
		logPlanned(cfg, item)
		report.add(executor.Result{Item: item})
	}

	report.Duration = time.Since(start)
	if len(report.Failures) > 0 {
		return report, &SyncError{Failures: report.Failures}
	}
	return report, nil
}

func validate(cfg *Config) error {
	if cfg.Backend == nil {
		return syncerr.Missing("sync_type")
	}
	if strings.TrimSpace(cfg.LocalRoot) == "" {
		return syncerr.Missing("sync_dir")
	}
	switch cfg.Unused {
	case "":
		cfg.Unused = planner.UnusedKeep
	case planner.UnusedKeep, planner.UnusedDelete:
	default:
		return syncerr.Invalid("sync_opt_unused", "unknown policy %q", cfg.Unused)
	}
	if err := cfg.Excludes.Validate(); err != nil {
		return &syncerr.ConfigError{Key: "sync_exclude", Err: err}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop{}
	}
	if cfg.Target == nil {
		cfg.Target = func(key string) string { return key }
	}
	return nil
}

func logPlanned(cfg Config, item planner.Item) {
	args := []any{"size", logger.Size(item.Size), "md5", item.Digest}
	switch item.Action {
	case planner.ActionUpload:
		cfg.Logger.Upload(item.LocalPath, cfg.Target(item.Key), args...)
	case planner.ActionDelete:
		cfg.Logger.Delete(cfg.Target(item.Key), args...)
	case planner.ActionKeep:
		cfg.Logger.Keep(cfg.Target(item.Key), args...)
	}
}

func (r *Report) add(res executor.Result) {
	r.Results = append(r.Results, res)
	r.record(res.Item, res.Error)
}

func (r *Report) record(item planner.Item, err error) {
	if err != nil {
		r.Failures = append(r.Failures, Failure{Action: item.Action, Key: item.Key, Err: err})
		return
	}
	switch item.Action {
	case planner.ActionUpload:
		if item.IsNew() {
			r.Added = append(r.Added, item.Key)
		} else {
			r.Updated = append(r.Updated, item.Key)
		}
		r.BytesUploaded += item.Size
	case planner.ActionDelete:
		r.Deleted = append(r.Deleted, item.Key)
	case planner.ActionKeep:
		r.Kept = append(r.Kept, item.Key)
	}
}
