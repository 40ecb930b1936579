// Package executor applies planned items to a storage backend with bounded
// concurrency.
package executor

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuya-takeyama/site-sync/internal/retry"
	"github.com/yuya-takeyama/site-sync/pkg/backend"
	"github.com/yuya-takeyama/site-sync/pkg/logger"
	"github.com/yuya-takeyama/site-sync/pkg/planner"
	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

const (
	defaultConcurrency = 8
	defaultTimeout     = 5 * time.Minute
)

// ErrNotDispatched marks items that were never sent to the backend because
// the run was cancelled or a fail-fast run had already failed.
var ErrNotDispatched = errors.New("not dispatched")

type Options struct {
	Concurrency int
	// Timeout bounds each backend call, retries included.
	Timeout time.Duration
	// FailFast stops dispatching after the first failure.
	FailFast bool
	Retry    retry.Policy
}

type Executor struct {
	backend backend.Backend
	logger  logger.Logger
	opts    Options
	target  func(key string) string
}

func NewExecutor(b backend.Backend, log logger.Logger, opts Options) *Executor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Executor{
		backend: b,
		logger:  log,
		opts:    opts,
		target:  func(key string) string { return key },
	}
}

// WithTarget sets how keys are rendered in log lines.
func (e *Executor) WithTarget(fn func(key string) string) *Executor {
	e.target = fn
	return e
}

type Result struct {
	Item  planner.Item
	Error error
}

// Execute runs every upload and delete in items and returns one Result per
// item, in input order. Keep items make no call; they are logged and always
// succeed. Once ctx is done no new calls start, and uploads or deletes not
// yet started fail with ErrNotDispatched.
func (e *Executor) Execute(ctx context.Context, items []planner.Item) []Result {
	results := make([]Result, len(items))

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)

	for i, item := range items {
		results[i] = Result{Item: item}
		if item.Action == planner.ActionKeep {
			e.logger.Keep(e.target(item.Key), itemArgs(item)...)
			continue
		}
		if runCtx.Err() != nil {
			results[i].Error = notDispatched(runCtx)
			continue
		}

		g.Go(func() error {
			if runCtx.Err() != nil {
				results[i].Error = notDispatched(runCtx)
				return nil
			}

			err := e.executeItem(runCtx, item)
			if err != nil {
				e.logger.Error(string(item.Action), item.Key, err)
				results[i].Error = err
				if e.opts.FailFast {
					cancel(err)
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func notDispatched(ctx context.Context) error {
	return errors.Join(ErrNotDispatched, context.Cause(ctx))
}

func (e *Executor) executeItem(ctx context.Context, item planner.Item) error {
	args := itemArgs(item)

	switch item.Action {
	case planner.ActionUpload:
		e.logger.Upload(item.LocalPath, e.target(item.Key), args...)
		return e.call(ctx, "upload", item.Key, func(ctx context.Context) error {
			return e.backend.Upload(ctx, item.Key, item.LocalPath, item.Digest)
		})
	case planner.ActionDelete:
		e.logger.Delete(e.target(item.Key), args...)
		return e.call(ctx, "delete", item.Key, func(ctx context.Context) error {
			return e.backend.Delete(ctx, item.Key)
		})
	}
	return nil
}

func itemArgs(item planner.Item) []any {
	return []any{"size", logger.Size(item.Size), "md5", item.Digest}
}

func (e *Executor) call(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	if err := retry.Do(callCtx, e.opts.Retry, fn); err != nil {
		return &syncerr.BackendError{Op: op, Backend: e.backend.Name(), Key: key, Err: err}
	}
	return nil
}
