// Package scheduler walks the filesystem tree and drives the engine over a
// fixed pool of workers. Directories found during the walk are distributed
// through a shared unbounded FIFO queue; files are processed inline by the
// worker that found them. Workers stop cooperatively on cancellation or on
// the first unrecoverable error, and drain out once the queue stays empty.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cperrin88/aclman/internal/logger"
	"github.com/cperrin88/aclman/pkg/backend"
	"github.com/cperrin88/aclman/pkg/config"
	"github.com/cperrin88/aclman/pkg/engine"
	"github.com/cperrin88/aclman/pkg/errors"
	"github.com/cperrin88/aclman/pkg/identity"
	"github.com/cperrin88/aclman/pkg/policy"
)

// Options control a scheduler run.
type Options struct {
	// Recursive enables descending into subdirectories; otherwise only
	// the start paths themselves are processed.
	Recursive bool

	// DryRun computes and logs changes without issuing them.
	DryRun bool

	// Workers is the total pool size including the invoking goroutine.
	Workers int

	// QueueTimeout bounds how long an idle worker waits before draining
	// out; it also bounds how promptly cancellation is noticed.
	QueueTimeout time.Duration

	// PolicyFilePrefix is the reserved policy-file name prefix.
	PolicyFilePrefix string

	// NonExecExtensions lists file extensions that never receive execute
	// permission.
	NonExecExtensions []string
}

// Scheduler distributes tree visits across the worker pool. Each worker
// owns its policy resolver, identity resolver and engine; only the queue
// and the backend are shared.
type Scheduler struct {
	backend backend.Backend
	opts    Options
}

// New creates a scheduler. Zero-valued options fall back to the configured
// defaults.
func New(b backend.Backend, opts Options) *Scheduler {
	if opts.Workers < 1 {
		opts.Workers = config.DefaultWorkers
	}
	if opts.QueueTimeout <= 0 {
		opts.QueueTimeout = config.DefaultQueueTimeout
	}
	if opts.PolicyFilePrefix == "" {
		opts.PolicyFilePrefix = config.DefaultPolicyFilePrefix
	}
	return &Scheduler{backend: b, opts: opts}
}

// Run processes the start paths and, in recursive mode, their subtrees.
// It returns once every worker has drained out, with the first
// unrecoverable error if any worker hit one. Operations already issued are
// never rolled back.
func (s *Scheduler) Run(ctx context.Context, starts []string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	q := newQueue()
	for _, start := range starts {
		q.push(task{path: start})
	}

	var wg sync.WaitGroup
	for i := 1; i < s.opts.Workers; i++ {
		wg.Add(1)
		name := fmt.Sprintf("worker-%d", i)
		go func() {
			defer wg.Done()
			s.worker(ctx, cancel, q, name)
		}()
	}
	// the invoking goroutine participates in the pool
	s.worker(ctx, cancel, q, "worker-0")
	wg.Wait()

	if cause := context.Cause(ctx); cause != nil && !stderrors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// worker pulls directory visits until the queue stays empty, cancellation
// is observed, or processing fails. A failure cancels the whole run;
// other workers stop as soon as they observe it.
func (s *Scheduler) worker(ctx context.Context, cancel context.CancelCauseFunc, q *queue, name string) {
	log := logger.GetLogger().With("worker", name)
	ident := identity.NewResolver()
	pol := policy.NewResolver(s.opts.PolicyFilePrefix, ident, log)
	eng := engine.New(s.backend, pol, ident, engine.Options{
		PolicyFilePrefix:  s.opts.PolicyFilePrefix,
		NonExecExtensions: s.opts.NonExecExtensions,
		DryRun:            s.opts.DryRun,
	}, log)

	for {
		if ctx.Err() != nil {
			trace(log, "stopping on cancellation")
			return
		}
		t, ok := q.pop(ctx, s.opts.QueueTimeout)
		if !ok {
			trace(log, "queue empty")
			return
		}
		if err := s.process(eng, q, t, log); err != nil {
			log.Error("processing failed", "path", t.path, "error", err)
			cancel(err)
			return
		}
	}
}

// process applies policy to one path and, for directories in recursive
// mode, queues subdirectories and handles files inline.
func (s *Scheduler) process(eng *engine.Engine, q *queue, t task, log *slog.Logger) error {
	info := t.info
	if info == nil {
		fi, err := os.Lstat(t.path)
		if err != nil {
			if os.IsNotExist(err) {
				log.Warn("ignoring not existing path", "path", t.path)
				return nil
			}
			return errors.Wrapf(errors.ErrExternalOp, "lstat %s: %v", t.path, err)
		}
		info = fi
	}

	path, err := filepath.Abs(t.path)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidPath, "%s: %v", t.path, err)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		trace(log, "ignoring symbolic link", "path", path)
		return nil
	}

	log.Debug("visit", "path", path, "dir", info.IsDir())
	if _, err := eng.Apply(path, info); err != nil {
		return err
	}

	if !info.IsDir() || !s.opts.Recursive {
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return errors.Wrapf(errors.ErrExternalOp, "listing %s: %v", path, err)
	}
	for _, entry := range entries {
		entryPath := filepath.Join(path, entry.Name())
		entryInfo, err := entry.Info()
		if err != nil {
			return errors.Wrapf(errors.ErrExternalOp, "lstat %s: %v", entryPath, err)
		}
		if entryInfo.Mode()&fs.ModeSymlink != 0 {
			trace(log, "ignoring symbolic link", "path", entryPath)
			continue
		}
		if entryInfo.IsDir() {
			// subtrees are spread over the pool
			q.push(task{path: entryPath, info: entryInfo})
			continue
		}
		log.Debug("visit", "path", entryPath, "dir", false)
		if _, err := eng.Apply(entryPath, entryInfo); err != nil {
			return err
		}
	}
	return nil
}

func trace(log *slog.Logger, msg string, args ...any) {
	log.Log(context.Background(), logger.LevelTrace, msg, args...)
}
