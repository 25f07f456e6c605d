// Package watch triggers analysis cycles when repository history changes.
//
// The watcher observes the repository's .git metadata (HEAD and branch
// refs), coalesces event bursts with a debounce window, and rate-limits
// how often the runner fires so a rebase or fast push cannot stampede the
// pipeline.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/repopilot/internal/logging"
)

// Runner executes one analysis cycle.
type Runner func(ctx context.Context)

// Watcher drives the watch loop for one repository.
type Watcher struct {
	repoPath string
	debounce time.Duration
	limiter  *rate.Limiter
	log      *logging.Logger
	run      Runner
}

// New creates a watcher. minCycleInterval bounds how often run can fire.
func New(repoPath string, debounce, minCycleInterval time.Duration, log *logging.Logger, run Runner) *Watcher {
	return &Watcher{
		repoPath: repoPath,
		debounce: debounce,
		limiter:  rate.NewLimiter(rate.Every(minCycleInterval), 1),
		log:      log.Named("watch"),
		run:      run,
	}
}

// Run watches until ctx is cancelled. One cycle always runs at startup so
// a daemon restart cannot miss activity that happened while it was down.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	gitDir := filepath.Join(w.repoPath, ".git")
	for _, dir := range []string{gitDir, filepath.Join(gitDir, "refs", "heads")} {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	// Startup cycle.
	if err := w.limiter.Wait(ctx); err != nil {
		return nil
	}
	w.run(ctx)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if relevant(event) {
				w.log.Debug(ctx, "history event", zap.String("op", event.Op.String()), zap.String("name", event.Name))
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn(ctx, "watch error", zap.Error(err))

		case <-timer.C:
			if err := w.limiter.Wait(ctx); err != nil {
				return nil
			}
			w.run(ctx)
		}
	}
}

// relevant filters out transient lock files and editor noise; only HEAD
// and ref updates matter.
func relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasSuffix(name, ".lock") || strings.HasPrefix(name, ".") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}
