// Package snapshot runs periodic background snapshots of an open store.
package snapshot

import (
	"context"
	"io"
	"log"
	"time"

	"imgfs/internal/imgfs"
	"imgfs/internal/storage"

	"github.com/google/uuid"
)

type runner interface {
	Snapshot(context.Context) (storage.Snapshot, error)
	Header() imgfs.Header
	Size() (int64, error)
}

type Config struct {
	Enabled      bool
	StartupDelay time.Duration
	Interval     time.Duration
}

type Worker struct {
	runner runner
	cfg    Config
	logger *log.Logger

	// header version and file size of the last stored snapshot; version
	// is -1 before the first one
	lastVersion int64
	lastSize    int64
}

func NewWorker(r runner, cfg Config, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.StartupDelay < 0 {
		cfg.StartupDelay = 0
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	return &Worker{
		runner:      r,
		cfg:         cfg,
		logger:      logger,
		lastVersion: -1,
	}
}

// Run takes one snapshot after the startup delay and then one per interval
// until ctx is done. A zero interval means a single run.
func (w *Worker) Run(ctx context.Context) {
	if !w.cfg.Enabled || w.runner == nil {
		return
	}
	if w.cfg.StartupDelay > 0 {
		timer := time.NewTimer(w.cfg.StartupDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}

	w.runOnce(ctx)
	if w.cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	version := int64(w.runner.Header().Version)
	// materialized renditions grow the file without a version bump
	size, err := w.runner.Size()
	if err == nil && version == w.lastVersion && size == w.lastSize {
		return
	}
	runID := uuid.NewString()
	start := time.Now()
	snap, err := w.runner.Snapshot(ctx)
	if err != nil {
		w.logger.Printf("snapshot %s failed after %s: %v", runID, time.Since(start).Round(time.Millisecond), err)
		return
	}
	w.lastVersion = version
	w.lastSize = size
	w.logger.Printf(
		"snapshot %s finished in %s: version=%d key=%s size=%d reused=%v",
		runID,
		time.Since(start).Round(time.Millisecond),
		version,
		snap.Key,
		snap.Size,
		snap.Reused,
	)
}
