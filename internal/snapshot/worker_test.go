package snapshot

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"imgfs/internal/imgfs"
	"imgfs/internal/storage"
)

type stubRunner struct {
	calls   atomic.Int64
	version atomic.Uint32
	size    atomic.Int64
	fail    atomic.Bool
}

func (s *stubRunner) Snapshot(context.Context) (storage.Snapshot, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return storage.Snapshot{}, errors.New("backend down")
	}
	return storage.Snapshot{Key: "gallery/abc.imgfs"}, nil
}

func (s *stubRunner) Header() imgfs.Header {
	return imgfs.Header{Version: s.version.Load()}
}

func (s *stubRunner) Size() (int64, error) {
	return s.size.Load(), nil
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestWorker_RunOnceWhenNoInterval(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	worker := NewWorker(runner, Config{Enabled: true}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	worker.Run(ctx)

	if runner.calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", runner.calls.Load())
	}
}

func TestWorker_Disabled(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	worker := NewWorker(runner, Config{Enabled: false, Interval: time.Millisecond}, quietLogger())
	worker.Run(context.Background())

	if runner.calls.Load() != 0 {
		t.Fatalf("calls = %d, want 0", runner.calls.Load())
	}
}

func TestWorker_SkipsUnchangedStore(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	worker := NewWorker(runner, Config{Enabled: true, Interval: 10 * time.Millisecond}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	worker.Run(ctx)

	if runner.calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", runner.calls.Load())
	}
}

func TestWorker_SnapshotsAfterChanges(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	worker := NewWorker(runner, Config{Enabled: true}, quietLogger())
	ctx := context.Background()

	worker.runOnce(ctx)
	runner.version.Store(1)
	worker.runOnce(ctx)
	worker.runOnce(ctx)

	if runner.calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", runner.calls.Load())
	}
}

func TestWorker_RetriesAfterFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	runner.fail.Store(true)
	worker := NewWorker(runner, Config{Enabled: true}, quietLogger())
	ctx := context.Background()

	worker.runOnce(ctx)
	runner.fail.Store(false)
	worker.runOnce(ctx)
	worker.runOnce(ctx)

	if runner.calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", runner.calls.Load())
	}
}

func TestWorker_StopsDuringStartupDelay(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	worker := NewWorker(runner, Config{Enabled: true, StartupDelay: time.Hour}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	worker.Run(ctx)

	if runner.calls.Load() != 0 {
		t.Fatalf("calls = %d, want 0", runner.calls.Load())
	}
}

func TestWorker_SnapshotsAfterFileGrowth(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{}
	runner.size.Store(1024)
	worker := NewWorker(runner, Config{Enabled: true}, quietLogger())
	ctx := context.Background()

	worker.runOnce(ctx)
	// a thumbnail appended without a version bump
	runner.size.Store(2048)
	worker.runOnce(ctx)
	worker.runOnce(ctx)

	if runner.calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", runner.calls.Load())
	}
}
