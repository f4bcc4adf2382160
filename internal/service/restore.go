package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"imgfs/internal/imgfs"
	"imgfs/internal/storage"
)

// Restore copies the snapshot stored under key to dst. The copy is checked
// by opening it as a store before it replaces dst.
func Restore(ctx context.Context, snapshots storage.SnapshotStorage, key, dst string) (n int64, err error) {
	if snapshots == nil {
		return 0, ErrSnapshotsDisabled
	}
	obj, err := snapshots.Open(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("open snapshot %s: %w", key, err)
	}
	defer obj.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".restore-*")
	if err != nil {
		return 0, fmt.Errorf("create tmp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	n, err = io.Copy(tmp, obj)
	if err != nil {
		return 0, fmt.Errorf("copy snapshot: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("close tmp file: %w", err)
	}

	st, err := imgfs.Open(tmpName, imgfs.ReadOnly, imgfs.Options{})
	if err != nil {
		return 0, fmt.Errorf("verify snapshot: %w", err)
	}
	_ = st.Close()

	if err = os.Rename(tmpName, dst); err != nil {
		return 0, fmt.Errorf("move restored file: %w", err)
	}
	return n, nil
}
