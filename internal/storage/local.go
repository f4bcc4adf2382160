package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore keeps snapshots under a root directory.
type LocalStore struct {
	root string
}

var _ SnapshotStorage = (*LocalStore)(nil)

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (b *LocalStore) Put(_ context.Context, name string, r io.Reader) (snap Snapshot, err error) {
	if err := validateName(name); err != nil {
		return Snapshot{}, err
	}
	tmpDir := filepath.Join(b.root, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("create tmp dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(tmpDir, "snapshot-*")
	if err != nil {
		return Snapshot{}, fmt.Errorf("create tmp file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		if err != nil || snap.Reused {
			_ = os.Remove(tmpName)
		}
	}()

	sum, n, err := hashingCopy(tmpFile, r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("write snapshot: %w", err)
	}
	snap = Snapshot{
		Digest: "sha256:" + hex.EncodeToString(sum),
		Size:   n,
		Key:    snapshotKey(name, sum),
	}
	absPath := filepath.Join(b.root, filepath.FromSlash(snap.Key))

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot dir: %w", err)
	}
	if _, statErr := os.Stat(absPath); statErr == nil {
		snap.Reused = true
		return snap, nil
	}

	if err := tmpFile.Sync(); err != nil {
		return Snapshot{}, fmt.Errorf("sync tmp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return Snapshot{}, fmt.Errorf("close tmp file: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		return Snapshot{}, fmt.Errorf("move snapshot: %w", err)
	}
	return snap, nil
}

func (b *LocalStore) Open(_ context.Context, key string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(b.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Object{ReadCloser: f, Size: info.Size()}, nil
}
