// Package storage keeps content-addressed copies of imgFS files.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var ErrInvalidName = errors.New("invalid snapshot name")

// Snapshot describes one stored copy.
type Snapshot struct {
	Digest string // "sha256:<hex>"
	Size   int64
	Key    string // backend key, "<name>/<hex>.imgfs"
	// Reused is set when a copy with the same content was already stored.
	Reused bool
}

// Object is an opened snapshot. The caller closes it.
type Object struct {
	io.ReadCloser
	Size int64
}

// SnapshotStorage is implemented by the local-disk and S3-compatible
// backends.
type SnapshotStorage interface {
	// Put stores the content of r under name and returns where it landed.
	// Identical content for the same name is stored once.
	Put(ctx context.Context, name string, r io.Reader) (Snapshot, error)

	// Open retrieves a snapshot by the key returned from Put.
	Open(ctx context.Context, key string) (*Object, error)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func validateKey(key string) error {
	clean := path.Clean(key)
	if key == "" || clean != key || path.IsAbs(key) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("%w: key %q", ErrInvalidName, key)
	}
	return nil
}

func snapshotKey(name string, sum []byte) string {
	return path.Join(name, hex.EncodeToString(sum)+".imgfs")
}

// hashingCopy copies r into w and returns the sha256 of what was copied.
func hashingCopy(w io.Writer, r io.Reader) ([]byte, int64, error) {
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(w, h), r)
	if err != nil {
		return nil, n, err
	}
	return h.Sum(nil), n, nil
}
