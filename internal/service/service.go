package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"imgfs/internal/imgcodec"
	"imgfs/internal/imgfs"
	"imgfs/internal/storage"
)

var ErrSnapshotsDisabled = errors.New("snapshots are not configured")

// Image is one rendition as served to clients.
type Image struct {
	ID          string
	Resolution  imgfs.Resolution
	ContentType string
	Data        []byte
}

// Service owns an open store for the lifetime of the process and is the
// only thing front ends talk to.
type Service struct {
	store     *imgfs.Store
	snapshots storage.SnapshotStorage
	logger    *log.Logger
}

// New wraps st. snapshots may be nil when no backend is configured.
func New(st *imgfs.Store, snapshots storage.SnapshotStorage, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		store:     st,
		snapshots: snapshots,
		logger:    logger,
	}
}

func (s *Service) Header() imgfs.Header {
	return s.store.Header()
}

func (s *Service) Size() (int64, error) {
	return s.store.Size()
}

func (s *Service) List() []string {
	return s.store.List()
}

func (s *Service) ListJSON() ([]byte, error) {
	return s.store.ListJSON()
}

// Read resolves res by name and returns the matching rendition.
func (s *Service) Read(id, res string) (Image, error) {
	resolution, err := imgfs.ParseResolution(res)
	if err != nil {
		return Image{}, err
	}
	data, err := s.store.Read(id, resolution)
	if err != nil {
		return Image{}, err
	}
	return Image{
		ID:          id,
		Resolution:  resolution,
		ContentType: imgcodec.ContentType(data),
		Data:        data,
	}, nil
}

func (s *Service) Insert(id string, data []byte) (int, error) {
	index, err := s.store.Insert(data, id)
	if err != nil {
		return -1, err
	}
	s.logger.Printf("inserted %q into slot %d (%d bytes)", id, index, len(data))
	return index, nil
}

func (s *Service) Delete(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.Printf("deleted %q", id)
	return nil
}

// SnapshotsEnabled reports whether a snapshot backend is configured.
func (s *Service) SnapshotsEnabled() bool {
	return s.snapshots != nil
}

// Snapshot streams a consistent copy of the store file to the snapshot
// backend. Writers are blocked while the copy runs.
func (s *Service) Snapshot(ctx context.Context) (storage.Snapshot, error) {
	if s.snapshots == nil {
		return storage.Snapshot{}, ErrSnapshotsDisabled
	}
	start := time.Now()
	pr, pw := io.Pipe()
	go func() {
		_, err := s.store.WriteTo(pw)
		pw.CloseWithError(err)
	}()
	snap, err := s.snapshots.Put(ctx, SnapshotName(s.store.Path()), pr)
	// unblocks the writer goroutine if Put returned early
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("snapshot %s: %w", s.store.Path(), err)
	}
	s.logger.Printf("snapshot %s stored as %s (%d bytes, reused=%v) in %s",
		s.store.Path(), snap.Key, snap.Size, snap.Reused, time.Since(start).Round(time.Millisecond))
	return snap, nil
}

// SnapshotName derives the snapshot namespace from the store file name.
func SnapshotName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, name)
	if strings.Trim(name, "._") == "" {
		return "imgfs"
	}
	return name
}
