package imgfs

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"imgfs/internal/imgcodec"

	"golang.org/x/sync/singleflight"
)

// MaxCapacity bounds the metadata table so that it can be held in memory.
const MaxCapacity = 1 << 24

// slots written per call while initialising a table
const createBatch = 1024

// Mode selects how Open accesses the file.
type Mode uint8

const (
	ReadOnly Mode = iota
	ReadWrite
)

// Layout fixes the geometry of a new store.
type Layout struct {
	Capacity uint32
	Thumb    Box
	Small    Box
}

// Options carries collaborators shared by Create and Open.
type Options struct {
	// Codec decodes and resizes images. Nil selects imgcodec.New().
	Codec Codec
}

// Store is an open imgFS file. Insert, Delete and lazy resizing hold the
// write lock for the whole operation; reads of already materialized
// renditions share the read lock.
type Store struct {
	mu     sync.RWMutex
	path   string
	mode   Mode
	file   *os.File
	header Header
	slots  []Slot
	codec  Codec
	closed bool

	resizeGroup singleflight.Group
}

// Create writes a fresh store at path, replacing any existing file, and
// returns it opened read-write.
func Create(path string, layout Layout, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path required", ErrInvalidArgument)
	}
	if layout.Capacity == 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidArgument)
	}
	if layout.Capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d exceeds %d", ErrOutOfMemory, layout.Capacity, MaxCapacity)
	}
	if layout.Thumb.Width == 0 || layout.Thumb.Height == 0 || layout.Small.Width == 0 || layout.Small.Height == 0 {
		return nil, fmt.Errorf("%w: resize targets must be non-zero", ErrResolution)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrIO, path, err)
	}
	if err := lockFile(f, true); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: lock %s: %v", ErrIO, path, err)
	}
	s := &Store{
		path: path,
		mode: ReadWrite,
		file: f,
		header: Header{
			Name:     StoreName,
			Capacity: layout.Capacity,
			Thumb:    layout.Thumb,
			Small:    layout.Small,
		},
		slots: make([]Slot, layout.Capacity),
		codec: defaultCodec(opts.Codec),
	}
	if err := s.initFile(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initFile() error {
	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("%w: truncate: %v", ErrIO, err)
	}
	if err := s.writeHeader(); err != nil {
		return err
	}
	empty := make([]byte, createBatch*SlotSize)
	for written := uint32(0); written < s.header.Capacity; {
		n := min(s.header.Capacity-written, createBatch)
		off := int64(HeaderSize) + int64(written)*SlotSize
		if _, err := s.file.WriteAt(empty[:int(n)*SlotSize], off); err != nil {
			return fmt.Errorf("%w: write metadata table: %v", ErrIO, err)
		}
		written += n
	}
	return nil
}

// Open loads the header and the full metadata table of an existing store.
func Open(path string, mode Mode, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path required", ErrInvalidArgument)
	}
	flag := os.O_RDONLY
	if mode == ReadWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	if err := lockFile(f, mode == ReadWrite); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: lock %s: %v", ErrIO, path, err)
	}
	s := &Store{
		path:  path,
		mode:  mode,
		file:  f,
		codec: defaultCodec(opts.Codec),
	}
	if err := s.load(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	buf := make([]byte, HeaderSize)
	if _, err := s.file.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("%w: read header: %v", ErrIO, err)
	}
	if err := s.header.UnmarshalBinary(buf); err != nil {
		return err
	}
	if s.header.Capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity %d exceeds %d", ErrOutOfMemory, s.header.Capacity, MaxCapacity)
	}

	// Checked before allocating so a corrupt capacity cannot force a huge
	// table allocation.
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat: %v", ErrIO, err)
	}
	tableSize := int64(s.header.Capacity) * SlotSize
	if info.Size() < HeaderSize+tableSize {
		return fmt.Errorf("%w: metadata table truncated", ErrIO)
	}

	table := make([]byte, tableSize)
	if _, err := s.file.ReadAt(table, HeaderSize); err != nil {
		return fmt.Errorf("%w: read metadata table: %v", ErrIO, err)
	}
	s.slots = make([]Slot, s.header.Capacity)
	var occupied uint32
	for i := range s.slots {
		if err := s.slots[i].UnmarshalBinary(table[i*SlotSize:]); err != nil {
			return err
		}
		if s.slots[i].Occupied() {
			occupied++
		}
	}
	if s.header.ValidCount > s.header.Capacity {
		return fmt.Errorf("%w: valid count %d exceeds capacity %d", ErrIO, s.header.ValidCount, s.header.Capacity)
	}
	// A write interrupted between slot and header leaves the header count
	// behind the table. The table wins; the next mutation persists it.
	s.header.ValidCount = occupied
	return nil
}

// Close releases the file and the in-memory table. Closing a nil or
// already closed store is a no-op.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.slots = nil
	if s.file == nil {
		return nil
	}
	_ = unlockFile(s.file)
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("%w: close: %v", ErrIO, err)
	}
	return nil
}

// Path returns the file the store was opened from.
func (s *Store) Path() string { return s.path }

// Mode reports whether the handle accepts mutations.
func (s *Store) Mode() Mode { return s.mode }

// Header returns a copy of the in-memory header.
func (s *Store) Header() Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header
}

// Capacity is the fixed number of slots in the table.
func (s *Store) Capacity() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header.Capacity
}

// Slot returns a copy of the slot at index.
func (s *Store) Slot(index int) (Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return Slot{}, err
	}
	if index < 0 || index >= len(s.slots) {
		return Slot{}, fmt.Errorf("%w: slot %d out of range", ErrInvalidArgument, index)
	}
	return s.slots[index], nil
}

// Slots returns a copy of the metadata table.
func (s *Store) Slots() []Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

func (s *Store) checkOpen() error {
	if s.closed {
		return fmt.Errorf("%w: store is closed", ErrInvalidArgument)
	}
	return nil
}

func (s *Store) checkWritable() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.mode != ReadWrite {
		return fmt.Errorf("%w: store opened read-only", ErrIO)
	}
	return nil
}

// readBlob returns exactly size bytes starting at offset.
func (s *Store) readBlob(offset uint64, size uint32) ([]byte, error) {
	buf := make([]byte, size)
	n, err := s.file.ReadAt(buf, int64(offset))
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("%w: read %d bytes at %d: %v", ErrIO, size, offset, err)
}

// blobSize checks that n fits the u32 size field of a variant.
func blobSize(n int) (uint32, error) {
	if uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrInvalidArgument, n, uint64(math.MaxUint32))
	}
	return uint32(n), nil
}

// appendBlob writes data at the current end of file and returns the offset
// where it starts. Persisting the slots that reference it is up to the
// caller.
func (s *Store) appendBlob(data []byte) (uint64, error) {
	if err := s.checkWritable(); err != nil {
		return 0, err
	}
	end, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("%w: seek end: %v", ErrIO, err)
	}
	if _, err := s.file.WriteAt(data, end); err != nil {
		return 0, fmt.Errorf("%w: append %d bytes: %v", ErrIO, len(data), err)
	}
	return uint64(end), nil
}

func (s *Store) writeSlot(index int) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	buf, err := s.slots[index].MarshalBinary()
	if err != nil {
		return err
	}
	off := int64(HeaderSize) + int64(index)*SlotSize
	if _, err := s.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("%w: write slot %d: %v", ErrIO, index, err)
	}
	return nil
}

func (s *Store) writeHeader() error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	buf, err := s.header.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := s.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("%w: write header: %v", ErrIO, err)
	}
	return nil
}

// lookup finds the occupied slot holding id. Callers hold s.mu.
func (s *Store) lookup(id string) (int, error) {
	for i := range s.slots {
		if s.slots[i].Occupied() && s.slots[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrImageNotFound, id)
}

func defaultCodec(c Codec) Codec {
	if c == nil {
		return imgcodec.New()
	}
	return c
}

// Size returns the current length of the file. It grows when a derived
// rendition is materialized even though the header version does not.
func (s *Store) Size() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	info, err := s.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat: %v", ErrIO, err)
	}
	return info.Size(), nil
}

// WriteTo copies the whole file to w under the read lock, so the copy is a
// consistent image of the store.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	info, err := s.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat: %v", ErrIO, err)
	}
	n, err := io.Copy(w, io.NewSectionReader(s.file, 0, info.Size()))
	if err != nil {
		return n, fmt.Errorf("%w: copy store: %v", ErrIO, err)
	}
	return n, nil
}
