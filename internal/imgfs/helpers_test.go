package imgfs

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

// fakeCodec treats any payload as a 100x50 image unless it starts with
// "bad". Resized output is derived from the input so tests can tell
// renditions apart.
type fakeCodec struct {
	mu         sync.Mutex
	resizes    int
	failResize bool
}

func (f *fakeCodec) Dimensions(data []byte) (uint32, uint32, error) {
	if bytes.HasPrefix(data, []byte("bad")) {
		return 0, 0, errors.New("not an image")
	}
	return 100, 50, nil
}

func (f *fakeCodec) Resize(data []byte, maxWidth, maxHeight uint) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failResize {
		return nil, errors.New("resize failed")
	}
	f.resizes++
	return []byte(fmt.Sprintf("%dx%d:%s", maxWidth, maxHeight, data)), nil
}

func (f *fakeCodec) resizeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resizes
}

var testLayout = Layout{
	Capacity: 4,
	Thumb:    Box{Width: 64, Height: 64},
	Small:    Box{Width: 256, Height: 256},
}

func newTestStore(t *testing.T, layout Layout) (*Store, *fakeCodec) {
	t.Helper()
	codec := &fakeCodec{}
	s, err := Create(filepath.Join(t.TempDir(), "test.imgfs"), layout, Options{Codec: codec})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, codec
}

func mustInsert(t *testing.T, s *Store, data []byte, id string) int {
	t.Helper()
	index, err := s.Insert(data, id)
	if err != nil {
		t.Fatalf("Insert(%q) error = %v", id, err)
	}
	return index
}

func occupiedCount(s *Store) uint32 {
	var n uint32
	for _, slot := range s.Slots() {
		if slot.Occupied() {
			n++
		}
	}
	return n
}

func assertCode(t *testing.T, err error, want Code) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}
