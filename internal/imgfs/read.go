package imgfs

import "fmt"

// Read returns the bytes of rendition res of image id, resizing and
// persisting it first if it has never been requested. The length of the
// returned slice is the exact image size.
func (s *Store) Read(id string, res Resolution) ([]byte, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if !res.valid() {
		return nil, fmt.Errorf("%w: %d", ErrResolution, res)
	}

	data, ready, err := s.readReady(id, res)
	if err != nil || ready {
		return data, err
	}

	// Concurrent first reads of the same rendition share one resize.
	_, err, _ = s.resizeGroup.Do(id+"/"+res.String(), func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.checkOpen(); err != nil {
			return nil, err
		}
		index, err := s.lookup(id)
		if err != nil {
			return nil, err
		}
		return nil, s.materialize(index, res)
	})
	if err != nil {
		return nil, err
	}

	data, ready, err = s.readReady(id, res)
	if err != nil || ready {
		return data, err
	}

	// The slot changed between the resize and the read, e.g. it was
	// deleted and reinserted. Redo both under the write lock.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	index, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := s.materialize(index, res); err != nil {
		return nil, err
	}
	v := s.slots[index].Variants[res]
	return s.readBlob(v.Offset, v.Size)
}

// readReady reads rendition res under the read lock if it already exists.
func (s *Store) readReady(id string, res Resolution) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	index, err := s.lookup(id)
	if err != nil {
		return nil, false, err
	}
	v := s.slots[index].Variants[res]
	if v.Size == 0 {
		return nil, false, nil
	}
	data, err := s.readBlob(v.Offset, v.Size)
	return data, true, err
}
