package imgfs

import (
	"crypto/sha256"
	"fmt"
)

// Insert stores data under id in the first empty slot and returns that
// slot's index. Content already present under another id is shared rather
// than written twice. On failure the in-memory table is left as it was.
func (s *Store) Insert(data []byte, id string) (int, error) {
	if len(data) == 0 {
		return -1, fmt.Errorf("%w: empty image", ErrInvalidArgument)
	}
	size, err := blobSize(len(data))
	if err != nil {
		return -1, err
	}
	if err := ValidateID(id); err != nil {
		return -1, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable(); err != nil {
		return -1, err
	}
	if s.header.ValidCount >= s.header.Capacity {
		return -1, ErrStoreFull
	}
	index := -1
	for i := range s.slots {
		if !s.slots[i].Occupied() {
			index = i
			break
		}
	}
	if index < 0 {
		return -1, fmt.Errorf("%w: no empty slot", ErrStoreFull)
	}

	width, height, err := s.codec.Dimensions(data)
	if err != nil {
		return -1, fmt.Errorf("%w: decode %q: %v", ErrImageLibrary, id, err)
	}

	prevSlot, prevHeader := s.slots[index], s.header
	slotWritten := false
	rollback := func() {
		s.slots[index] = prevSlot
		s.header = prevHeader
		if slotWritten {
			// Best effort: the slot reached the disk but the header did not.
			_ = s.writeSlot(index)
		}
	}

	s.slots[index] = Slot{
		ID:     id,
		Hash:   sha256.Sum256(data),
		State:  Occupied,
		Width:  width,
		Height: height,
	}
	s.slots[index].Variants[Original].Size = size

	shared, err := s.dedupe(index)
	if err != nil {
		rollback()
		return -1, err
	}
	if !shared {
		offset, err := s.appendBlob(data)
		if err != nil {
			rollback()
			return -1, err
		}
		s.slots[index].Variants = [NumResolutions]Variant{
			Original: {Offset: offset, Size: size},
		}
	}

	if err := s.writeSlot(index); err != nil {
		rollback()
		return -1, err
	}
	slotWritten = true

	s.header.Version++
	s.header.ValidCount++
	if err := s.writeHeader(); err != nil {
		rollback()
		return -1, err
	}
	return index, nil
}
