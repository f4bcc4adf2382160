package imgfs

import "fmt"

// materialize makes sure rendition res of the slot at index exists on
// disk, resizing the original on first use. The slot is only updated once
// the resized bytes are appended, so a failure leaves it untouched and the
// call can be retried. Callers hold the write lock.
func (s *Store) materialize(index int, res Resolution) error {
	if !res.valid() {
		return fmt.Errorf("%w: %d", ErrResolution, res)
	}
	if index < 0 || index >= len(s.slots) {
		return fmt.Errorf("%w: slot %d out of range", ErrInvalidArgument, index)
	}
	slot := s.slots[index]
	if res == Original || !slot.Occupied() || slot.Variants[res].Size > 0 {
		return nil
	}
	box, _ := s.header.Target(res)

	orig, err := s.readBlob(slot.Variants[Original].Offset, slot.Variants[Original].Size)
	if err != nil {
		return err
	}
	resized, err := s.codec.Resize(orig, uint(box.Width), uint(box.Height))
	if err != nil {
		return fmt.Errorf("%w: resize %q to %s: %v", ErrImageLibrary, slot.ID, box, err)
	}
	if len(resized) == 0 {
		return fmt.Errorf("%w: resize %q produced no data", ErrImageLibrary, slot.ID)
	}

	size, err := blobSize(len(resized))
	if err != nil {
		return err
	}
	offset, err := s.appendBlob(resized)
	if err != nil {
		return err
	}
	s.slots[index].Variants[res] = Variant{Offset: offset, Size: size}
	if err := s.writeSlot(index); err != nil {
		s.slots[index] = slot
		return err
	}
	return nil
}
