package imgfs

import "fmt"

// dedupe checks the candidate slot at index against every other occupied
// slot. A shared identifier is rejected. Shared content makes the candidate
// reference the other slot's renditions and reports true. Otherwise the
// original offset is reset to 0, telling the caller that the bytes still
// have to be appended. Callers hold the write lock.
func (s *Store) dedupe(index int) (bool, error) {
	if index < 0 || index >= len(s.slots) {
		return false, fmt.Errorf("%w: slot %d out of range", ErrInvalidArgument, index)
	}
	candidate := &s.slots[index]
	if !candidate.Occupied() {
		return false, fmt.Errorf("%w: slot %d is empty", ErrInvalidArgument, index)
	}

	for i := range s.slots {
		if i != index && s.slots[i].Occupied() && s.slots[i].ID == candidate.ID {
			return false, fmt.Errorf("%w: %q", ErrDuplicateID, candidate.ID)
		}
	}

	for i := range s.slots {
		if i == index || !s.slots[i].Occupied() {
			continue
		}
		if s.slots[i].Hash == candidate.Hash {
			candidate.Variants = s.slots[i].Variants
			return true, nil
		}
	}

	candidate.Variants[Original].Offset = 0
	return false, nil
}
