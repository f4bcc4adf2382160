package imgfs

// Delete tombstones the slot holding id. Its blob bytes stay in the file.
func (s *Store) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWritable(); err != nil {
		return err
	}
	index, err := s.lookup(id)
	if err != nil {
		return err
	}

	prevSlot, prevHeader := s.slots[index], s.header
	s.slots[index].State = Empty
	if err := s.writeSlot(index); err != nil {
		s.slots[index] = prevSlot
		return err
	}

	s.header.Version++
	if s.header.ValidCount > 0 {
		s.header.ValidCount--
	}
	if err := s.writeHeader(); err != nil {
		s.header = prevHeader
		s.slots[index] = prevSlot
		_ = s.writeSlot(index)
		return err
	}
	return nil
}
