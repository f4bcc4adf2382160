package imgfs

import (
	"encoding/json"
	"fmt"
)

// List returns the ids of all occupied slots in slot order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, s.header.ValidCount)
	for _, slot := range s.slots {
		if slot.Occupied() {
			ids = append(ids, slot.ID)
		}
	}
	return ids
}

type listing struct {
	Images []string `json:"Images"`
}

// ListJSON encodes the listing as {"Images":[...]}.
func (s *Store) ListJSON() ([]byte, error) {
	data, err := json.Marshal(listing{Images: s.List()})
	if err != nil {
		return nil, fmt.Errorf("%w: encode listing: %v", ErrIO, err)
	}
	return data, nil
}
