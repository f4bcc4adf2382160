package imgfs

import (
	"encoding/hex"
	"fmt"
	"io"
)

// PrintHeader writes the human readable header block.
func PrintHeader(w io.Writer, h Header) {
	fmt.Fprint(w, "*****************************************\n")
	fmt.Fprint(w, "********** IMGFS HEADER START ***********\n")
	fmt.Fprintf(w, "TYPE: %.31s\n", h.Name)
	fmt.Fprintf(w, "VERSION: %d\n", h.Version)
	fmt.Fprintf(w, "IMAGE COUNT: %d\t\tMAX IMAGES: %d\n", h.ValidCount, h.Capacity)
	fmt.Fprintf(w, "THUMBNAIL: %d x %d\tSMALL: %d x %d\n", h.Thumb.Width, h.Thumb.Height, h.Small.Width, h.Small.Height)
	fmt.Fprint(w, "*********** IMGFS HEADER END ************\n")
	fmt.Fprint(w, "*****************************************\n")
}

// PrintMetadata writes the human readable block for one slot.
func PrintMetadata(w io.Writer, s Slot) {
	fmt.Fprintf(w, "IMAGE ID: %s\n", s.ID)
	fmt.Fprintf(w, "SHA: %s\n", hex.EncodeToString(s.Hash[:]))
	fmt.Fprintf(w, "VALID: %d\n", s.State)
	fmt.Fprintf(w, "UNUSED: %d\n", s.Reserved16)
	fmt.Fprintf(w, "OFFSET ORIG. : %d\t\tSIZE ORIG. : %d\n", s.Variants[Original].Offset, s.Variants[Original].Size)
	fmt.Fprintf(w, "OFFSET THUMB.: %d\t\tSIZE THUMB.: %d\n", s.Variants[Thumbnail].Offset, s.Variants[Thumbnail].Size)
	fmt.Fprintf(w, "OFFSET SMALL : %d\t\tSIZE SMALL : %d\n", s.Variants[Small].Offset, s.Variants[Small].Size)
	fmt.Fprintf(w, "ORIGINAL: %d x %d\n", s.Width, s.Height)
	fmt.Fprint(w, "*****************************************\n")
}

// Print writes the header followed by every occupied slot, or an empty
// marker when there is none.
func (s *Store) Print(w io.Writer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	PrintHeader(w, s.header)
	found := false
	for _, slot := range s.slots {
		if slot.Occupied() {
			PrintMetadata(w, slot)
			found = true
		}
	}
	if !found {
		fmt.Fprint(w, "<< empty imgFS >>\n")
	}
}
