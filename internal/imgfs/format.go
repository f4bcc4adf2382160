package imgfs

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
)

// On-disk layout. Integers are written in the host byte order and every
// record is packed; the raw* structs below are the layout description and
// encoding/binary walks them field by field.
//
//	header: name[32] version:u32 valid:u32 capacity:u32 reserved:u32 reserved:u64 resized:[4]u16
//	slot:   id[128] sha256[32] valid:u16 reserved:u16 {offset:u64 size:u32}x3 width:u32 height:u32
const (
	StoreName = "EPFL ImgFS 2024"

	MaxNameLen = nameFieldSize - 1
	MaxIDLen   = idFieldSize - 1
	HashSize   = sha256.Size

	HeaderSize = 64
	SlotSize   = 208

	nameFieldSize = 32
	idFieldSize   = 128
)

var byteOrder = binary.NativeEndian

// Resolution selects one rendition of an image.
type Resolution uint8

const (
	Original Resolution = iota
	Thumbnail
	Small

	NumResolutions = 3
)

func (r Resolution) String() string {
	switch r {
	case Original:
		return "orig"
	case Thumbnail:
		return "thumb"
	case Small:
		return "small"
	default:
		return fmt.Sprintf("resolution(%d)", uint8(r))
	}
}

func (r Resolution) valid() bool { return r < NumResolutions }

// ParseResolution accepts the names used by the command line and HTTP
// front ends.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "orig", "original":
		return Original, nil
	case "thumb", "thumbnail":
		return Thumbnail, nil
	case "small":
		return Small, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrResolution, s)
	}
}

// Box is a target width x height for a derived resolution.
type Box struct {
	Width  uint16
	Height uint16
}

func (b Box) String() string { return fmt.Sprintf("%dx%d", b.Width, b.Height) }

// Header is the fixed record at offset 0.
type Header struct {
	Name       string
	Version    uint32
	ValidCount uint32
	Capacity   uint32
	Reserved32 uint32
	Reserved64 uint64
	Thumb      Box
	Small      Box
}

// Target returns the resize box configured for a derived resolution.
func (h Header) Target(r Resolution) (Box, bool) {
	switch r {
	case Thumbnail:
		return h.Thumb, true
	case Small:
		return h.Small, true
	default:
		return Box{}, false
	}
}

// SlotState is the validity flag of a metadata slot.
type SlotState uint16

const (
	Empty SlotState = iota
	Occupied
)

// Variant locates one rendition inside the blob region. A zero Variant
// means the rendition has not been written yet.
type Variant struct {
	Offset uint64
	Size   uint32
}

// Slot is one metadata record. Its index in the table is its physical
// address; ID is the user-facing key.
type Slot struct {
	ID         string
	Hash       [HashSize]byte
	State      SlotState
	Reserved16 uint16
	Variants   [NumResolutions]Variant
	Width      uint32
	Height     uint32
}

func (s Slot) Occupied() bool { return s.State == Occupied }

type rawHeader struct {
	Name       [nameFieldSize]byte
	Version    uint32
	ValidCount uint32
	Capacity   uint32
	Reserved32 uint32
	Reserved64 uint64
	Resized    [4]uint16
}

type rawSlot struct {
	ID         [idFieldSize]byte
	Hash       [HashSize]byte
	State      uint16
	Reserved16 uint16
	Variants   [NumResolutions]Variant
	OrigRes    [2]uint32
}

// MarshalBinary encodes the header into exactly HeaderSize bytes.
func (h Header) MarshalBinary() ([]byte, error) {
	raw := rawHeader{
		Version:    h.Version,
		ValidCount: h.ValidCount,
		Capacity:   h.Capacity,
		Reserved32: h.Reserved32,
		Reserved64: h.Reserved64,
		Resized:    [4]uint16{h.Thumb.Width, h.Thumb.Height, h.Small.Width, h.Small.Height},
	}
	if err := putCString(raw.Name[:], h.Name); err != nil {
		return nil, fmt.Errorf("%w: store name: %v", ErrInvalidArgument, err)
	}
	return binary.Append(make([]byte, 0, HeaderSize), byteOrder, &raw)
}

// UnmarshalBinary decodes a header from the first HeaderSize bytes of data.
func (h *Header) UnmarshalBinary(data []byte) error {
	var raw rawHeader
	if _, err := binary.Decode(data, byteOrder, &raw); err != nil {
		return fmt.Errorf("%w: decode header: %v", ErrIO, err)
	}
	*h = Header{
		Name:       cString(raw.Name[:]),
		Version:    raw.Version,
		ValidCount: raw.ValidCount,
		Capacity:   raw.Capacity,
		Reserved32: raw.Reserved32,
		Reserved64: raw.Reserved64,
		Thumb:      Box{Width: raw.Resized[0], Height: raw.Resized[1]},
		Small:      Box{Width: raw.Resized[2], Height: raw.Resized[3]},
	}
	return nil
}

// MarshalBinary encodes the slot into exactly SlotSize bytes.
func (s Slot) MarshalBinary() ([]byte, error) {
	raw := rawSlot{
		Hash:       s.Hash,
		State:      uint16(s.State),
		Reserved16: s.Reserved16,
		Variants:   s.Variants,
		OrigRes:    [2]uint32{s.Width, s.Height},
	}
	if err := putCString(raw.ID[:], s.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	return binary.Append(make([]byte, 0, SlotSize), byteOrder, &raw)
}

// UnmarshalBinary decodes a slot from the first SlotSize bytes of data.
func (s *Slot) UnmarshalBinary(data []byte) error {
	var raw rawSlot
	if _, err := binary.Decode(data, byteOrder, &raw); err != nil {
		return fmt.Errorf("%w: decode slot: %v", ErrIO, err)
	}
	*s = Slot{
		ID:         cString(raw.ID[:]),
		Hash:       raw.Hash,
		State:      SlotState(raw.State),
		Reserved16: raw.Reserved16,
		Variants:   raw.Variants,
		Width:      raw.OrigRes[0],
		Height:     raw.OrigRes[1],
	}
	return nil
}

// ValidateID checks that id fits the fixed identifier field.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	case len(id) > MaxIDLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIdentifier, MaxIDLen)
	case strings.IndexByte(id, 0) >= 0:
		return fmt.Errorf("%w: contains NUL", ErrInvalidIdentifier)
	}
	return nil
}

// putCString copies s into a NUL padded field, keeping room for the
// terminator.
func putCString(dst []byte, s string) error {
	if len(s) >= len(dst) {
		return fmt.Errorf("%q does not fit in %d bytes", s, len(dst)-1)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%q contains NUL", s)
	}
	copy(dst, s)
	return nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
