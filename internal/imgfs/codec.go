package imgfs

// Codec is the image capability the store calls into. Implementations must
// not retain data after returning.
type Codec interface {
	// Dimensions decodes enough of data to report its pixel size.
	Dimensions(data []byte) (width, height uint32, err error)
	// Resize scales data to fit within maxWidth x maxHeight, keeping the
	// aspect ratio, and re-encodes it in the source format.
	Resize(data []byte, maxWidth, maxHeight uint) ([]byte, error)
}
