// Package imgcodec decodes images to learn their size and produces
// downscaled copies in the source format.
package imgcodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

var (
	ErrUnsupportedFormat = errors.New("imgcodec: unsupported image format")
	ErrEmptyBox          = errors.New("imgcodec: target box has a zero side")
	ErrTooLarge          = errors.New("imgcodec: image has too many pixels")
)

const (
	DefaultJPEGQuality = 85
	// DefaultMaxPixels caps decoded images at 64 megapixels, about 256 MiB
	// of RGBA.
	DefaultMaxPixels = 64 << 20
)

// Codec resizes with Catmull-Rom resampling. The zero value is usable.
type Codec struct {
	JPEGQuality int
	// MaxPixels bounds width*height of any image that gets decoded.
	// Zero selects DefaultMaxPixels.
	MaxPixels int64
}

func New() *Codec {
	return &Codec{JPEGQuality: DefaultJPEGQuality, MaxPixels: DefaultMaxPixels}
}

// Dimensions reads only the image header.
func (c *Codec) Dimensions(data []byte) (uint32, uint32, error) {
	cfg, _, err := c.decodeConfig(data)
	if err != nil {
		return 0, 0, err
	}
	return uint32(cfg.Width), uint32(cfg.Height), nil
}

// decodeConfig reads the header and rejects sizes that are empty or too
// large to decode.
func (c *Codec) decodeConfig(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("decode config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", fmt.Errorf("decode config: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if limit := c.maxPixels(); int64(cfg.Width)*int64(cfg.Height) > limit {
		return image.Config{}, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, limit)
	}
	return cfg, format, nil
}

// Resize scales data down to fit within maxWidth x maxHeight. Images that
// already fit are re-encoded at their own size.
func (c *Codec) Resize(data []byte, maxWidth, maxHeight uint) ([]byte, error) {
	if maxWidth == 0 || maxHeight == 0 {
		return nil, ErrEmptyBox
	}
	if _, _, err := c.decodeConfig(data); err != nil {
		return nil, err
	}
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), int(maxWidth), int(maxHeight))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.quality()})
	case "png":
		err = png.Encode(&buf, dst)
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func (c *Codec) maxPixels() int64 {
	if c == nil || c.MaxPixels <= 0 {
		return DefaultMaxPixels
	}
	return c.MaxPixels
}

func (c *Codec) quality() int {
	if c == nil || c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		return DefaultJPEGQuality
	}
	return c.JPEGQuality
}

// FitWithin returns the largest size with the aspect ratio of w x h that
// fits inside maxW x maxH without upscaling. Each side is at least 1.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	// compare maxW/w against maxH/h without floating point
	var nw, nh int
	if int64(maxW)*int64(h) <= int64(maxH)*int64(w) {
		nw = maxW
		nh = int(int64(h) * int64(maxW) / int64(w))
	} else {
		nh = maxH
		nw = int(int64(w) * int64(maxH) / int64(h))
	}
	return max(nw, 1), max(nh, 1)
}

// ContentType maps the sniffed format of data to a MIME type.
func ContentType(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "application/octet-stream"
	}
	return "image/" + format
}

// Extension returns the usual file extension for the format of data.
func Extension(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ".bin"
	}
	if format == "jpeg" {
		return ".jpg"
	}
	return "." + format
}
