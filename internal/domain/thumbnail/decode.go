package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder

	_ "golang.org/x/image/webp" // WebP decoder
)

// DefaultMaxPixels caps the decoded size of a single image (40 MP).
const DefaultMaxPixels int64 = 40_000_000

// ErrTooManyPixels is returned when an image header declares more pixels
// than the decode limit allows.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Decode turns encoded image bytes into an Image for ref, refusing images
// larger than DefaultMaxPixels.
func Decode(ref string, data []byte) (*Image, error) {
	return DecodeLimited(ref, data, DefaultMaxPixels)
}

// DecodeLimited is Decode with an explicit pixel limit. The header is
// checked before any pixel data is allocated. Non-positive maxPixels uses
// DefaultMaxPixels.
func DecodeLimited(ref string, data []byte, maxPixels int64) (*Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New("image has no pixels")
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d is over %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("image has no pixels")
	}

	return &Image{
		Ref:      ref,
		Format:   format,
		MimeType: DetectMimeType(data),
		Width:    b.Dx(),
		Height:   b.Dy(),
		Size:     len(data),
		img:      img,
	}, nil
}

// DetectMimeType detects the MIME type from image data magic bytes.
func DetectMimeType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}

	switch {
	// JPEG: FF D8 FF
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	// PNG: 89 50 4E 47
	case data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return "image/png"
	// GIF87a / GIF89a
	case data[0] == 'G' && data[1] == 'I' && data[2] == 'F' && data[3] == '8':
		return "image/gif"
	// WebP: RIFF....WEBP
	case len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P':
		return "image/webp"
	}

	return "application/octet-stream"
}
