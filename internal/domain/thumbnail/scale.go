package thumbnail

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"golang.org/x/image/draw"
)

// Size is a bounding box edge in pixels for scaled thumbnails.
type Size int

const (
	// SizeOriginal keeps the decoded dimensions
	SizeOriginal Size = 0
	// SizeSmall is 150x150 pixels - for list views
	SizeSmall Size = 150
	// SizeMedium is 300x300 pixels - for grid views
	SizeMedium Size = 300
	// SizeLarge is 500x500 pixels - for detail views
	SizeLarge Size = 500
)

// ParseSize maps a query value to a Size. Unknown values fall back to the original.
func ParseSize(s string) Size {
	switch s {
	case "small", "150":
		return SizeSmall
	case "medium", "300":
		return SizeMedium
	case "large", "500":
		return SizeLarge
	default:
		return SizeOriginal
	}
}

// Scaled returns the image scaled to fit within size while keeping the
// aspect ratio. Images already smaller than size are returned as is.
func (i *Image) Scaled(size Size) image.Image {
	if size <= SizeOriginal {
		return i.img
	}
	if i.Width <= int(size) && i.Height <= int(size) {
		return i.img
	}
	return resize(i.img, int(size))
}

// EncodeJPEG writes the (optionally scaled) image as JPEG.
func (i *Image) EncodeJPEG(w io.Writer, size Size) error {
	if err := jpeg.Encode(w, i.Scaled(size), &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	return nil
}

// resize scales src to fit within maxSize x maxSize.
func resize(src image.Image, maxSize int) image.Image {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	var newW, newH int
	if srcW > srcH {
		newW = maxSize
		newH = int(float64(srcH) * float64(maxSize) / float64(srcW))
	} else {
		newH = maxSize
		newW = int(float64(srcW) * float64(maxSize) / float64(srcH))
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
