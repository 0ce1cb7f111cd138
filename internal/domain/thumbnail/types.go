// Package thumbnail resolves thumbnail references into decoded images and
// keeps them in an in-memory cache.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Sentinel errors for matching FetchError kinds with errors.Is.
var (
	// ErrTransferFailure indicates the image bytes could not be obtained
	ErrTransferFailure = errors.New("thumbnail transfer failure")

	// ErrDecodeFailure indicates the bytes are not a decodable image
	ErrDecodeFailure = errors.New("thumbnail decode failure")
)

// FetchErrorKind classifies a FetchError.
type FetchErrorKind int

const (
	TransferFailure FetchErrorKind = iota + 1
	DecodeFailure
)

func (k FetchErrorKind) String() string {
	switch k {
	case TransferFailure:
		return "transfer failure"
	case DecodeFailure:
		return "decode failure"
	default:
		return "unknown"
	}
}

// FetchError reports a failed resolution. The ref stays a cache miss.
type FetchError struct {
	Kind FetchErrorKind
	Ref  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("resolve thumbnail %s: %s: %v", e.Ref, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrTransferFailure and ErrDecodeFailure.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrTransferFailure:
		return e.Kind == TransferFailure
	case ErrDecodeFailure:
		return e.Kind == DecodeFailure
	}
	return false
}

// Fetcher retrieves the raw bytes for a thumbnail reference.
type Fetcher interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, ref string) ([]byte, error)

// Get calls f(ctx, ref).
func (f FetcherFunc) Get(ctx context.Context, ref string) ([]byte, error) {
	return f(ctx, ref)
}

// Image is a decoded thumbnail owned by the Cache. Holders get a read-only
// view and must not modify the pixels returned by Decoded.
type Image struct {
	Ref      string `json:"ref"`
	Format   string `json:"format"`   // Decoder name: jpeg, png, gif, webp
	MimeType string `json:"mimeType"` // Detected from magic bytes
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int    `json:"size"` // Encoded size in bytes

	img image.Image
}

// Decoded returns the decoded pixels.
func (i *Image) Decoded() image.Image {
	return i.img
}
