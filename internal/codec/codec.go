// Package codec wraps the image decode, resample and encode primitives the
// converter depends on.
package codec

import (
	"fmt"
	"image"
)

// Codec decodes source images, resamples them and writes encoded output.
type Codec interface {
	// Decode opens the file at path and returns its pixels as opaque RGB.
	Decode(path string) (image.Image, error)
	// Resize resamples img to exactly width x height.
	Resize(img image.Image, width, height int) image.Image
	// Encode writes img to path at the given quality.
	Encode(img image.Image, path string, quality int) error
	// Extension is the canonical output extension, including the dot.
	Extension() string
}

// Dimensions is a width and height pair in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SizeOf returns the dimensions of img.
func SizeOf(img image.Image) Dimensions {
	b := img.Bounds()
	return Dimensions{Width: b.Dx(), Height: b.Dy()}
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// DecodeError reports a source file that could not be read or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports an output file that could not be encoded or written.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
