// Package codectest provides an in-memory codec.Codec for tests.
package codectest

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"webp-converter-go/internal/codec"
)

const header = "fake:"

// Fake decodes files written by WriteImage and encodes by writing
// OutputSize bytes. It never allocates pixel buffers.
type Fake struct {
	// OutputSize is the number of bytes each encoded file gets; 100 when zero.
	OutputSize int
	// FailEncode makes Encode fail for output paths containing any of these.
	FailEncode []string

	mu        sync.Mutex
	encoded   []string
	qualities []int
}

// Decode parses the "fake:WxH" header written by WriteImage.
func (f *Fake) Decode(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &codec.DecodeError{Path: path, Err: err}
	}
	if !bytes.HasPrefix(data, []byte(header)) {
		return nil, &codec.DecodeError{Path: path, Err: errors.New("unknown image format")}
	}
	line, _, _ := strings.Cut(string(data[len(header):]), "\n")
	var w, h int
	if _, err := fmt.Sscanf(line, "%dx%d", &w, &h); err != nil {
		return nil, &codec.DecodeError{Path: path, Err: err}
	}
	return Sized(w, h), nil
}

// Resize returns an image of the requested size.
func (f *Fake) Resize(_ image.Image, width, height int) image.Image {
	return Sized(width, height)
}

// Encode writes OutputSize bytes to path.
func (f *Fake) Encode(img image.Image, path string, quality int) error {
	for _, s := range f.FailEncode {
		if strings.Contains(path, s) {
			return &codec.EncodeError{Path: path, Err: errors.New("disk full")}
		}
	}
	size := f.OutputSize
	if size == 0 {
		size = 100
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		return &codec.EncodeError{Path: path, Err: err}
	}
	f.mu.Lock()
	f.encoded = append(f.encoded, path)
	f.qualities = append(f.qualities, quality)
	f.mu.Unlock()
	return nil
}

// Extension returns ".webp".
func (f *Fake) Extension() string {
	return codec.WebPExtension
}

// Encoded returns the output paths written so far.
func (f *Fake) Encoded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.encoded...)
}

// Qualities returns the quality passed to each Encode call.
func (f *Fake) Qualities() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.qualities...)
}

// WriteImage writes a file Fake can decode as a width x height image. The file
// is padded with zeros to size bytes when size exceeds the header length.
func WriteImage(path string, width, height int, size int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data := []byte(fmt.Sprintf("%s%dx%d\n", header, width, height))
	if size > len(data) {
		data = append(data, make([]byte, size-len(data))...)
	}
	return os.WriteFile(path, data, 0o644)
}

type sized struct {
	rect image.Rectangle
}

// Sized returns an image that only knows its bounds.
func Sized(width, height int) image.Image {
	return sized{rect: image.Rect(0, 0, width, height)}
}

func (s sized) ColorModel() color.Model { return color.NRGBAModel }
func (s sized) Bounds() image.Rectangle { return s.rect }
func (s sized) At(x, y int) color.Color { return color.NRGBA{A: 0xff} }
