package codec

import (
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "github.com/gen2brain/heic" // registers HEIC with image.Decode
	"github.com/gen2brain/webp"
)

// WebPExtension is the extension of files written by ImagingCodec.
const WebPExtension = ".webp"

// ImagingCodec decodes with imaging, resamples with Lanczos and encodes lossy
// WebP.
type ImagingCodec struct {
	// Method is the WebP encoder effort, 0 (fast) to 6 (smallest output).
	Method int
}

// NewImagingCodec returns a codec using the slowest, best-compressing effort.
func NewImagingCodec() *ImagingCodec {
	return &ImagingCodec{Method: 6}
}

// Decode opens path and drops any alpha channel.
func (c *ImagingCodec) Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return toRGB(img), nil
}

// Resize resamples img with the Lanczos filter. Matching dimensions return
// img unchanged.
func (c *ImagingCodec) Resize(img image.Image, width, height int) image.Image {
	if size := SizeOf(img); size.Width == width && size.Height == height {
		return img
	}
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Encode writes img as WebP. Output goes to a temporary file next to path and
// is renamed into place, so a failed encode never leaves a partial file.
func (c *ImagingCodec) Encode(img image.Image, path string, quality int) error {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	err = webp.Encode(tmp, img, webp.Options{Quality: quality, Method: c.Method})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return &EncodeError{Path: path, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &EncodeError{Path: path, Err: err}
	}
	return nil
}

// Extension returns ".webp".
func (c *ImagingCodec) Extension() string {
	return WebPExtension
}

// toRGB returns an NRGBA copy of img with every pixel fully opaque. Colour
// values are kept as they are; transparency is discarded, not composited.
func toRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
