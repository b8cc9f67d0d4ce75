package codec

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Probe reads only the image header of path and reports its format name and
// dimensions.
func Probe(path string) (string, Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", Dimensions{}, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return "", Dimensions{}, &DecodeError{Path: path, Err: err}
	}
	return format, Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}
