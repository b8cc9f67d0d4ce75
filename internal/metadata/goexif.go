package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// GoExifReader reads camera and capture tags with rwcarlsen/goexif.
type GoExifReader struct {
	logger *logrus.Logger
}

// NewGoExifReader returns a GoExifReader.
func NewGoExifReader(logger *logrus.Logger) *GoExifReader {
	return &GoExifReader{logger: logger}
}

var goExifFields = []exif.FieldName{exif.Make, exif.Model, exif.DateTimeOriginal}

func (g *GoExifReader) SupportsFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains([]string{".jpg", ".jpeg", ".tif", ".tiff"}, ext)
}

func (g *GoExifReader) Read(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	fields := map[string]string{}
	for _, name := range goExifFields {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		if s, err := tag.StringVal(); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				fields[string(name)] = s
			}
		}
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if o, err := tag.Int(0); err == nil {
			fields[string(exif.Orientation)] = strconv.Itoa(o)
		}
	}

	if g.logger != nil {
		g.logger.WithField("file", path).Debugf("Read %d EXIF fields", len(fields))
	}
	if len(fields) == 0 {
		return nil, ErrNoMetadata
	}
	return fields, nil
}
