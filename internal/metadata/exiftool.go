package metadata

import (
	"fmt"
	"sync"

	"github.com/barasher/go-exiftool"
)

// ExiftoolFields are the tags ExiftoolReader reports.
var ExiftoolFields = []string{"Make", "Model", "DateTimeOriginal", "Orientation", "ColorSpace", "MIMEType"}

// ExiftoolReader reads tags through a long-lived exiftool process. It covers
// formats goexif cannot parse, HEIC in particular.
type ExiftoolReader struct {
	et *exiftool.Exiftool
	mu sync.Mutex
}

// NewExiftoolReader starts exiftool. It fails when the binary is not installed.
func NewExiftoolReader() (*ExiftoolReader, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &ExiftoolReader{et: et}, nil
}

func (e *ExiftoolReader) SupportsFile(string) bool { return true }

func (e *ExiftoolReader) Read(path string) (map[string]string, error) {
	e.mu.Lock()
	infos := e.et.ExtractMetadata(path)
	e.mu.Unlock()

	if len(infos) == 0 {
		return nil, ErrNoMetadata
	}
	info := infos[0]
	if info.Err != nil {
		return nil, fmt.Errorf("exiftool %s: %w", path, info.Err)
	}

	fields := map[string]string{}
	for _, key := range ExiftoolFields {
		if v, err := info.GetString(key); err == nil && v != "" {
			fields[key] = v
		}
	}
	if len(fields) == 0 {
		return nil, ErrNoMetadata
	}
	return fields, nil
}

// Close stops the exiftool process.
func (e *ExiftoolReader) Close() error {
	return e.et.Close()
}
