// Package metadata inspects source images before conversion: header
// dimensions, the size they would be converted to, and embedded tags.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"webp-converter-go/internal/codec"
	"webp-converter-go/internal/resize"
)

// ErrNoMetadata is returned by a Reader that found nothing to report.
var ErrNoMetadata = errors.New("no metadata found")

// Reader extracts tag values from an image file.
type Reader interface {
	Read(path string) (map[string]string, error)
	SupportsFile(path string) bool
}

// Info describes one source image.
type Info struct {
	Path         string            `json:"path"`
	Format       string            `json:"format"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	TargetWidth  int               `json:"target_width"`
	TargetHeight int               `json:"target_height"`
	Fields       map[string]string `json:"fields"`
}

// Resized reports whether conversion would scale the image down.
func (i Info) Resized() bool {
	return i.TargetWidth != i.Width || i.TargetHeight != i.Height
}

// FieldNames returns the metadata keys in sorted order.
func (i Info) FieldNames() []string {
	names := make([]string, 0, len(i.Fields))
	for k := range i.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Inspect reads the image header of path, computes its conversion target for
// maxWidth and attaches whatever reader finds. A reader failure leaves Fields
// empty; only an unreadable header is an error.
func Inspect(path string, maxWidth int, reader Reader) (Info, error) {
	format, dims, err := codec.Probe(path)
	if err != nil {
		return Info{}, err
	}
	tw, th := resize.ComputeTargetSize(dims.Width, dims.Height, maxWidth)
	info := Info{
		Path:         path,
		Format:       format,
		Width:        dims.Width,
		Height:       dims.Height,
		TargetWidth:  tw,
		TargetHeight: th,
		Fields:       map[string]string{},
	}
	if reader == nil || !reader.SupportsFile(path) {
		return info, nil
	}
	if fields, err := reader.Read(path); err == nil {
		info.Fields = fields
	}
	return info, nil
}

// ChainReader tries each reader in order and returns the first non-empty
// result.
type ChainReader []Reader

func (c ChainReader) SupportsFile(path string) bool {
	for _, r := range c {
		if r.SupportsFile(path) {
			return true
		}
	}
	return false
}

func (c ChainReader) Read(path string) (map[string]string, error) {
	var errs []error
	for _, r := range c {
		if !r.SupportsFile(path) {
			continue
		}
		fields, err := r.Read(path)
		if err == nil && len(fields) > 0 {
			return fields, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNoMetadata
}

// CacheStats contains statistics about cache performance.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// CachedReader memoizes another Reader keyed by path, size and modification
// time, so an edited file is read again.
type CachedReader struct {
	reader Reader
	cache  sync.Map
	mutex  sync.Mutex
	stats  CacheStats
}

// NewCachedReader wraps r.
func NewCachedReader(r Reader) *CachedReader {
	return &CachedReader{reader: r}
}

func (c *CachedReader) SupportsFile(path string) bool {
	return c.reader.SupportsFile(path)
}

func (c *CachedReader) Read(path string) (map[string]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	key := fmt.Sprintf("%s:%d:%d", path, fi.Size(), fi.ModTime().UnixNano())
	if v, ok := c.cache.Load(key); ok {
		c.count(true)
		return v.(map[string]string), nil
	}
	c.count(false)

	fields, err := c.reader.Read(path)
	if err != nil {
		return nil, err
	}
	c.cache.Store(key, fields)
	return fields, nil
}

// Stats returns cache statistics.
func (c *CachedReader) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := c.stats
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (c *CachedReader) count(hit bool) {
	c.mutex.Lock()
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	c.mutex.Unlock()
}
