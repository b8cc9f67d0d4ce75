// Package scanner discovers source images below an input directory.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	applog "webp-converter-go/internal/logger"

	"github.com/sirupsen/logrus"
)

// DefaultExtensions are the source formats picked up when none are configured.
var DefaultExtensions = []string{".heic", ".jpg", ".jpeg", ".png"}

// ErrNotFound is matched by NotFoundError through errors.Is.
var ErrNotFound = errors.New("input directory not found")

// NotFoundError reports a missing input directory.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("input directory does not exist: %s", e.Path)
}

// Is lets errors.Is(err, ErrNotFound) match any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ImageRecord describes one discovered source image.
type ImageRecord struct {
	AbsolutePath string `json:"absolute_path"`
	RelativePath string `json:"relative_path"`
	FileName     string `json:"file_name"`
	SizeBytes    int64  `json:"size_bytes"`
	Extension    string `json:"extension"` // upper case with leading dot, e.g. ".JPG"
}

// Result is the outcome of a scan.
type Result struct {
	Root            string
	Records         []ImageRecord
	ExtensionCounts map[string]int
	TotalBytes      int64
}

// Count returns the number of discovered images.
func (r *Result) Count() int {
	return len(r.Records)
}

// Extensions returns the extensions found, sorted.
func (r *Result) Extensions() []string {
	exts := make([]string, 0, len(r.ExtensionCounts))
	for ext := range r.ExtensionCounts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Scanner walks input trees.
type Scanner struct {
	logger     *logrus.Logger
	extensions map[string]struct{}
}

// New returns a Scanner matching the given extensions, or DefaultExtensions
// when exts is empty.
func New(logger *logrus.Logger, exts []string) *Scanner {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Scanner{logger: logger, extensions: set}
}

// Supports reports whether a file name has a supported extension.
func (s *Scanner) Supports(name string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Record builds the ImageRecord for a single file below root.
func (s *Scanner) Record(root, path string) (ImageRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ImageRecord{}, err
	}
	return newRecord(root, path, info)
}

// Scan walks root recursively and collects every supported image. Records are
// sorted by relative path. Unreadable entries are logged and skipped. A
// symlinked root is followed.
func (s *Scanner) Scan(root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, &NotFoundError{Path: root}
	}
	// filepath.Walk does not descend into a symlinked root
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, &NotFoundError{Path: root}
	}

	result := &Result{
		Root:            root,
		ExtensionCounts: make(map[string]int),
	}

	err = filepath.Walk(walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			s.logger.Warnf("Error accessing path %s: %v", path, err)
			return nil
		}
		if info.IsDir() || !s.Supports(info.Name()) {
			return nil
		}

		record, err := newRecord(walkRoot, path, info)
		if err != nil {
			s.logger.Warnf("Skipping %s: %v", path, err)
			return nil
		}

		result.Records = append(result.Records, record)
		result.ExtensionCounts[record.Extension]++
		result.TotalBytes += record.SizeBytes
		s.logger.Debugf("Found image: %s (%d bytes)", record.RelativePath, record.SizeBytes)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(result.Records, func(i, j int) bool {
		return result.Records[i].RelativePath < result.Records[j].RelativePath
	})

	applog.WithOperation(s.logger, "scan").Infof("Found %d images in %s", len(result.Records), root)
	return result, nil
}

// Scan walks root with the default extensions.
func Scan(root string) (*Result, error) {
	return New(nil, nil).Scan(root)
}

func newRecord(root, path string, info os.FileInfo) (ImageRecord, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ImageRecord{}, err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ImageRecord{}, fmt.Errorf("%s is outside %s", path, root)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return ImageRecord{
		AbsolutePath: abs,
		RelativePath: rel,
		FileName:     info.Name(),
		SizeBytes:    info.Size(),
		Extension:    strings.ToUpper(filepath.Ext(info.Name())),
	}, nil
}
