// Package converter runs the batch conversion of scanned images.
package converter

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"webp-converter-go/internal/codec"
	"webp-converter-go/internal/scanner"
	"webp-converter-go/internal/statistics"
)

// Status is the result kind of one conversion attempt.
type Status string

const (
	StatusSuccess Status = "ok"
	StatusFailed  Status = "failed"
)

// Outcome describes the result of converting a single image. Sizes and
// dimensions are only set on success; Err only on failure.
type Outcome struct {
	Record             scanner.ImageRecord `json:"record"`
	Status             Status              `json:"status"`
	OutputPath         string              `json:"output_path"`
	OriginalSize       int64               `json:"original_size,omitempty"`
	ConvertedSize      int64               `json:"converted_size,omitempty"`
	OriginalDimensions codec.Dimensions    `json:"original_dimensions,omitempty"`
	FinalDimensions    codec.Dimensions    `json:"final_dimensions,omitempty"`
	Err                string              `json:"error,omitempty"`
	Duration           time.Duration       `json:"duration"`
}

// Succeeded reports whether the conversion produced an output file.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// Resized reports whether the image was scaled down.
func (o Outcome) Resized() bool {
	return o.Succeeded() && o.OriginalDimensions != o.FinalDimensions
}

// Reduction is the percentage size decrease of this file; negative values
// mean the output is larger than the source.
func (o Outcome) Reduction() float64 {
	if !o.Succeeded() {
		return 0
	}
	return statistics.Reduction(o.OriginalSize, o.ConvertedSize)
}

// FileResult converts the outcome into the form statistics.Summarize consumes.
func (o Outcome) FileResult() statistics.FileResult {
	return statistics.FileResult{
		Path:           o.Record.RelativePath,
		Success:        o.Succeeded(),
		OriginalBytes:  o.OriginalSize,
		ConvertedBytes: o.ConvertedSize,
		Error:          o.Err,
	}
}

// FileResults maps outcomes to statistics.FileResult values, keeping order.
func FileResults(outcomes []Outcome) []statistics.FileResult {
	results := make([]statistics.FileResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.FileResult()
	}
	return results
}

// Counts returns the number of successful and failed outcomes.
func Counts(outcomes []Outcome) (converted, failed int) {
	for _, o := range outcomes {
		if o.Succeeded() {
			converted++
		} else {
			failed++
		}
	}
	return converted, failed
}

// OutputPath mirrors the record's relative directory below outputRoot and
// replaces the source extension with ext.
func OutputPath(record scanner.ImageRecord, outputRoot, ext string) string {
	name := strings.TrimSuffix(record.FileName, filepath.Ext(record.FileName)) + ext
	return filepath.Join(outputRoot, filepath.Dir(record.RelativePath), name)
}

// Converter is the interface satisfied by the batch pipeline.
type Converter interface {
	// ConvertAll returns exactly one outcome per record, in input order.
	ConvertAll(ctx context.Context, records []scanner.ImageRecord, outputRoot string, quality int) []Outcome
}
