package statistics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"webp-converter-go/internal/scanner"
)

// ScanStats summarizes the scan phase of a run.
type ScanStats struct {
	Found       int            `json:"found"`
	ByExtension map[string]int `json:"by_extension"`
	TotalBytes  int64          `json:"total_bytes"`
}

// FileResult is the part of a conversion outcome the summary needs.
type FileResult struct {
	Path           string
	Success        bool
	OriginalBytes  int64
	ConvertedBytes int64
	Error          string
}

// FileError records a file that failed to convert.
type FileError struct {
	FilePath string `json:"file_path"`
	Error    string `json:"error"`
}

// RunSummary contains aggregate statistics over one batch.
type RunSummary struct {
	Scan           ScanStats     `json:"scan"`
	Attempted      int           `json:"attempted"`
	Converted      int           `json:"converted"`
	Failed         int           `json:"failed"`
	OriginalBytes  int64         `json:"original_bytes"`
	ConvertedBytes int64         `json:"converted_bytes"`
	Reduction      float64       `json:"reduction_percent"`
	Duration       time.Duration `json:"duration"`
	Errors         []FileError   `json:"errors,omitempty"`
}

// FromScan extracts ScanStats from a scan result. A nil result yields zero
// statistics.
func FromScan(r *scanner.Result) ScanStats {
	stats := ScanStats{ByExtension: make(map[string]int)}
	if r == nil {
		return stats
	}
	stats.Found = r.Count()
	stats.TotalBytes = r.TotalBytes
	for ext, n := range r.ExtensionCounts {
		stats.ByExtension[ext] = n
	}
	return stats
}

// Summarize aggregates per-file results. Totals only include successful files.
func Summarize(scan ScanStats, results []FileResult) RunSummary {
	summary := RunSummary{
		Scan:      scan,
		Attempted: len(results),
	}
	for _, r := range results {
		if !r.Success {
			summary.Failed++
			summary.Errors = append(summary.Errors, FileError{FilePath: r.Path, Error: r.Error})
			continue
		}
		summary.Converted++
		summary.OriginalBytes += r.OriginalBytes
		summary.ConvertedBytes += r.ConvertedBytes
	}
	summary.Reduction = Reduction(summary.OriginalBytes, summary.ConvertedBytes)
	return summary
}

// SafeRatio returns num/den, or def when den is zero.
func SafeRatio(num, den, def float64) float64 {
	if den == 0 {
		return def
	}
	return num / den
}

// Reduction returns the percentage decrease from original to converted. The
// result is negative when the output grew and 0 when original is 0.
func Reduction(original, converted int64) float64 {
	return SafeRatio(float64(original-converted), float64(original), 0) * 100
}

// Saved returns the bytes saved by the conversion; negative means growth.
func (s RunSummary) Saved() int64 {
	return s.OriginalBytes - s.ConvertedBytes
}

// AverageSize returns the mean size of the scanned files in bytes.
func (s ScanStats) AverageSize() int64 {
	return int64(SafeRatio(float64(s.TotalBytes), float64(s.Found), 0))
}

// Extensions returns the scanned extensions, sorted.
func (s ScanStats) Extensions() []string {
	exts := make([]string, 0, len(s.ByExtension))
	for ext := range s.ByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// GetSummary returns a formatted plain-text summary.
func (s RunSummary) GetSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversion Summary:\n\n")
	fmt.Fprintf(&b, "Scan:\n")
	fmt.Fprintf(&b, "\t\tImages Found: %d\n", s.Scan.Found)
	for _, ext := range s.Scan.Extensions() {
		fmt.Fprintf(&b, "\t\t%s: %d\n", ext, s.Scan.ByExtension[ext])
	}
	fmt.Fprintf(&b, "\t\tTotal Size: %s\n", FormatBytes(s.Scan.TotalBytes))
	fmt.Fprintf(&b, "\t\tAverage Size: %s\n\n", FormatBytes(s.Scan.AverageSize()))
	fmt.Fprintf(&b, "Conversion:\n")
	fmt.Fprintf(&b, "\t\tConverted: %d/%d\n", s.Converted, s.Attempted)
	fmt.Fprintf(&b, "\t\tErrors: %d\n", s.Failed)
	fmt.Fprintf(&b, "\t\tOriginal Size: %s\n", FormatBytes(s.OriginalBytes))
	fmt.Fprintf(&b, "\t\tFinal Size: %s\n", FormatBytes(s.ConvertedBytes))
	fmt.Fprintf(&b, "\t\tReduction: %.1f%%", s.Reduction)
	if s.Duration > 0 {
		fmt.Fprintf(&b, "\n\t\tDuration: %v", s.Duration.Round(time.Millisecond))
	}
	return b.String()
}

// FormatBytes returns a human-readable string for a byte count.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < 0 {
		return "-" + FormatBytes(-bytes)
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatKB formats bytes as kilobytes with one decimal.
func FormatKB(bytes int64) string {
	return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
}

// FormatMB formats bytes as megabytes with two decimals.
func FormatMB(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
}
