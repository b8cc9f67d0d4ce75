package statistics

import (
	"testing"

	"webp-converter-go/internal/scanner"

	"github.com/stretchr/testify/assert"
)

func TestSafeRatio(t *testing.T) {
	assert.Equal(t, 0.5, SafeRatio(1, 2, 0))
	assert.Equal(t, 0.0, SafeRatio(5, 0, 0))
	assert.Equal(t, -1.0, SafeRatio(5, 0, -1))
}

func TestReduction(t *testing.T) {
	assert.InDelta(t, 75.0, Reduction(400, 100), 1e-9)
	assert.InDelta(t, -50.0, Reduction(100, 150), 1e-9)
	assert.Equal(t, 0.0, Reduction(0, 0))
	assert.Equal(t, 0.0, Reduction(0, 10))
}

func TestSummarize(t *testing.T) {
	scan := ScanStats{Found: 3, ByExtension: map[string]int{".JPG": 2, ".PNG": 1}, TotalBytes: 3000}
	results := []FileResult{
		{Path: "a.jpg", Success: true, OriginalBytes: 1000, ConvertedBytes: 200},
		{Path: "b.jpg", Success: false, Error: "decode b.jpg: unexpected EOF"},
		{Path: "c.png", Success: true, OriginalBytes: 1000, ConvertedBytes: 300},
	}

	s := Summarize(scan, results)

	assert.Equal(t, 3, s.Attempted)
	assert.Equal(t, 2, s.Converted)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, int64(2000), s.OriginalBytes)
	assert.Equal(t, int64(500), s.ConvertedBytes)
	assert.InDelta(t, 75.0, s.Reduction, 1e-9)
	assert.Equal(t, int64(1500), s.Saved())
	assert.Equal(t, []FileError{{FilePath: "b.jpg", Error: "decode b.jpg: unexpected EOF"}}, s.Errors)
}

func TestSummarize_EmptyBatch(t *testing.T) {
	s := Summarize(ScanStats{}, nil)

	assert.Zero(t, s.Converted)
	assert.Zero(t, s.Failed)
	assert.Equal(t, 0.0, s.Reduction)
}

func TestSummarize_AllFailed(t *testing.T) {
	s := Summarize(ScanStats{Found: 2}, []FileResult{
		{Path: "a.jpg", Error: "boom"},
		{Path: "b.jpg", Error: "boom"},
	})

	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 0.0, s.Reduction)
}

func TestFromScan(t *testing.T) {
	r := &scanner.Result{
		Records:         []scanner.ImageRecord{{SizeBytes: 10}, {SizeBytes: 30}},
		ExtensionCounts: map[string]int{".PNG": 2},
		TotalBytes:      40,
	}

	stats := FromScan(r)

	assert.Equal(t, 2, stats.Found)
	assert.Equal(t, int64(40), stats.TotalBytes)
	assert.Equal(t, int64(20), stats.AverageSize())
	assert.Equal(t, []string{".PNG"}, stats.Extensions())

	assert.Zero(t, FromScan(nil).AverageSize())
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KB",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5.0 MB",
		-2048:           "-2.0 KB",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatBytes(in), "FormatBytes(%d)", in)
	}
}

func TestFormatKBAndMB(t *testing.T) {
	assert.Equal(t, "488.3 KB", FormatKB(500000))
	assert.Equal(t, "0.48 MB", FormatMB(500000))
}

func TestGetSummary(t *testing.T) {
	s := Summarize(ScanStats{Found: 1, ByExtension: map[string]int{".JPG": 1}, TotalBytes: 2048},
		[]FileResult{{Path: "a.jpg", Success: true, OriginalBytes: 2048, ConvertedBytes: 1024}})

	text := s.GetSummary()

	assert.Contains(t, text, "Images Found: 1")
	assert.Contains(t, text, ".JPG: 1")
	assert.Contains(t, text, "Converted: 1/1")
	assert.Contains(t, text, "Reduction: 50.0%")
}
