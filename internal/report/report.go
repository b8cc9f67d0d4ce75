package report

import (
	"fmt"
	"path/filepath"

	"webp-converter-go/internal/converter"
	"webp-converter-go/internal/scanner"
	"webp-converter-go/internal/statistics"
)

// maxListedErrors bounds the failure list in the final report.
const maxListedErrors = 10

// PrintScan lists every discovered image followed by per-extension counts and
// totals.
func (p *Printer) PrintScan(result *scanner.Result) {
	if p.quiet || result == nil {
		return
	}

	p.Header(fmt.Sprintf("Images found in %s", result.Root))

	if result.Count() > 0 {
		files := NewTable(p.out, []string{"Ext", "Size", "Path"})
		for _, rec := range result.Records {
			files.AddRow(rec.Extension, statistics.FormatKB(rec.SizeBytes), filepath.ToSlash(rec.RelativePath))
		}
		if err := files.Render(); err != nil {
			p.Error("render scan table: %v", err)
		}
	}

	stats := statistics.FromScan(result)
	p.Header("Statistics")
	counts := NewTable(p.out, []string{"Ext", "Files"})
	for _, ext := range stats.Extensions() {
		counts.AddRow(ext, fmt.Sprintf("%d", stats.ByExtension[ext]))
	}
	if counts.Len() > 0 {
		if err := counts.Render(); err != nil {
			p.Error("render extension table: %v", err)
		}
	}
	p.Print("")
	p.Print("Total: %d images", stats.Found)
	p.Print("Total size: %s", statistics.FormatMB(stats.TotalBytes))
	if stats.Found > 0 {
		p.Print("Average size: %s", statistics.FormatKB(stats.AverageSize()))
	}
}

// PrintProgress prints one line per finished file. A total <= 0 means the
// run has no fixed size and only the running count is shown.
func (p *Printer) PrintProgress(done, total int, o converter.Outcome) {
	if p.quiet {
		return
	}
	prefix := fmt.Sprintf("[%d/%d]", done, total)
	if total <= 0 {
		prefix = fmt.Sprintf("[%d]", done)
	}
	if !o.Succeeded() {
		p.Error("%s %s: %s", prefix, o.Record.FileName, o.Err)
		return
	}
	dims := o.OriginalDimensions.String()
	if o.Resized() {
		dims += " -> " + o.FinalDimensions.String()
	}
	p.Print("%s %s  %s -> %s (%.1f%%)  %s", prefix, p.Bold(o.Record.FileName),
		statistics.FormatKB(o.OriginalSize), statistics.FormatKB(o.ConvertedSize), o.Reduction(), dims)
}

// PrintSummary prints the final report of a completed run.
func (p *Printer) PrintSummary(s statistics.RunSummary, outputDir string) {
	if p.quiet {
		if s.Failed > 0 {
			p.Error("%d of %d images failed to convert", s.Failed, s.Attempted)
		}
		return
	}

	p.Header("Conversion completed")
	p.Print("Converted: %d/%d", s.Converted, s.Attempted)
	if s.Failed > 0 {
		p.Warning("Errors: %d", s.Failed)
		for i, fe := range s.Errors {
			if i >= maxListedErrors {
				p.Warning("  ... and %d more errors", len(s.Errors)-maxListedErrors)
				break
			}
			p.Warning("  %s: %s", fe.FilePath, fe.Error)
		}
	}
	p.Print("")
	p.Print("Original size: %s", statistics.FormatMB(s.OriginalBytes))
	p.Print("Final size: %s", statistics.FormatMB(s.ConvertedBytes))
	if s.OriginalBytes > 0 {
		p.Print("Space saved: %s", statistics.FormatMB(s.Saved()))
		p.Print("Total reduction: %.1f%%", s.Reduction)
	}
	p.Print("")
	p.Success("Images saved to: %s", outputDir)
}
