package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"webp-converter-go/internal/codec"
	"webp-converter-go/internal/config"
	applog "webp-converter-go/internal/logger"
	"webp-converter-go/internal/resize"
	"webp-converter-go/internal/scanner"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called once per finished file. index is the position of
// the record in the input, done the number of files finished so far.
type ProgressFunc func(index, done, total int, outcome Outcome)

// Options tunes a Pipeline.
type Options struct {
	MaxWidth int
	Workers  int
	Progress ProgressFunc
}

// Pipeline is the default Converter. Files are processed one at a time unless
// Workers is above one.
type Pipeline struct {
	codec    codec.Codec
	logger   *logrus.Logger
	maxWidth int
	workers  int
	progress ProgressFunc
}

// NewPipeline returns a Pipeline using c for image work.
func NewPipeline(c codec.Codec, logger *logrus.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = applog.Discard()
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = resize.DefaultMaxWidth
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		codec:    c,
		logger:   logger,
		maxWidth: opts.MaxWidth,
		workers:  opts.Workers,
		progress: opts.Progress,
	}
}

// ConvertAll converts every record into outputRoot. A failing file is
// recorded and the batch continues. Once ctx is cancelled the remaining
// records are marked failed without being touched.
func (p *Pipeline) ConvertAll(ctx context.Context, records []scanner.ImageRecord, outputRoot string, quality int) []Outcome {
	quality = config.NormalizeQuality(quality)
	outcomes := make([]Outcome, len(records))

	var mu sync.Mutex
	done := 0
	notify := func(index int, outcome Outcome) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if p.progress != nil {
			p.progress(index, done, len(records), outcome)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"files":   len(records),
		"output":  outputRoot,
		"quality": quality,
		"workers": p.workers,
	}).Info("Starting conversion")

	if p.workers == 1 {
		for i, record := range records {
			outcomes[i] = p.convertOrSkip(ctx, record, outputRoot, quality)
			notify(i, outcomes[i])
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.workers)
		for i, record := range records {
			g.Go(func() error {
				outcomes[i] = p.convertOrSkip(ctx, record, outputRoot, quality)
				notify(i, outcomes[i])
				return nil
			})
		}
		_ = g.Wait() // workers never return errors
	}

	converted, failed := Counts(outcomes)
	p.logger.WithFields(logrus.Fields{
		"converted": converted,
		"failed":    failed,
	}).Info("Conversion completed")
	return outcomes
}

// ConvertOne converts a single record.
func (p *Pipeline) ConvertOne(ctx context.Context, record scanner.ImageRecord, outputRoot string, quality int) Outcome {
	return p.convertOrSkip(ctx, record, outputRoot, config.NormalizeQuality(quality))
}

func (p *Pipeline) convertOrSkip(ctx context.Context, record scanner.ImageRecord, outputRoot string, quality int) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{
			Record:     record,
			Status:     StatusFailed,
			OutputPath: OutputPath(record, outputRoot, p.codec.Extension()),
			Err:        err.Error(),
		}
	}
	return p.convert(record, outputRoot, quality)
}

func (p *Pipeline) convert(record scanner.ImageRecord, outputRoot string, quality int) Outcome {
	start := time.Now()
	outPath := OutputPath(record, outputRoot, p.codec.Extension())
	res := Outcome{
		Record:     record,
		OutputPath: outPath,
	}
	log := applog.WithFileOperation(p.logger, record.RelativePath, "convert")

	fail := func(err error) Outcome {
		res.Status = StatusFailed
		res.Err = err.Error()
		res.Duration = time.Since(start)
		log.Errorf("Conversion failed: %v", err)
		return res
	}

	if err := ensureDir(filepath.Dir(outPath)); err != nil {
		return fail(fmt.Errorf("create directory: %w", err))
	}

	img, err := p.codec.Decode(record.AbsolutePath)
	if err != nil {
		return fail(err)
	}
	original := codec.SizeOf(img)

	width, height := resize.ComputeTargetSize(original.Width, original.Height, p.maxWidth)
	if resize.NeedsResize(original.Width, p.maxWidth) {
		if width < 1 || height < 1 {
			return fail(fmt.Errorf("cannot resize %s to %dx%d: empty side", original, width, height))
		}
		img = p.codec.Resize(img, width, height)
	}

	if err := p.codec.Encode(img, outPath, quality); err != nil {
		return fail(err)
	}

	srcInfo, err := os.Stat(record.AbsolutePath)
	if err != nil {
		return fail(fmt.Errorf("stat source: %w", err))
	}
	outInfo, err := os.Stat(outPath)
	if err != nil {
		return fail(fmt.Errorf("stat output: %w", err))
	}

	res.Status = StatusSuccess
	res.OriginalSize = srcInfo.Size()
	res.ConvertedSize = outInfo.Size()
	res.OriginalDimensions = original
	res.FinalDimensions = codec.SizeOf(img)
	res.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"original_size":  res.OriginalSize,
		"converted_size": res.ConvertedSize,
		"dimensions":     original.String() + " -> " + res.FinalDimensions.String(),
	}).Infof("Converted (%.1f%% reduction)", res.Reduction())
	return res
}

// ensureDir creates dir and its parents. Existing directories, including ones
// created concurrently by another worker, are not an error.
func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
