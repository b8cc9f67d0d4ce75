// Package watcher converts images as they appear below the input directory.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"webp-converter-go/internal/config"
	"webp-converter-go/internal/converter"
	applog "webp-converter-go/internal/logger"
	"webp-converter-go/internal/scanner"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long a path must stay quiet before it is converted.
const DefaultDebounce = 500 * time.Millisecond

// FileConverter converts a single record into outputRoot.
type FileConverter interface {
	ConvertOne(ctx context.Context, record scanner.ImageRecord, outputRoot string, quality int) converter.Outcome
}

// Options configures a Watcher. OnOutcome calls never overlap.
type Options struct {
	Debounce  time.Duration
	OnOutcome func(converter.Outcome)
}

// Watcher monitors an input tree and converts new or rewritten images.
type Watcher struct {
	cfg       config.RunConfiguration
	scanner   *scanner.Scanner
	converter FileConverter
	logger    *logrus.Logger
	opts      Options

	watcher *fsnotify.Watcher
	outAbs  string

	mu           sync.Mutex
	debounce     map[string]*time.Timer
	pendingFiles []string
	stopped      bool
	inflight     sync.WaitGroup

	outcomeMu sync.Mutex
}

// New returns a Watcher for cfg.InputDir. Start must be called before Run.
func New(cfg config.RunConfiguration, sc *scanner.Scanner, conv FileConverter, logger *logrus.Logger, opts Options) *Watcher {
	if logger == nil {
		logger = applog.Discard()
	}
	if sc == nil {
		sc = scanner.New(logger, nil)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		cfg:       cfg,
		scanner:   sc,
		converter: conv,
		logger:    logger,
		opts:      opts,
		debounce:  make(map[string]*time.Timer),
	}
}

// Start registers the input directory and every subdirectory.
func (w *Watcher) Start() error {
	info, err := os.Stat(w.cfg.InputDir)
	if err != nil || !info.IsDir() {
		return &scanner.NotFoundError{Path: w.cfg.InputDir}
	}
	if abs, err := filepath.Abs(w.cfg.OutputDir); err == nil {
		w.outAbs = abs
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.watcher = fsWatcher

	if err := w.addTree(w.cfg.InputDir, false); err != nil {
		fsWatcher.Close()
		return err
	}
	w.logger.WithField("directory", w.cfg.InputDir).Info("Watching for new images")
	return nil
}

// Run processes events until ctx is cancelled, then waits for conversions
// already running.
func (w *Watcher) Run(ctx context.Context) error {
	if w.watcher == nil {
		return fmt.Errorf("watcher not started")
	}
	defer w.watcher.Close()
	defer w.inflight.Wait()
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Watcher error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			// files may land before the watch is registered
			if err := w.addTree(event.Name, true); err != nil {
				w.logger.WithError(err).Warnf("Failed to watch %s", event.Name)
			}
			w.schedule(ctx, "")
		}
		return
	}
	if w.scanner.Supports(event.Name) {
		w.schedule(ctx, event.Name)
	}
}

// addTree watches dir and its subdirectories. With scheduleFiles set, images
// already present are queued as well.
func (w *Watcher) addTree(dir string, scheduleFiles bool) error {
	var pending []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.isOutput(path) {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch folder %s: %w", path, err)
			}
			w.logger.WithField("directory", path).Debug("Watching folder")
			return nil
		}
		if scheduleFiles && w.scanner.Supports(path) {
			pending = append(pending, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.pendingFiles = append(w.pendingFiles, pending...)
	w.mu.Unlock()
	return nil
}

func (w *Watcher) isOutput(path string) bool {
	if w.outAbs == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return abs == w.outAbs || strings.HasPrefix(abs, w.outAbs+string(filepath.Separator))
}

// schedule (re)arms the debounce timer for path, plus any files queued by
// addTree.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := w.pendingFiles
	w.pendingFiles = nil
	if path != "" {
		paths = append(paths, path)
	}

	for _, p := range paths {
		if timer, exists := w.debounce[p]; exists {
			timer.Stop()
		}
		w.debounce[p] = time.AfterFunc(w.opts.Debounce, func() {
			w.mu.Lock()
			if w.stopped {
				w.mu.Unlock()
				return
			}
			delete(w.debounce, p)
			w.inflight.Add(1)
			w.mu.Unlock()
			defer w.inflight.Done()
			w.convert(ctx, p)
		})
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for p, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, p)
	}
}

func (w *Watcher) convert(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	record, err := w.scanner.Record(w.cfg.InputDir, path)
	if err != nil {
		applog.WithFile(w.logger, path).WithError(err).Warn("Skipping file")
		return
	}

	outcome := w.converter.ConvertOne(ctx, record, w.cfg.OutputDir, w.cfg.Quality)
	entry := applog.WithFileOperation(w.logger, record.RelativePath, "watch")
	if outcome.Succeeded() {
		entry.WithField("output", outcome.OutputPath).Info("Converted new image")
	} else {
		entry.WithField("error", outcome.Err).Error("Failed to convert new image")
	}
	if w.opts.OnOutcome != nil {
		w.outcomeMu.Lock()
		w.opts.OnOutcome(outcome)
		w.outcomeMu.Unlock()
	}
}
