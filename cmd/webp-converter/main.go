package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webp-converter-go/internal/codec"
	"webp-converter-go/internal/config"
	"webp-converter-go/internal/converter"
	"webp-converter-go/internal/logger"
	"webp-converter-go/internal/metadata"
	"webp-converter-go/internal/prompt"
	"webp-converter-go/internal/report"
	"webp-converter-go/internal/scanner"
	"webp-converter-go/internal/session"
	"webp-converter-go/internal/statistics"
	"webp-converter-go/internal/watcher"
	"webp-converter-go/internal/web"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	inputDir  string
	outputDir string
	quality   int
	maxWidth  int
	workers   int
	assumeYes bool
	noPrompt  bool
	verbose   bool
	quiet     bool
	noColor   bool
	port      int
)

// rootCmd runs one interactive conversion session.
var rootCmd = &cobra.Command{
	Use:   "webp-converter",
	Short: "Convert a directory of photos to WebP",
	Long: `webp-converter walks an input directory, converts every HEIC, JPEG and PNG
image it finds to WebP and writes the results to a mirrored directory tree.

Features:
- Recursive scan with per-extension statistics
- Downscaling to a maximum width, preserving aspect ratio
- Per-file error isolation with a final summary
- Confirmation before anything is written
- Watch mode and a small HTTP/WebSocket API`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(cmd)
	},
}

// scanCmd lists source images without converting them.
var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "List images and show statistics without converting",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, args)
	},
}

// inspectCmd shows header and metadata details for one file.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show dimensions, target size and EXIF metadata of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd, args[0])
	},
}

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket API",
	Long: `Starts a web server exposing scan and convert operations.
Progress of a running conversion is streamed over /ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// watchCmd converts images as they are added to the input directory.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Convert new images as they appear in the input directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	pf.StringVarP(&inputDir, "input", "i", "", "input directory (default \"images\")")
	pf.StringVarP(&outputDir, "output", "o", "", "output directory (default \"images-webp\")")
	pf.IntVarP(&quality, "quality", "q", config.DefaultQuality, "WebP quality 0-100")
	pf.IntVar(&maxWidth, "max-width", config.DefaultMaxWidth, "maximum output width in pixels")
	pf.IntVar(&workers, "workers", 1, "number of files converted in parallel")
	pf.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	pf.BoolVar(&quiet, "quiet", false, "suppress non-error output")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "convert without asking for confirmation")
	rootCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "take settings from flags and config only")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run web server on")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

// runConvert executes the interactive session and exits 1 when the input
// directory is missing.
func runConvert(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	printer := report.NewPrinter(!noColor, quiet)

	var prompter session.Prompter = prompt.NewConsole(os.Stdin, os.Stdout)
	if noPrompt {
		prompter = session.StaticPrompter{Answer: false}
	}
	if assumeYes || !cfg.Security.ConfirmBeforeStart {
		prompter = session.AutoConfirm(prompter)
	}

	pipeline := newPipeline(cfg, log, func(_, done, total int, o converter.Outcome) {
		printer.PrintProgress(done, total, o)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller := session.NewController(cfg.RunConfiguration(), prompter, scanner.New(log, cfg.SupportedExtensions), pipeline, log, session.Hooks{
		OnScan: printer.PrintScan,
		OnSummary: func(s statistics.RunSummary, run config.RunConfiguration) {
			printer.PrintSummary(s, run.OutputDir)
		},
	})

	res, err := controller.Run(ctx)
	switch res.State {
	case session.StateInputNotFound:
		printer.Error("Error: %v", err)
		os.Exit(res.ExitCode())
	case session.StateNoImages:
		printer.Warning("No images found in %s", res.Config.InputDir)
	case session.StateCancelled:
		printer.Info("Conversion cancelled")
		if noPrompt {
			printer.Info("Pass --yes to convert without confirmation")
		}
	}
	return err
}

// runScan scans the directory and prints statistics.
func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dir := cfg.InputDirectory
	if len(args) > 0 {
		dir = args[0]
	}

	log := setupLogger(cfg)
	printer := report.NewPrinter(!noColor, quiet)

	result, err := scanner.New(log, cfg.SupportedExtensions).Scan(dir)
	if err != nil {
		if errors.Is(err, scanner.ErrNotFound) {
			printer.Error("Error: %v", err)
			os.Exit(1)
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	printer.PrintScan(result)
	return nil
}

// runInspect prints what a conversion would do with a single file.
func runInspect(cmd *cobra.Command, filePath string) error {
	if !fileExists(filePath) {
		return fmt.Errorf("file does not exist: %s", filePath)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	readers := metadata.ChainReader{metadata.NewGoExifReader(log)}
	if et, err := metadata.NewExiftoolReader(); err == nil {
		defer et.Close()
		readers = append(readers, et)
	} else {
		log.WithError(err).Debug("exiftool unavailable, using goexif only")
	}

	info, err := metadata.Inspect(filePath, cfg.Conversion.MaxWidth, readers)
	if err != nil {
		return fmt.Errorf("inspect failed: %w", err)
	}

	printer := report.NewPrinter(!noColor, false)
	printer.Header(info.Path)
	printer.Print("Format: %s", info.Format)
	printer.Print("Dimensions: %dx%d", info.Width, info.Height)
	if info.Resized() {
		printer.Print("Converted size: %dx%d", info.TargetWidth, info.TargetHeight)
	} else {
		printer.Print("Converted size: unchanged")
	}
	if len(info.Fields) == 0 {
		printer.Print("No metadata found")
		return nil
	}
	table := report.NewTable(printer.Out(), []string{"Tag", "Value"})
	for _, name := range info.FieldNames() {
		table.AddRow(name, info.Fields[name])
	}
	return table.Render()
}

// runServe starts the web server and handles graceful shutdown.
func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG LOAD ERROR: %v\n", err)
		cfg = config.DefaultConfig()
	}

	log := setupLogger(cfg)
	server := web.NewServer(cfg, newCodec(cfg), log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	printer := report.NewPrinter(!noColor, quiet)
	printer.Success("API listening on http://localhost:%d", port)
	printer.Info("Press Ctrl+C to stop the server")

	<-sigChan
	printer.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	printer.Success("Server stopped")
	return nil
}

// runWatch converts new images until interrupted.
func runWatch(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	printer := report.NewPrinter(!noColor, quiet)
	pipeline := newPipeline(cfg, log, nil)

	// OnOutcome calls are serialized by the watcher
	count := 0
	w := watcher.New(cfg.RunConfiguration(), scanner.New(log, cfg.SupportedExtensions), pipeline, log, watcher.Options{
		OnOutcome: func(o converter.Outcome) {
			count++
			printer.PrintProgress(count, 0, o)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Start(); err != nil {
		if errors.Is(err, scanner.ErrNotFound) {
			printer.Error("Error: %v", err)
			os.Exit(1)
		}
		return err
	}
	printer.Info("Watching %s, writing to %s (Ctrl+C to stop)", cfg.InputDirectory, cfg.OutputDirectory)
	return w.Run(ctx)
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if inputDir != "" {
		cfg.InputDirectory = inputDir
	}
	if outputDir != "" {
		cfg.OutputDirectory = outputDir
	}
	if flags.Changed("quality") {
		cfg.Conversion.Quality = config.NormalizeQuality(quality)
	}
	if flags.Changed("max-width") && maxWidth > 0 {
		cfg.Conversion.MaxWidth = maxWidth
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.Conversion.Workers = workers
	}

	return cfg, nil
}

func newCodec(cfg *config.Config) *codec.ImagingCodec {
	c := codec.NewImagingCodec()
	c.Method = cfg.Conversion.Method
	return c
}

func newPipeline(cfg *config.Config, log *logrus.Logger, progress converter.ProgressFunc) *converter.Pipeline {
	return converter.NewPipeline(newCodec(cfg), log, converter.Options{
		MaxWidth: cfg.Conversion.MaxWidth,
		Workers:  cfg.Conversion.Workers,
		Progress: progress,
	})
}

// setupLogger configures and returns a logger. Console logging is only on
// with --verbose so it does not interleave with the prompts.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    verbose,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// fileExists returns true if the given path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
