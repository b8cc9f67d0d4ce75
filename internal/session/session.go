// Package session drives one conversion run from configuration to summary.
package session

import (
	"context"
	"errors"
	"time"

	"webp-converter-go/internal/config"
	"webp-converter-go/internal/converter"
	applog "webp-converter-go/internal/logger"
	"webp-converter-go/internal/scanner"
	"webp-converter-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

// State is a step of the session state machine.
type State int

const (
	StateStart State = iota
	StateConfigured
	StateScanned
	StateAwaitingConfirmation
	StateConverting

	// Terminal states.
	StateInputNotFound
	StateNoImages
	StateCancelled
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateConfigured:
		return "configured"
	case StateScanned:
		return "scanned"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateConverting:
		return "converting"
	case StateInputNotFound:
		return "input_not_found"
	case StateNoImages:
		return "no_images"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session ends in s.
func (s State) Terminal() bool {
	return s >= StateInputNotFound
}

// Prompter supplies the run configuration and the go-ahead before any file
// is written.
type Prompter interface {
	Configure(defaults config.RunConfiguration) (config.RunConfiguration, error)
	Confirm(count int) (bool, error)
}

// Hooks receive the intermediate results of a run. Nil hooks are skipped.
type Hooks struct {
	OnState   func(State)
	OnScan    func(*scanner.Result)
	OnSummary func(statistics.RunSummary, config.RunConfiguration)
}

// Result is the final state of a session and everything it produced.
type Result struct {
	State    State
	Config   config.RunConfiguration
	Scan     *scanner.Result
	Outcomes []converter.Outcome
	Summary  statistics.RunSummary
}

// ExitCode maps the final state to a process exit status: 1 for a missing
// input directory, 0 otherwise. Runs where every file failed still exit 0.
func (r Result) ExitCode() int {
	if r.State == StateInputNotFound {
		return 1
	}
	return 0
}

// Controller runs sessions sequentially.
type Controller struct {
	defaults  config.RunConfiguration
	prompter  Prompter
	scanner   *scanner.Scanner
	converter converter.Converter
	logger    *logrus.Logger
	hooks     Hooks
}

// NewController wires a controller. defaults seed the prompter.
func NewController(
	defaults config.RunConfiguration,
	prompter Prompter,
	sc *scanner.Scanner,
	conv converter.Converter,
	logger *logrus.Logger,
	hooks Hooks,
) *Controller {
	if logger == nil {
		logger = applog.Discard()
	}
	if sc == nil {
		sc = scanner.New(logger, nil)
	}
	return &Controller{
		defaults:  defaults,
		prompter:  prompter,
		scanner:   sc,
		converter: conv,
		logger:    logger,
		hooks:     hooks,
	}
}

// Run executes configuration, scan, confirmation, conversion and summary in
// order. Only a missing input directory or a failing prompter returns an error;
// per-file failures end up in the summary.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	res := Result{State: StateStart}
	c.enter(&res, StateStart)

	cfg, err := c.prompter.Configure(c.defaults)
	if err != nil {
		return res, err
	}
	res.Config = config.NewRunConfiguration(cfg.InputDir, cfg.OutputDir, cfg.Quality, cfg.MaxWidth)
	c.enter(&res, StateConfigured)
	c.logger.WithFields(logrus.Fields{
		"input":     res.Config.InputDir,
		"output":    res.Config.OutputDir,
		"quality":   res.Config.Quality,
		"max_width": res.Config.MaxWidth,
	}).Info("Session configured")

	scan, err := c.scanner.Scan(res.Config.InputDir)
	if err != nil {
		if errors.Is(err, scanner.ErrNotFound) {
			c.enter(&res, StateInputNotFound)
		}
		return res, err
	}
	res.Scan = scan
	c.enter(&res, StateScanned)
	if c.hooks.OnScan != nil {
		c.hooks.OnScan(scan)
	}

	if scan.Count() == 0 {
		c.enter(&res, StateNoImages)
		return res, nil
	}

	c.enter(&res, StateAwaitingConfirmation)
	ok, err := c.prompter.Confirm(scan.Count())
	if err != nil {
		return res, err
	}
	if !ok {
		c.enter(&res, StateCancelled)
		return res, nil
	}

	c.enter(&res, StateConverting)
	start := time.Now()
	res.Outcomes = c.converter.ConvertAll(ctx, scan.Records, res.Config.OutputDir, res.Config.Quality)
	res.Summary = statistics.Summarize(statistics.FromScan(scan), converter.FileResults(res.Outcomes))
	res.Summary.Duration = time.Since(start)
	c.enter(&res, StateCompleted)

	if c.hooks.OnSummary != nil {
		c.hooks.OnSummary(res.Summary, res.Config)
	}
	return res, nil
}

func (c *Controller) enter(res *Result, s State) {
	res.State = s
	c.logger.WithField("state", s.String()).Debug("Session state changed")
	if c.hooks.OnState != nil {
		c.hooks.OnState(s)
	}
}
