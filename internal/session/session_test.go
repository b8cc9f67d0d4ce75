package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"webp-converter-go/internal/codec/codectest"
	"webp-converter-go/internal/config"
	"webp-converter-go/internal/converter"
	"webp-converter-go/internal/scanner"
	"webp-converter-go/internal/statistics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedPrompter struct {
	cfg          config.RunConfiguration
	answer       bool
	confirmErr   error
	confirmCalls int
	seenCount    int
}

func (s *scriptedPrompter) Configure(config.RunConfiguration) (config.RunConfiguration, error) {
	return s.cfg, nil
}

func (s *scriptedPrompter) Confirm(count int) (bool, error) {
	s.confirmCalls++
	s.seenCount = count
	return s.answer, s.confirmErr
}

func newController(p Prompter, fake *codectest.Fake, hooks Hooks) *Controller {
	pipeline := converter.NewPipeline(fake, nil, converter.Options{MaxWidth: 1200})
	return NewController(config.NewRunConfiguration("", "", 80, 1200), p, nil, pipeline, nil, hooks)
}

func recordStates(states *[]State) func(State) {
	return func(s State) { *states = append(*states, s) }
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

func TestRun_Completed(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "webp")
	require.NoError(t, codectest.WriteImage(filepath.Join(in, "trip", "wide.jpg"), 2000, 1000, 500000))

	var states []State
	var summarized statistics.RunSummary
	var scanned *scanner.Result
	p := &scriptedPrompter{cfg: config.RunConfiguration{InputDir: in, OutputDir: out, Quality: 80, MaxWidth: 1200}, answer: true}
	fake := &codectest.Fake{OutputSize: 1000}
	c := newController(p, fake, Hooks{
		OnState:   recordStates(&states),
		OnScan:    func(r *scanner.Result) { scanned = r },
		OnSummary: func(s statistics.RunSummary, _ config.RunConfiguration) { summarized = s },
	})

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 0, res.ExitCode())
	assert.Equal(t, []State{StateStart, StateConfigured, StateScanned, StateAwaitingConfirmation, StateConverting, StateCompleted}, states)
	assert.Equal(t, 1, p.seenCount)
	require.NotNil(t, scanned)
	assert.Equal(t, 1, scanned.Count())

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, 1200, res.Outcomes[0].FinalDimensions.Width)
	assert.Equal(t, 600, res.Outcomes[0].FinalDimensions.Height)
	assert.FileExists(t, filepath.Join(out, "trip", "wide.webp"))

	assert.Equal(t, 1, res.Summary.Converted)
	assert.Equal(t, 0, res.Summary.Failed)
	assert.Equal(t, int64(500000), res.Summary.OriginalBytes)
	assert.Equal(t, int64(1000), res.Summary.ConvertedBytes)
	assert.InDelta(t, 99.8, res.Summary.Reduction, 1e-9)
	assert.Equal(t, res.Summary.Converted, summarized.Converted)
}

func TestRun_InputNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	p := &scriptedPrompter{cfg: config.RunConfiguration{InputDir: missing, OutputDir: t.TempDir(), Quality: 80}, answer: true}
	fake := &codectest.Fake{}

	res, err := newController(p, fake, Hooks{}).Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, scanner.ErrNotFound)
	assert.Equal(t, StateInputNotFound, res.State)
	assert.Equal(t, 1, res.ExitCode())
	assert.Zero(t, p.confirmCalls)
	assert.Empty(t, fake.Encoded())
}

func TestRun_NoImages(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "notes.txt"), []byte("hi"), 0o644))
	out := filepath.Join(t.TempDir(), "webp")
	p := &scriptedPrompter{cfg: config.RunConfiguration{InputDir: in, OutputDir: out}, answer: true}

	res, err := newController(p, &codectest.Fake{}, Hooks{}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateNoImages, res.State)
	assert.Equal(t, 0, res.ExitCode())
	assert.Zero(t, p.confirmCalls)
	assert.NoDirExists(t, out)
}

func TestRun_Cancelled(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	require.NoError(t, codectest.WriteImage(filepath.Join(in, "a.jpg"), 10, 10, 0))
	require.NoError(t, codectest.WriteImage(filepath.Join(in, "sub", "b.png"), 10, 10, 0))
	p := &scriptedPrompter{cfg: config.RunConfiguration{InputDir: in, OutputDir: out}, answer: false}
	fake := &codectest.Fake{}
	summaryCalled := false

	res, err := newController(p, fake, Hooks{
		OnSummary: func(statistics.RunSummary, config.RunConfiguration) { summaryCalled = true },
	}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCancelled, res.State)
	assert.NotEqual(t, StateCompleted, res.State)
	assert.Equal(t, 0, res.ExitCode())
	assert.Equal(t, 2, p.seenCount)
	assert.Empty(t, res.Outcomes)
	assert.Empty(t, fake.Encoded())
	assert.Empty(t, dirEntries(t, out))
	assert.False(t, summaryCalled)
}

func TestRun_ConfirmError(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, codectest.WriteImage(filepath.Join(in, "a.jpg"), 10, 10, 0))
	p := &scriptedPrompter{cfg: config.RunConfiguration{InputDir: in}, confirmErr: errors.New("stdin closed")}

	res, err := newController(p, &codectest.Fake{}, Hooks{}).Run(context.Background())

	assert.EqualError(t, err, "stdin closed")
	assert.Equal(t, StateAwaitingConfirmation, res.State)
}

func TestRun_AllFailedStillCompletes(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.jpg"), []byte("junk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.jpg"), []byte("junk"), 0o644))
	p := &scriptedPrompter{cfg: config.RunConfiguration{InputDir: in, OutputDir: t.TempDir()}, answer: true}

	res, err := newController(p, &codectest.Fake{}, Hooks{}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 2, res.Summary.Failed)
	assert.Equal(t, 0.0, res.Summary.Reduction)
	assert.Equal(t, 0, res.ExitCode())
}

func TestRun_NormalizesConfiguration(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, codectest.WriteImage(filepath.Join(in, "a.jpg"), 10, 10, 0))
	out := t.TempDir()
	p := &scriptedPrompter{cfg: config.RunConfiguration{InputDir: in, OutputDir: out, Quality: 300}, answer: true}
	fake := &codectest.Fake{}

	res, err := newController(p, fake, Hooks{}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 80, res.Config.Quality)
	assert.Equal(t, 1200, res.Config.MaxWidth)
	assert.Equal(t, []int{80}, fake.Qualities())
}

func TestStaticAndAutoConfirm(t *testing.T) {
	defaults := config.NewRunConfiguration("in", "out", 70, 0)

	cfg, err := StaticPrompter{}.Configure(defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)

	ok, _ := StaticPrompter{}.Confirm(3)
	assert.False(t, ok)

	ok, _ = AutoConfirm(StaticPrompter{}).Confirm(3)
	assert.True(t, ok)
}

func TestState(t *testing.T) {
	assert.Equal(t, "awaiting_confirmation", StateAwaitingConfirmation.String())
	assert.Equal(t, "no_images", StateNoImages.String())
	assert.False(t, StateConverting.Terminal())
	for _, s := range []State{StateInputNotFound, StateNoImages, StateCancelled, StateCompleted} {
		assert.True(t, s.Terminal(), s.String())
	}
}
