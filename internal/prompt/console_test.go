package prompt

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"webp-converter-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaults = config.NewRunConfiguration("images", "images-webp", 80, 1200)

func TestConfigure_KeepsDefaultsOnEmptyInput(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("\n\n\n"), &out)

	cfg, err := c.Configure(defaults)

	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)
	assert.Contains(t, out.String(), "Input directory [images]: ")
	assert.Contains(t, out.String(), "Quality (0-100) [80]: ")
}

func TestConfigure_ReadsAnswers(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(strings.NewReader("photos\n  dist/webp \n65\n"), &out)

	cfg, err := c.Configure(defaults)

	require.NoError(t, err)
	assert.Equal(t, "photos", cfg.InputDir)
	assert.Equal(t, "dist/webp", cfg.OutputDir)
	assert.Equal(t, 65, cfg.Quality)
	assert.Equal(t, 1200, cfg.MaxWidth)
}

func TestConfigure_InvalidQualityFallsBack(t *testing.T) {
	tests := []string{"abc", "150", "-1"}
	for _, answer := range tests {
		t.Run(answer, func(t *testing.T) {
			var out bytes.Buffer
			c := NewConsole(strings.NewReader("\n\n"+answer+"\n"), &out)

			cfg, err := c.Configure(defaults)

			require.NoError(t, err)
			assert.Equal(t, 80, cfg.Quality)
			assert.Contains(t, out.String(), "Invalid quality")
		})
	}
}

func TestConfigure_EOF(t *testing.T) {
	c := NewConsole(strings.NewReader(""), io.Discard)

	_, err := c.Configure(defaults)

	assert.ErrorIs(t, err, io.EOF)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"s\n", true},
		{"SI\n", true},
		{"sí\n", true},
		{" Yes \n", true},
		{"y", true},
		{"n\n", false},
		{"\n", false},
		{"nope\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.answer), func(t *testing.T) {
			var out bytes.Buffer
			c := NewConsole(strings.NewReader(tt.answer), &out)

			ok, err := c.Confirm(3)

			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, out.String(), "Convert 3 images?")
		})
	}
}
