// Package prompt implements the interactive console front-end.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"webp-converter-go/internal/config"
)

var confirmAnswers = map[string]bool{
	"s":   true,
	"si":  true,
	"sí":  true,
	"y":   true,
	"yes": true,
}

// Console asks for the run configuration and the confirmation on a terminal.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole reads answers from in and writes questions to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Configure asks for the input directory, output directory and quality.
// Empty answers keep the defaults. Unusable quality falls back to 80 with a
// warning.
func (c *Console) Configure(defaults config.RunConfiguration) (config.RunConfiguration, error) {
	fmt.Fprintln(c.out, "WebP image converter")
	fmt.Fprintln(c.out, strings.Repeat("=", 20))

	input, err := c.ask("Input directory", defaults.InputDir)
	if err != nil {
		return defaults, err
	}
	output, err := c.ask("Output directory", defaults.OutputDir)
	if err != nil {
		return defaults, err
	}
	raw, err := c.ask("Quality (0-100)", fmt.Sprintf("%d", defaults.Quality))
	if err != nil {
		return defaults, err
	}
	quality, ok := config.ParseQuality(raw)
	if !ok {
		fmt.Fprintf(c.out, "Invalid quality %q, using %d\n", raw, config.DefaultQuality)
	}

	return config.NewRunConfiguration(input, output, quality, defaults.MaxWidth), nil
}

// Confirm asks whether to convert count images. Only an affirmative answer
// returns true.
func (c *Console) Confirm(count int) (bool, error) {
	fmt.Fprintf(c.out, "\nConvert %d images? (s/n): ", count)
	line, err := c.readLine()
	if err != nil {
		return false, err
	}
	return IsAffirmative(line), nil
}

// IsAffirmative reports whether answer means yes.
func IsAffirmative(answer string) bool {
	return confirmAnswers[strings.ToLower(strings.TrimSpace(answer))]
}

func (c *Console) ask(label, def string) (string, error) {
	fmt.Fprintf(c.out, "%s [%s]: ", label, def)
	line, err := c.readLine()
	if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// readLine returns the next line without its terminator. A final line with no
// newline is still returned; EOF before any input is an error.
func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
