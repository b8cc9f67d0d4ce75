package session

import "webp-converter-go/internal/config"

// StaticPrompter answers without asking: Configure returns the defaults and
// Confirm returns Answer. It backs non-interactive runs.
type StaticPrompter struct {
	Answer bool
}

func (s StaticPrompter) Configure(defaults config.RunConfiguration) (config.RunConfiguration, error) {
	return defaults, nil
}

func (s StaticPrompter) Confirm(int) (bool, error) {
	return s.Answer, nil
}

// AutoConfirm wraps p so the confirmation gate always passes.
func AutoConfirm(p Prompter) Prompter {
	return autoConfirm{Prompter: p}
}

type autoConfirm struct {
	Prompter
}

func (a autoConfirm) Confirm(int) (bool, error) {
	return true, nil
}
