package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// Confirmation describes a yes/no question shown before a run.
type Confirmation struct {
	Title       string
	Description string
	Default     bool
}

// Confirmer asks the user to confirm. PromptForConfirmation is the
// terminal implementation.
type Confirmer func(c Confirmation) (bool, error)

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(c Confirmation) (bool, error) {
	confirmed := c.Default

	confirm := huh.NewConfirm().
		Title(c.Title).
		Description(c.Description).
		Affirmative("Run").
		Negative("Abort").
		Value(&confirmed)

	form := huh.NewForm(huh.NewGroup(confirm))

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}

	return confirmed, nil
}

// IsInteractive returns true if f is a terminal (not piped)
func IsInteractive(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ciEnvVars mark environments where nobody can answer a prompt.
var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"TRAVIS",
	"CIRCLECI",
	"BUILDKITE",
}

// InCI reports whether getenv shows a CI environment.
func InCI(getenv func(string) string) bool {
	for _, envVar := range ciEnvVars {
		if getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	return !InCI(os.Getenv) && IsInteractive(os.Stdin)
}
