package ui

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const (
	envNoInteraction = "PGD_NO_INTERACTION"
	envCI            = "CI"
	envTerm          = "TERM"
)

// ErrCancelled is returned when the user aborts a prompt with ctrl+c or esc.
var ErrCancelled = errors.New("cancelled by user")

// ErrNoInteraction is returned when a prompt is needed but stderr is not an
// interactive terminal.
type ErrNoInteraction struct {
	Hint string
}

func (e *ErrNoInteraction) Error() string {
	if strings.TrimSpace(e.Hint) == "" {
		return "terminal is not interactive"
	}
	return "terminal is not interactive; " + e.Hint
}

var interactionState struct {
	mu          sync.RWMutex
	initialized bool
	interactive bool
}

// ConfigureInteraction decides once whether prompts and live progress are
// allowed, and picks the colour profile to match.
func ConfigureInteraction(noInteraction bool) {
	interactive := detectInteractiveMode(noInteraction)

	interactionState.mu.Lock()
	interactionState.initialized = true
	interactionState.interactive = interactive
	interactionState.mu.Unlock()

	if interactive {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

func IsInteractive() bool {
	interactionState.mu.RLock()
	initialized, interactive := interactionState.initialized, interactionState.interactive
	interactionState.mu.RUnlock()
	if initialized {
		return interactive
	}

	ConfigureInteraction(false)
	return IsInteractive()
}

// RequireInteraction fails with *ErrNoInteraction carrying hint when prompts
// are not possible.
func RequireInteraction(hint string) error {
	if IsInteractive() {
		return nil
	}
	return &ErrNoInteraction{Hint: hint}
}

func detectInteractiveMode(noInteraction bool) bool {
	if noInteraction {
		return false
	}
	if envTruthy(envNoInteraction) || envTruthy(envCI) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envTerm)), "dumb") {
		return false
	}
	return stderrIsTerminal()
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

func envTruthy(key string) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
