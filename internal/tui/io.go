// Package tui defines the IO interface between the command controller and
// the user interface layer, plus PlainIO (terminal fallback), PipeIO
// (one-shot runs) and TuiIO (bubbletea).
package tui

import (
	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
)

// IO is the contract between the controller and the UI layer.
// Every method maps to a distinct visual event, so the controller never
// depends on a specific rendering implementation.
type IO interface {
	// ReadInput blocks until the user submits a line of input.
	// Returns ("", io.EOF) when the user quits.
	ReadInput() (string, error)

	// ReadPassword reads one line without echo.
	ReadPassword(prompt string) (string, error)

	// Status replaces the single status line. isErr selects error styling.
	Status(msg string, isErr bool)

	// Comment shows the generated comment. An empty text clears it.
	Comment(text string)

	// SystemMessage displays a notice such as help or profile output.
	SystemMessage(text string)

	// Error displays an error message with prominent styling.
	Error(msg string)

	// SetControls updates which main page actions are enabled.
	SetControls(c app.Controls)

	// SetPage switches the visible page.
	SetPage(p nav.Page)
}

var (
	_ app.UI       = IO(nil)
	_ app.Prompter = IO(nil)
)
