package tui

import (
	"io"

	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
	tea "github.com/charmbracelet/bubbletea"
)

// TuiIO implements the IO interface by sending messages to a bubbletea Program.
// All methods are safe to call from any goroutine.
type TuiIO struct {
	program *tea.Program
	inputCh chan inputResult
}

var _ IO = (*TuiIO)(nil)

// send is a nil-safe helper that sends a message to the bubbletea program.
func (t *TuiIO) send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TuiIO) ReadInput() (string, error) {
	return t.read(readInputMsg{})
}

func (t *TuiIO) ReadPassword(prompt string) (string, error) {
	return t.read(readInputMsg{password: true, prompt: prompt})
}

func (t *TuiIO) read(msg readInputMsg) (string, error) {
	if t.program == nil {
		return "", io.EOF
	}
	t.program.Send(msg)

	// Block until the user submits or the TUI exits
	res := <-t.inputCh
	if res.err != nil {
		return "", io.EOF
	}
	return res.text, nil
}

func (t *TuiIO) Status(msg string, isErr bool) {
	t.send(statusMsg{text: msg, isErr: isErr})
}

func (t *TuiIO) Comment(text string) {
	t.send(commentMsg{text: text})
}

func (t *TuiIO) SystemMessage(text string) {
	t.send(systemMsg{text: text})
}

func (t *TuiIO) Error(msg string) {
	t.send(errorMsg{text: msg})
}

func (t *TuiIO) SetControls(c app.Controls) {
	t.send(controlsMsg{controls: c})
}

func (t *TuiIO) SetPage(p nav.Page) {
	t.send(pageMsg{page: p})
}
