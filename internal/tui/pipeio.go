package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
)

// PipeIO implements IO for non-interactive one-shot runs.
// The comment goes to stdout, diagnostics go to stderr.
type PipeIO struct {
	format  string    // "text" or "jsonl"
	verbose bool      // show progress statuses on stderr
	writer  io.Writer // stdout
	errW    io.Writer // stderr
	comment string
}

var _ IO = (*PipeIO)(nil)

// NewPipeIO creates a PipeIO instance.
func NewPipeIO(format string, verbose bool) *PipeIO {
	if format == "" {
		format = "text"
	}
	return &PipeIO{
		format:  format,
		verbose: verbose,
		writer:  os.Stdout,
		errW:    os.Stderr,
	}
}

func (p *PipeIO) ReadInput() (string, error)          { return "", io.EOF }
func (p *PipeIO) ReadPassword(string) (string, error) { return "", io.EOF }

func (p *PipeIO) Status(msg string, isErr bool) {
	if p.format == "jsonl" {
		p.emitJSONL("status", map[string]any{"message": msg, "is_error": isErr})
		return
	}
	if isErr {
		p.Error(msg)
		return
	}
	if p.verbose {
		fmt.Fprintln(p.errW, msg)
	}
}

func (p *PipeIO) Comment(text string) {
	if text == "" {
		return
	}
	p.comment = text
	if p.format == "jsonl" {
		p.emitJSONL("comment", map[string]string{"content": text})
		return
	}
	fmt.Fprintln(p.writer, text)
}

// LastComment returns the most recent non-empty comment.
func (p *PipeIO) LastComment() string { return p.comment }

func (p *PipeIO) SystemMessage(text string) {
	if p.format == "jsonl" {
		p.emitJSONL("system", map[string]string{"content": text})
		return
	}
	fmt.Fprintln(p.writer, text)
}

func (p *PipeIO) Error(msg string) {
	fmt.Fprintf(p.errW, "error: %s\n", msg)
}

func (p *PipeIO) SetControls(app.Controls) {}
func (p *PipeIO) SetPage(nav.Page)         {}

// emitJSONL writes a JSON line to stdout.
func (p *PipeIO) emitJSONL(eventType string, data any) {
	line, _ := json.Marshal(map[string]any{
		"type":      eventType,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      data,
	})
	fmt.Fprintln(p.writer, string(line))
}
