package tui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
	"golang.org/x/term"
)

// PlainIO implements IO with plain terminal output. It is used when TUI
// mode is disabled or the terminal does not support raw mode.
type PlainIO struct {
	scanner *bufio.Scanner
	out     io.Writer
	errW    io.Writer
	inFd    int // -1 when stdin is not a terminal

	mu       sync.Mutex
	page     nav.Page
	controls app.Controls
}

var _ IO = (*PlainIO)(nil)

// NewPlainIO creates a PlainIO on stdin/stdout/stderr.
func NewPlainIO() *PlainIO {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	return newPlainIO(os.Stdin, os.Stdout, os.Stderr, fd)
}

func newPlainIO(in io.Reader, out, errW io.Writer, inFd int) *PlainIO {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &PlainIO{scanner: s, out: out, errW: errW, inFd: inFd, page: nav.PageLogin}
}

func (p *PlainIO) ReadInput() (string, error) {
	p.mu.Lock()
	page := p.page
	p.mu.Unlock()

	fmt.Fprintf(p.out, "\n%s> ", page)
	return p.readLine()
}

func (p *PlainIO) readLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

func (p *PlainIO) ReadPassword(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if p.inFd < 0 {
		return p.readLine()
	}
	b, err := term.ReadPassword(p.inFd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (p *PlainIO) Status(msg string, isErr bool) {
	if isErr {
		p.Error(msg)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "✓ %s\n", msg)
}

func (p *PlainIO) Comment(text string) {
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\n%s\n%s\n%s\n", strings.Repeat("-", 30), text, strings.Repeat("-", 30))
}

func (p *PlainIO) SystemMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}

func (p *PlainIO) Error(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.errW, "error: %s\n", msg)
}

func (p *PlainIO) SetControls(c app.Controls) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.controls = c
}

func (p *PlainIO) SetPage(page nav.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if page == p.page {
		return
	}
	p.page = page
	fmt.Fprintln(p.out, pageHint(page))
}

// pageHint tells plain-mode users which commands make sense on page.
func pageHint(page nav.Page) string {
	switch page {
	case nav.PageLogin:
		return "Log in with /login <email>, or create an account with /signup <username> <email>."
	case nav.PageSignup:
		return "Create an account with /signup <username> <email>."
	case nav.PageVerify:
		return "Confirm your email with /verify <token>, or /resend <email>."
	default:
		return "Capture with /camera, /screen, /clipboard, /upload <path> or /record, then /generate."
	}
}
