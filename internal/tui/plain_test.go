package tui

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/quipcam/quipcam/internal/nav"
)

func TestPlainIO_ReadInput(t *testing.T) {
	var out, errOut bytes.Buffer
	p := newPlainIO(strings.NewReader("  /camera  \n"), &out, &errOut, -1)
	p.SetPage(nav.PageMain)

	line, err := p.ReadInput()
	if err != nil || line != "/camera" {
		t.Fatalf("ReadInput = %q, %v", line, err)
	}
	if !strings.Contains(out.String(), "main> ") {
		t.Errorf("prompt should show the page, got %q", out.String())
	}
	if _, err := p.ReadInput(); err != io.EOF {
		t.Errorf("expected io.EOF at end of input, got %v", err)
	}
}

func TestPlainIO_ReadPasswordFromPipe(t *testing.T) {
	var out, errOut bytes.Buffer
	p := newPlainIO(strings.NewReader("s3cret\n"), &out, &errOut, -1)
	pw, err := p.ReadPassword("Password: ")
	if err != nil || pw != "s3cret" {
		t.Fatalf("ReadPassword = %q, %v", pw, err)
	}
}

func TestPlainIO_StatusRouting(t *testing.T) {
	var out, errOut bytes.Buffer
	p := newPlainIO(strings.NewReader(""), &out, &errOut, -1)
	p.Status("Photo captured!", false)
	p.Status("Please select a valid image file.", true)
	p.Comment("")
	p.Comment("What a view.")

	if !strings.Contains(out.String(), "✓ Photo captured!") {
		t.Errorf("stdout = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "error: Please select a valid image file.") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if strings.Count(out.String(), "What a view.") != 1 {
		t.Errorf("comment should be printed once, got %q", out.String())
	}
}

func TestPlainIO_SetPageHintsOnce(t *testing.T) {
	var out bytes.Buffer
	p := newPlainIO(strings.NewReader(""), &out, io.Discard, -1)
	p.SetPage(nav.PageVerify)
	p.SetPage(nav.PageVerify)
	if n := strings.Count(out.String(), "/verify <token>"); n != 1 {
		t.Errorf("hint printed %d times, want 1", n)
	}
}

func TestPipeIO_JSONL(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPipeIO("jsonl", false)
	p.writer, p.errW = &out, &errOut

	p.Status("Generating comment...", false)
	p.Comment("Lovely.")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 events, got %q", out.String())
	}
	if !strings.Contains(lines[1], `"type":"comment"`) || !strings.Contains(lines[1], "Lovely.") {
		t.Errorf("comment event = %s", lines[1])
	}
	if p.LastComment() != "Lovely." {
		t.Errorf("LastComment = %q", p.LastComment())
	}
}

func TestPipeIO_TextQuietByDefault(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPipeIO("", false)
	p.writer, p.errW = &out, &errOut

	p.Status("Generating comment...", false)
	p.Status("boom", true)
	p.Comment("Lovely.")

	if out.String() != "Lovely.\n" {
		t.Errorf("stdout = %q", out.String())
	}
	if errOut.String() != "error: boom\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}
