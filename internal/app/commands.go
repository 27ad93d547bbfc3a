package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quipcam/quipcam/internal/apperr"
)

// Command is one user action. Dispatch accepts only the types below.
type Command interface {
	command()
}

// CaptureImage grabs one frame from the named source ("camera", "screen",
// "clipboard").
type CaptureImage struct{ Source string }

type UploadFile struct{ Path string }

type StartRecording struct{}

type StopRecording struct{}

// RecordFor records speech for a fixed duration. Used by one-shot runs.
type RecordFor struct{ Duration time.Duration }

type Generate struct{}

type Signup struct {
	Username string
	Email    string
	Password string
}

type Login struct {
	Email    string
	Password string
}

type Logout struct{}

type Verify struct{ Token string }

type ResendVerification struct{ Email string }

type ShowProfile struct{}

type UpdateProfile struct{ Fields map[string]any }

type ShowStatus struct{}

func (CaptureImage) command()       {}
func (UploadFile) command()         {}
func (StartRecording) command()     {}
func (StopRecording) command()      {}
func (RecordFor) command()          {}
func (Generate) command()           {}
func (Signup) command()             {}
func (Login) command()              {}
func (Logout) command()             {}
func (Verify) command()             {}
func (ResendVerification) command() {}
func (ShowProfile) command()        {}
func (UpdateProfile) command()      {}
func (ShowStatus) command()         {}

// Shell-only actions that never reach the controller.
type (
	showHelp struct{}
	quit     struct{}
)

func (showHelp) command() {}
func (quit) command()     {}

// Parse turns one shell line into a Command. Login and Signup come back
// without a password; the shell prompts for it.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	if !strings.HasPrefix(line, "/") {
		return nil, apperr.Validationf("Unknown input %q. Type /help for commands.", line)
	}

	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/camera", "/photo":
		return CaptureImage{Source: "camera"}, nil
	case "/screen":
		return CaptureImage{Source: "screen"}, nil
	case "/clipboard", "/paste":
		return CaptureImage{Source: "clipboard"}, nil
	case "/upload":
		if len(args) == 0 {
			return nil, apperr.Validation("Usage: /upload <path>")
		}
		// Paths may contain spaces.
		return UploadFile{Path: strings.TrimSpace(strings.TrimPrefix(line, fields[0]))}, nil
	case "/record":
		if len(args) == 1 {
			d, err := time.ParseDuration(args[0])
			if err != nil || d <= 0 {
				return nil, apperr.Validation("Usage: /record [duration], e.g. /record 5s")
			}
			return RecordFor{Duration: d}, nil
		}
		return StartRecording{}, nil
	case "/stop":
		return StopRecording{}, nil
	case "/generate", "/g":
		return Generate{}, nil
	case "/login":
		if len(args) != 1 {
			return nil, apperr.Validation("Usage: /login <email>")
		}
		return Login{Email: args[0]}, nil
	case "/signup":
		if len(args) != 2 {
			return nil, apperr.Validation("Usage: /signup <username> <email>")
		}
		return Signup{Username: args[0], Email: args[1]}, nil
	case "/logout":
		return Logout{}, nil
	case "/verify":
		if len(args) != 1 {
			return nil, apperr.Validation("Usage: /verify <token>")
		}
		return Verify{Token: args[0]}, nil
	case "/resend":
		if len(args) != 1 {
			return nil, apperr.Validation("Usage: /resend <email>")
		}
		return ResendVerification{Email: args[0]}, nil
	case "/profile":
		if len(args) == 0 {
			return ShowProfile{}, nil
		}
		if strings.ToLower(args[0]) != "set" || len(args) < 2 {
			return nil, apperr.Validation("Usage: /profile [set key=value ...]")
		}
		fields, err := ParseFields(args[1:])
		if err != nil {
			return nil, err
		}
		return UpdateProfile{Fields: fields}, nil
	case "/status":
		return ShowStatus{}, nil
	case "/help", "/?":
		return showHelp{}, nil
	case "/quit", "/exit", "/q":
		return quit{}, nil
	}
	return nil, apperr.Validationf("Unknown command %s. Type /help for commands.", fields[0])
}

// ParseFields reads key=value pairs. Integers and booleans keep their type.
func ParseFields(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, apperr.Validationf("Invalid field %q, expected key=value.", p)
		}
		out[k] = fieldValue(v)
	}
	return out, nil
}

func fieldValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

// CommandHelp describes one shell command.
type CommandHelp struct {
	Usage string
	Desc  string
}

// Name is the command word, e.g. "/upload".
func (h CommandHelp) Name() string {
	name, _, _ := strings.Cut(h.Usage, " ")
	return name
}

// ShellCommands lists the shell commands in help order.
var ShellCommands = []CommandHelp{
	{"/camera", "capture a photo from the webcam"},
	{"/screen", "capture a screenshot"},
	{"/clipboard", "use the image on the clipboard"},
	{"/upload <path>", "use an image file"},
	{"/record [duration]", "start recording speech, or record for a fixed time"},
	{"/stop", "stop recording"},
	{"/generate", "send the pending input and show the comment"},
	{"/login <email>", "log in"},
	{"/signup <username> <email>", "create an account"},
	{"/verify <token>", "confirm your email address"},
	{"/resend <email>", "send the verification email again"},
	{"/profile [set k=v ...]", "show or update your profile"},
	{"/status", "show session and capture state"},
	{"/logout", "log out"},
	{"/help", "show this help"},
	{"/quit", "exit"},
}

// HelpText renders ShellCommands as an aligned table.
func HelpText() string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, c := range ShellCommands {
		fmt.Fprintf(&b, "  %-28s %s\n", c.Usage, c.Desc)
	}
	return strings.TrimRight(b.String(), "\n")
}
