package app

import (
	"context"
	"errors"
	"io"
)

// Prompter reads shell lines and secrets from the user.
type Prompter interface {
	// ReadInput blocks until the user submits a line. io.EOF means quit.
	ReadInput() (string, error)
	// ReadPassword reads a line without echoing it.
	ReadPassword(prompt string) (string, error)
	SystemMessage(text string)
}

// RunShell reads commands until the user quits or ctx is cancelled.
// Command failures are already shown by the controller and do not end
// the shell.
func RunShell(ctx context.Context, c *Controller, in Prompter) error {
	c.Start()
	in.SystemMessage(`quipcam ready. Type /help for commands.`)

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := in.ReadInput()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		cmd, err := Parse(line)
		if err != nil {
			c.fail(err, "")
			continue
		}
		switch cmd := cmd.(type) {
		case nil:
			continue
		case quit:
			return nil
		case showHelp:
			in.SystemMessage(HelpText())
			continue
		case Login:
			if cmd.Password, err = in.ReadPassword("Password: "); err != nil {
				return ignoreEOF(err)
			}
			_ = c.Dispatch(ctx, cmd)
		case Signup:
			if cmd.Password, err = in.ReadPassword("Choose a password: "); err != nil {
				return ignoreEOF(err)
			}
			_ = c.Dispatch(ctx, cmd)
		default:
			_ = c.Dispatch(ctx, cmd)
		}
	}
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
