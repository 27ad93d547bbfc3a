package cmd

import (
	"context"

	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
	"github.com/quipcam/quipcam/internal/tui"
	"github.com/spf13/cobra"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context())
		},
	}
}

// runShell starts the interactive shell in TUI or plain mode.
func runShell(parent context.Context) error {
	e, err := openEnv(nav.PageMain)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := signalContext(parent)
	defer cancel()

	if useTUI {
		tuiCfg := tui.TUIConfig{
			Version:     displayVersion(),
			Server:      e.cfg.ServerURL,
			ShowWelcome: true,
		}
		// ctx is managed by RunTUI: cancelled on Ctrl+C, TUI exit, or OS signal.
		return tui.RunTUI(ctx, tuiCfg, func(ctx context.Context, ui tui.IO) error {
			return app.RunShell(ctx, e.controller(ui), ui)
		})
	}

	// Plain IO mode
	ui := tui.NewPlainIO()
	return app.RunShell(ctx, e.controller(ui), ui)
}

// runCommands dispatches cmds in order on a fresh env starting at page,
// stopping at the first failure. The controller has already shown it.
func runCommands(parent context.Context, page nav.Page, ui tui.IO, cmds ...app.Command) error {
	e, err := openEnv(page)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := signalContext(parent)
	defer cancel()

	c := e.controller(ui)
	c.Start()
	for _, cmd := range cmds {
		if err := c.Dispatch(ctx, cmd); err != nil {
			return reported(err)
		}
	}
	return nil
}
