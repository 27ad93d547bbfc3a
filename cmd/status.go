package cmd

import (
	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
	"github.com/quipcam/quipcam/internal/tui"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the backend URL and login state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommands(cmd.Context(), nav.PageMain, tui.NewPipeIO("text", false), app.ShowStatus{})
		},
	}
}
