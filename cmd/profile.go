package cmd

import (
	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
	"github.com/quipcam/quipcam/internal/tui"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommands(cmd.Context(), nav.PageMain, tui.NewPlainIO(), app.ShowProfile{})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "set key=value...",
		Short:   "Update profile fields",
		Args:    cobra.MinimumNArgs(1),
		Example: `  quipcam profile set username=ann`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := app.ParseFields(args)
			if err != nil {
				return err
			}
			return runCommands(cmd.Context(), nav.PageMain, tui.NewPlainIO(), app.UpdateProfile{Fields: fields})
		},
	})
	return cmd
}
