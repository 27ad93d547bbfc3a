package cmd

import (
	"fmt"
	"strings"

	"github.com/quipcam/quipcam/internal/app"
	"github.com/quipcam/quipcam/internal/nav"
	"github.com/quipcam/quipcam/internal/tui"
	"github.com/spf13/cobra"
)

func newSignupCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "signup <username> <email>",
		Short:   "Create an account",
		Args:    cobra.ExactArgs(2),
		Example: `  quipcam signup ann ann@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := tui.NewPlainIO()
			pw, err := readNewPassword(ui)
			if err != nil {
				return err
			}
			return runCommands(cmd.Context(), nav.PageSignup, ui,
				app.Signup{Username: args[0], Email: args[1], Password: pw})
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "login <email>",
		Short:   "Log in and store the session token",
		Args:    cobra.ExactArgs(1),
		Example: `  quipcam login ann@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := tui.NewPlainIO()
			pw, err := ui.ReadPassword("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			return runCommands(cmd.Context(), nav.PageLogin, ui,
				app.Login{Email: args[0], Password: pw})
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommands(cmd.Context(), nav.PageMain, tui.NewPlainIO(), app.Logout{})
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Confirm your email address with the token from the verification mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommands(cmd.Context(), nav.PageVerify, tui.NewPlainIO(), app.Verify{Token: args[0]})
		},
	}
}

func newResendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend-verification <email>",
		Short: "Send the verification email again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommands(cmd.Context(), nav.PageVerify, tui.NewPlainIO(),
				app.ResendVerification{Email: args[0]})
		},
	}
}

// readNewPassword asks twice and requires both answers to match.
func readNewPassword(ui *tui.PlainIO) (string, error) {
	pw, err := ui.ReadPassword("Choose a password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	again, err := ui.ReadPassword("Repeat password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if strings.TrimSpace(pw) != strings.TrimSpace(again) {
		return "", fmt.Errorf("passwords do not match")
	}
	return pw, nil
}
