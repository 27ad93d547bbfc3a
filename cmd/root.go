package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/quipcam/quipcam/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgFile    string
	serverFlag string
	useTUI     bool
	logLevel   string
	ephemeral  bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// reportedError marks an error the UI has already shown to the user.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date

	rootCmd := &cobra.Command{
		Use:   "quipcam",
		Short: "Capture a photo, screenshot or voice note and get an AI comment on it",
		Long: "quipcam captures an image or a short recording, sends it to the captioning\n" +
			"backend and shows the comment it writes. Running quipcam with no subcommand\n" +
			"starts the interactive shell.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Default TUI on when stdout is a terminal and --tui was not explicitly set.
			if !cmd.Root().PersistentFlags().Changed("tui") && term.IsTerminal(int(os.Stdout.Fd())) {
				useTUI = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ~/.config/quipcam/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "override the backend URL")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "use bubbletea TUI mode (default: auto-detect terminal)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep the login in memory only for this run")

	// Subcommands
	rootCmd.AddCommand(newShellCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newSignupCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newResendCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	if err := rootCmd.Execute(); err != nil {
		var r *reportedError
		if !errors.As(err, &r) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// displayVersion returns a formatted version string for the TUI welcome page,
// e.g. "v0.1.0 (abc1234)".
func displayVersion() string {
	v := "v" + appVersion
	if appCommit != "" && appCommit != "none" {
		v += " (" + appCommit + ")"
	}
	return v
}

// initConfig loads configuration, applying CLI flag overrides.
func initConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config values
	if serverFlag != "" {
		cfg.ServerURL = strings.TrimRight(serverFlag, "/")
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if ephemeral {
		cfg.Storage.Driver = "memory"
	}
	// Console logs would tear the TUI apart.
	if cfg.Log.Level == "debug" && !useTUI {
		cfg.Log.Console = true
	}
	if useTUI {
		cfg.Log.Console = false
	}
	return cfg, nil
}
