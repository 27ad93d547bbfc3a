package cmd

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/quipcam/quipcam/internal/config"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive configuration wizard",
		Long:  "Guides you through setting up quipcam: choose the backend URL and save the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context())
		},
	}
}

func runInit(ctx context.Context) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Welcome to the quipcam configuration wizard!")
	fmt.Println()

	current := config.DefaultServerURL
	if cfg, err := config.Load(cfgFile); err == nil {
		current = cfg.ServerURL
	}

	fmt.Printf("Backend URL [%s]: ", current)
	input, _ := reader.ReadString('\n')
	server := strings.TrimSpace(input)
	if server == "" {
		server = current
	}
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		return fmt.Errorf("backend URL must start with http:// or https://")
	}

	if err := probe(ctx, server); err != nil {
		fmt.Printf("Warning: %s is not reachable right now (%v)\n", server, err)
		fmt.Print("Save anyway? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	path, err := config.SaveServerToFile(cfgFile, server)
	if err != nil {
		return err
	}

	fmt.Printf("\nConfig saved to %s\n", path)
	fmt.Println("You can now run: quipcam signup <username> <email>, or quipcam login <email>")
	return nil
}

// probe checks that something answers HTTP at server.
func probe(ctx context.Context, server string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, strings.TrimRight(server, "/")+"/", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
