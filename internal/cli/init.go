package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kvalchek/pictor/internal/config"
)

var (
	initServerURL string
	initToken     string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a pictor workspace",
	Long: `Create a .pictor directory in the current directory with configuration
pointing at a pictor server.

Examples:
  pictor init --server http://localhost:8730 --token secret`,
	Run: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initServerURL, "server",
		envOrDefault("PICTOR_SERVER_URL", "http://localhost:8730"), "Pictor server base URL")
	initCmd.Flags().StringVar(&initToken, "token",
		envOrDefault("PICTOR_TOKEN", ""), "Bearer token for the server")
}

func runInit(cmd *cobra.Command, args []string) {
	cfg, err := config.Initialize(initServerURL, initToken)
	if err != nil {
		exitError("%v", err)
	}

	fmt.Printf("Initialized pictor workspace in %s\n", cfg.Path())
	fmt.Printf("Server: %s\n", cfg.ServerURL)
}
