package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var useSessionID string

var useCmd = &cobra.Command{
	Use:   "use <version-url>",
	Short: "Make a version the active image",
	Long: `Select an existing version as the session's active image. The server's
resulting session state is adopted verbatim, replacing local history.`,
	Args: cobra.ExactArgs(1),
	Run:  runUse,
}

func init() {
	useCmd.Flags().StringVar(&useSessionID, "session", "", "Session id (default: current session)")
}

func runUse(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	sessionID := c.resolveSession(useSessionID)
	r := c.openSession(ctx, sessionID, "")

	if err := r.Use(ctx, args[0]); err != nil {
		exitError("select failed: %v", err)
	}

	fmt.Printf("Active: %s\n", r.ActiveURL())
}
