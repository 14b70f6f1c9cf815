package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteSessionID string

var deleteCmd = &cobra.Command{
	Use:   "delete <version-url>",
	Short: "Remove a version from the session history",
	Long: `Remove a single version from the local session history. Children of the
deleted version stay in the history with a dangling parent reference.
Deleting the active version promotes the next-newest remaining version.`,
	Args: cobra.ExactArgs(1),
	Run:  runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteSessionID, "session", "", "Session id (default: current session)")
}

func runDelete(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	sessionID := c.resolveSession(deleteSessionID)
	r := c.openSession(ctx, sessionID, "")

	if !r.DeleteVersion(args[0]) {
		exitError("no such version: %s", args[0])
	}

	fmt.Printf("Deleted %s\n", args[0])
	if active := r.ActiveURL(); active != "" {
		fmt.Printf("Active: %s\n", active)
	}
}
