package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetSessionID string

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the session on the server and locally",
	Long: `Clear all server-side state for the session, then drop the local history,
gallery entry, and cached state. Local data is kept if the server-side
clear fails, so the reset can be retried.`,
	Run: runReset,
}

func init() {
	resetCmd.Flags().StringVar(&resetSessionID, "session", "", "Session id (default: current session)")
}

func runReset(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	sessionID := c.resolveSession(resetSessionID)
	r := c.openSession(ctx, sessionID, "")

	if err := r.Reset(ctx); err != nil {
		exitError("reset failed: %v", err)
	}

	if current, found, _ := c.Store.Get(currentSessionKey); found && string(current) == sessionID {
		if err := c.Store.Clear(currentSessionKey); err != nil {
			exitError("failed to clear current session: %v", err)
		}
	}

	fmt.Printf("Session %s reset\n", sessionID)
}
