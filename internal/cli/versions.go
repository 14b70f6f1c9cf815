package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionsSessionID string

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the session's version history",
	Long: `Display the session's versions, newest first. The active version is
marked, and versions whose parent was deleted are flagged as detached.`,
	Run: runVersions,
}

func init() {
	versionsCmd.Flags().StringVar(&versionsSessionID, "session", "", "Session id (default: current session)")
}

func runVersions(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	sessionID := c.resolveSession(versionsSessionID)
	r := c.openSession(ctx, sessionID, "")

	versions := r.Versions()
	if len(versions) == 0 {
		fmt.Println("No versions yet")
		return
	}

	activeURL := r.ActiveURL()
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	magenta := color.New(color.FgMagenta)

	for _, v := range versions {
		yellow.Printf("%s", v.URL)
		if v.URL == activeURL {
			cyan.Print(" (active)")
		}
		if !v.IsRoot() && !r.HasParent(v) {
			magenta.Print(" [detached]")
		}
		fmt.Println()
		fmt.Printf("Date:   %s\n", v.CreatedAt.Format("Mon Jan 2 15:04:05 2006"))
		if v.ParentURL != "" {
			fmt.Printf("Parent: %s\n", v.ParentURL)
		}
		fmt.Printf("\n    %s\n\n", v.Instruction)
	}
}
