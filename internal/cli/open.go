package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var openSessionID string

var openCmd = &cobra.Command{
	Use:   "open <image-file>",
	Short: "Upload an image and start an editing session",
	Long: `Upload a source image to the server, creating a new editing session with
the upload as its root version. The session becomes the current session
for subsequent commands.

Passing --session reopens an existing session instead of creating one.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runOpen,
}

func init() {
	openCmd.Flags().StringVar(&openSessionID, "session", "", "Reopen an existing session id")
}

func runOpen(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	if openSessionID != "" && len(args) == 0 {
		reopenSession(ctx, c, openSessionID)
		return
	}

	if len(args) == 0 {
		exitError("an image file or --session is required")
	}

	path := args[0]
	blob, err := os.ReadFile(path)
	if err != nil {
		exitError("failed to read image: %v", err)
	}

	sessionID := openSessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	r := c.openSession(ctx, sessionID, "")
	if err := r.Upload(ctx, filepath.Base(path), blob); err != nil {
		exitError("upload failed: %v", err)
	}

	if err := c.Store.Set(currentSessionKey, []byte(sessionID)); err != nil {
		exitError("failed to record current session: %v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Opened session %s\n", sessionID)
	fmt.Printf("Active: %s\n", r.ActiveURL())
}

func reopenSession(ctx context.Context, c *cmdContext, sessionID string) {
	r := c.openSession(ctx, sessionID, "")
	if len(r.Versions()) == 0 {
		exitError("session %s has no versions (not found remotely or locally)", sessionID)
	}

	if err := c.Store.Set(currentSessionKey, []byte(sessionID)); err != nil {
		exitError("failed to record current session: %v", err)
	}

	fmt.Printf("Switched to session %s (%d versions)\n", sessionID, len(r.Versions()))
	fmt.Printf("Active: %s\n", r.ActiveURL())
}
