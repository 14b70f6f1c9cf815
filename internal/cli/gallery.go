package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "List known sessions, most recent first",
	Long: `Display the gallery of known editing sessions. Each session appears once
with its most recent image, newest first.`,
	Run: runGallery,
}

func runGallery(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	items := c.Gallery.Items()
	if len(items) == 0 {
		fmt.Println("No sessions yet")
		return
	}

	current := ""
	if data, found, _ := c.Store.Get(currentSessionKey); found {
		current = string(data)
	}

	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	for _, item := range items {
		yellow.Printf("%s", shortID(item.SessionID))
		if item.SessionID == current {
			cyan.Print(" (current)")
		}
		fmt.Printf("  %s  %s\n", item.UpdatedAt.Format("2006-01-02 15:04"), item.Instruction)
		fmt.Printf("          %s\n", item.URL)
	}
}
