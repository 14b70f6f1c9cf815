package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kvalchek/pictor/internal/raster"
)

var (
	editSessionID string
	editStrokes   string
	editMask      string
	editParams    []string
	editVariants  int
)

var editCmd = &cobra.Command{
	Use:   "edit <instruction>",
	Short: "Submit an edit instruction against the active image",
	Long: `Submit a natural-language edit instruction to the processing server.
Results are appended to the session history as children of the current
active version, and the first result becomes the new active image.

A mask restricts the edit to painted regions. Pass a pre-rendered mask
PNG with --mask, or a stroke script with --strokes to paint one here.

Examples:
  pictor edit "make the sky more dramatic"
  pictor edit "remove the car" --strokes car-mask.json
  pictor edit "add fireworks" --variants 3`,
	Args: cobra.ExactArgs(1),
	Run:  runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editSessionID, "session", "", "Session id (default: current session)")
	editCmd.Flags().StringVar(&editStrokes, "strokes", "", "Stroke script file to render into a mask")
	editCmd.Flags().StringVar(&editMask, "mask", "", "Pre-rendered mask PNG file")
	editCmd.Flags().StringArrayVar(&editParams, "param", nil, "Extra parameter as key=value, repeat for multiple")
	editCmd.Flags().IntVar(&editVariants, "variants", 0, "Number of result variants to request")
}

func runEdit(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	if editStrokes != "" && editMask != "" {
		exitError("--strokes and --mask are mutually exclusive")
	}

	params, err := parseParams(editParams)
	if err != nil {
		exitError("%v", err)
	}
	if editVariants > 0 {
		params["variants"] = strconv.Itoa(editVariants)
	}

	mask, err := loadMask(c)
	if err != nil {
		exitError("%v", err)
	}

	sessionID := c.resolveSession(editSessionID)
	r := c.openSession(ctx, sessionID, "")

	if err := r.SubmitEdit(ctx, args[0], params, mask); err != nil {
		exitError("edit failed: %v", err)
	}

	green := color.New(color.FgGreen)
	green.Println("Edit complete")
	for _, v := range r.Versions() {
		if v.URL == r.ActiveURL() {
			fmt.Printf("Active: %s\n", v.URL)
		}
	}
}

// loadMask renders --strokes or reads --mask; a nil result means an
// unmasked, whole-image edit.
func loadMask(c *cmdContext) ([]byte, error) {
	switch {
	case editStrokes != "":
		data, err := os.ReadFile(editStrokes)
		if err != nil {
			return nil, fmt.Errorf("failed to read stroke script: %w", err)
		}
		mask, err := raster.RenderScript(data, c.Config.MaxDisplayWidth, c.Config.MaxDisplayHeight)
		if err != nil {
			return nil, fmt.Errorf("failed to render mask: %w", err)
		}
		return mask, nil
	case editMask != "":
		mask, err := os.ReadFile(editMask)
		if err != nil {
			return nil, fmt.Errorf("failed to read mask: %w", err)
		}
		return mask, nil
	default:
		return nil, nil
	}
}

// parseParams converts repeated key=value flags into a map.
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q (want key=value)", p)
		}
		params[k] = v
	}
	return params, nil
}
