package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kvalchek/pictor/internal/raster"
)

var maskOutput string

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Work with edit masks",
	Long:  "Commands for rendering and inspecting edit masks.",
}

var maskRenderCmd = &cobra.Command{
	Use:   "render <stroke-script>",
	Short: "Render a stroke script into a mask PNG",
	Long: `Replay a stroke script and write the resulting mask as a grayscale-alpha
PNG at the script's native resolution. Stroke coordinates are given in
display space and mapped back to native pixels.

Example stroke script:
  {
    "width": 2048, "height": 1536,
    "actions": [
      {"action": "brush", "size": 60},
      {"action": "paint", "points": [{"x": 100, "y": 120}, {"x": 180, "y": 140}]},
      {"action": "mode", "mode": "eraser"},
      {"action": "paint", "points": [{"x": 150, "y": 130}]}
    ]
  }`,
	Args: cobra.ExactArgs(1),
	Run:  runMaskRender,
}

func init() {
	maskCmd.AddCommand(maskRenderCmd)
	maskRenderCmd.Flags().StringVarP(&maskOutput, "output", "o", "mask.png", "Output file")
}

func runMaskRender(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		exitError("failed to read stroke script: %v", err)
	}

	mask, err := raster.RenderScript(data, c.Config.MaxDisplayWidth, c.Config.MaxDisplayHeight)
	if err != nil {
		exitError("failed to render mask: %v", err)
	}

	if err := os.WriteFile(maskOutput, mask, 0644); err != nil {
		exitError("failed to write mask: %v", err)
	}

	fmt.Printf("Wrote %s (%d bytes)\n", maskOutput, len(mask))
}
