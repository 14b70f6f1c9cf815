// Command pictor is the CLI for mask-based image editing sessions.
package main

import (
	"os"

	"github.com/kvalchek/pictor/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
