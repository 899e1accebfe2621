// Command splat4d encodes, decodes and inspects .4spl splat videos.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/splat4d/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
