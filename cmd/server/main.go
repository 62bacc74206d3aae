// Command server runs the detector's web UI and HTTP API. It is equivalent to `aivd serve`.
package main

import (
	"os"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/cli"
)

func main() {
	os.Exit(cli.ExecuteArgs(append([]string{"serve"}, os.Args[1:]...)))
}
