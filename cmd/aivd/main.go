package main

import (
	"os"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
