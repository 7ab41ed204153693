package main

import (
	"os"

	"github.com/hykvra/AI-Video-Creator/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
