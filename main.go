package main

import (
	"os"

	"github.com/msomdec/gallery/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
