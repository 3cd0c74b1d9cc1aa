package main

import (
	"os"

	"github.com/rustyeddy/trendline/cmd/trendline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
