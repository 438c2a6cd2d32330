package main

import (
	"os"

	"github.com/guidecraft/guidecraft/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
