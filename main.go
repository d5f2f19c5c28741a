package main

import (
	"os"

	"github.com/spigell/hiresense/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
