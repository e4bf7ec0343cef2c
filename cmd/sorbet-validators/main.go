package main

import (
	"os"

	"sorbet-validators/cmd/sorbet-validators/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
