package main

import (
	"os"

	"github.com/wonny/waveger/backend/cmd/waveger/commands"
)

// main is the entry point for the waveger CLI: go run ./cmd/waveger [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
