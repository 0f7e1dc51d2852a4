package main

import (
	"os"

	"github.com/wonny/arcade/cmd/arcade/commands"
)

// main is the entry point for the arcade host CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/arcade [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
