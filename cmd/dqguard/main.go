package main

import (
	"os"

	"github.com/wonny/dqguard/cmd/dqguard/commands"
)

// main is the entry point for the dqguard CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/dqguard [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
