// ============================================================================
// Tasklets - Main Entry Point
// ============================================================================
//
// File: cmd/tasklets/main.go
// Purpose: Application entry point and CLI initialization.
//
// Usage:
//   ./tasklets --help                    # Show help
//   ./tasklets run -c configs/default.yaml
//   ./tasklets submit -f tasks.json
//   ./tasklets status
//   ./tasklets health
//
// ============================================================================

package main

import (
	"fmt"
	"os"

	"github.com/wendelmax/tasklets-go/internal/cli"
)

// Build-time version injection via ldflags, e.g.
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "1.0.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", r)
			os.Exit(1)
		}
	}()

	rootCmd := cli.BuildCLI()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
