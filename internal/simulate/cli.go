package simulate

import (
	"fmt"
	"os"

	"github.com/tiaraboard/tiara/pkg/logger"
)

// SetupLogging initializes the shared logger for a simulation run.
func SetupLogging(format string) error {
	if err := logger.Init(format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Tiara Simulation Tool
=====================

Drives a running tabulation server with a full panel of generated
submissions, then checks the served standings against a local replay of
the same ranking engine.

Usage:
  go run cmd/simulate/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -event string
        Event definition YAML shared with the server (default "event.yaml")
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -format string
        Log format: text or json (default "text")
  -verbose
        Log the expected podium per division
  -help
        Show this help message

Examples:
  # Simulate against a local server with defaults
  go run cmd/simulate/main.go

  # Custom event file and more submitters
  go run cmd/simulate/main.go -event pageant.yaml -workers 16
`)
}
