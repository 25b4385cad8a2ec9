// Command agentcore is the CLI entry point for the agent core process: a
// single-binary host for the bus-driven cognitive loop, its channel
// adapters, and its tool/model registries.
//
// # Basic usage
//
//	agentcore start --config config.yaml
//	agentcore submit --config config.yaml "summarize the attached log"
//	agentcore config validate --config config.yaml
//
// Configuration can also be supplied via ${VAR} references inside the
// YAML file itself, expanded at load time (e.g. apiKey: "${ANTHROPIC_API_KEY}").
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "agentcore",
		Short:   "agentcore runs the bus-driven cognitive agent loop",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	root.AddCommand(
		buildStartCmd(),
		buildSubmitCmd(),
		buildConfigCmd(),
	)
	return root
}
