package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-agent/core/internal/config"
)

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(buildConfigValidateCmd())
	return cmd
}

func buildConfigValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load config and report whether it satisfies the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to YAML configuration file")
	return cmd
}

func runConfigValidate(configPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Printf("%s: valid (logLevel=%s, agent.maxActiveTasks=%d)\n", configPath, settings.LogLevel, settings.Agent.MaxActiveTasks)
	return nil
}
