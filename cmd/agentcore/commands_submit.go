package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func buildSubmitCmd() *cobra.Command {
	var (
		configPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit <text>",
		Short: "Start the process, submit one input, print its result, and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), configPath, strings.Join(args, " "), timeout)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to YAML configuration file")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "How long to wait for the task to reach a terminal state")
	return cmd
}

func runSubmit(ctx context.Context, configPath, text string, timeout time.Duration) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if err := a.shell.Start(ctx); err != nil {
		return fmt.Errorf("agentcore: start: %w", err)
	}
	defer a.shell.Stop(ctx)

	taskID, err := a.shell.Submit(text)
	if err != nil {
		return fmt.Errorf("agentcore: submit: %w", err)
	}

	fsm, err := a.shell.WaitForTask(taskID, timeout)
	if err != nil {
		return err
	}

	result := fsm.Context().FinalResult
	if result != nil {
		fmt.Println(result.Text)
	}
	return nil
}
