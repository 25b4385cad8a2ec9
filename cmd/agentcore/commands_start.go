package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func buildStartCmd() *cobra.Command {
	var (
		configPath string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the agent process: bus, channel adapters, and cognitive loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd.Context(), configPath, metricsAddr)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to YAML configuration file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Address to serve /metrics on (empty disables it)")
	return cmd
}

func runStart(parent context.Context, configPath, metricsAddr string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux}
		go server.ListenAndServe()
		defer server.Close()
	}

	if err := a.shell.Start(ctx); err != nil {
		return fmt.Errorf("agentcore: start: %w", err)
	}

	ticker := time.NewTicker(time.Duration(a.settings.Agent.HeartbeatInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.persistState(stopCtx)
			a.shell.Stop(stopCtx)
			a.close(stopCtx)
			return nil
		case <-ticker.C:
			a.persistState(ctx)
		}
	}
}
