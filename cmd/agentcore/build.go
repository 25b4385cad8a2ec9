package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nexus-agent/core/internal/agentshell"
	"github.com/nexus-agent/core/internal/bus"
	"github.com/nexus-agent/core/internal/channel"
	"github.com/nexus-agent/core/internal/channel/cli"
	"github.com/nexus-agent/core/internal/channel/discord"
	"github.com/nexus-agent/core/internal/channel/slack"
	"github.com/nexus-agent/core/internal/channel/telegram"
	"github.com/nexus-agent/core/internal/cognition"
	"github.com/nexus-agent/core/internal/config"
	"github.com/nexus-agent/core/internal/modelregistry"
	"github.com/nexus-agent/core/internal/observability"
	"github.com/nexus-agent/core/internal/providers"
	"github.com/nexus-agent/core/internal/schedule"
	"github.com/nexus-agent/core/internal/task"
	"github.com/nexus-agent/core/internal/taskstore"
	"github.com/nexus-agent/core/internal/toolkit"
)

// app bundles every long-lived component buildApp wires together, so
// callers (start, submit) can reach the pieces they need without a
// second construction pass.
type app struct {
	settings *config.Settings
	shell    *agentshell.Shell
	store    *taskstore.Store
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// newLogger builds the process-wide slog.Logger per settings.logLevel/
// logFormat, mirroring the teacher's JSON-by-default production logging
// (cmd/nexus/main.go's slog.NewJSONHandler(os.Stderr, ...) setup).
func newLogger(settings *config.Settings) *slog.Logger {
	level := slog.LevelInfo
	switch settings.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error", "fatal":
		level = slog.LevelError
	case "silent":
		level = slog.LevelError + 4
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if settings.LogFormat == "line" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// buildApp loads configPath, initializes the process-wide config.Settings,
// and wires the bus, task/tool/model registries, cognitive loop, channel
// mux, and observability collectors into one agentshell.Shell.
func buildApp(configPath string) (*app, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	config.Reset()
	config.Init(settings)

	log := newLogger(settings)
	slog.SetDefault(log)

	if err := os.MkdirAll(settings.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("agentcore: create data dir: %w", err)
	}

	b := bus.New(bus.WithLogger(log), bus.WithHistory(1000))
	tasks := task.NewRegistry(settings.Agent.MaxActiveTasks)
	toolRegistry := toolkit.NewRegistry()

	metrics := observability.NewMetrics(func() float64 { return float64(b.Pending()) })
	tracer := observability.NewTracer("agentcore")

	models := modelregistry.New(settings.LLM.ModelRegistryConfig(), providers.Factory, modelregistry.WithMetrics(metrics))

	taskTimeout := time.Duration(settings.Agent.TaskTimeout) * time.Second
	executor := toolkit.NewExecutor(toolRegistry, taskTimeout, toolkit.WithMetrics(metrics))

	mux := channel.NewMux(b, executor, channel.WithLogger(log))
	registerAdapters(mux, settings)

	modelFunc := func(role string) (modelregistry.Handle, error) { return models.Get(role) }
	loop := cognition.New(cognition.Config{
		Bus:           b,
		Tasks:         tasks,
		Tools:         mux,
		ToolRegistry:  toolRegistry,
		Thinker:       &cognition.DefaultThinker{Model: modelFunc},
		Planner:       &cognition.DefaultPlanner{},
		Actor:         &cognition.DefaultActor{},
		Reflector:     &cognition.DefaultReflector{},
		MaxIterations: settings.Agent.MaxCognitiveIterations,
		Log:           log,
	})

	shell := agentshell.New(agentshell.Config{
		Bus:           b,
		Tasks:         tasks,
		Tools:         toolRegistry,
		Models:        models,
		Loop:          loop,
		Mux:           mux,
		SubmitTimeout: taskTimeout,
		Log:           log,
	})

	store, err := taskstore.Open(context.Background(), filepath.Join(settings.DataDir, "tasks.db"))
	if err != nil {
		return nil, fmt.Errorf("agentcore: open task store: %w", err)
	}

	return &app{settings: settings, shell: shell, store: store, metrics: metrics, tracer: tracer}, nil
}

// registerAdapters always registers the cli adapter (stdin/stdout) and
// additionally registers discord/telegram/slack when their bot tokens are
// present in the environment, matching the teacher's "channel enabled iff
// its token is configured" convention.
func registerAdapters(mux *channel.Mux, settings *config.Settings) {
	mux.Register(cli.New())

	if token := os.Getenv("DISCORD_BOT_TOKEN"); token != "" {
		mux.Register(discord.New(token))
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		mux.Register(telegram.New(token))
	}
	if botToken, appToken := os.Getenv("SLACK_BOT_TOKEN"), os.Getenv("SLACK_APP_TOKEN"); botToken != "" && appToken != "" {
		mux.Register(slack.New(botToken, appToken))
	}

	if len(settings.Schedule) > 0 {
		entries := make([]schedule.Entry, 0, len(settings.Schedule))
		for _, e := range settings.Schedule {
			entries = append(entries, schedule.Entry{Name: e.Name, Spec: e.Spec, Text: e.Text})
		}
		mux.Register(schedule.New(entries...))
	}
}

// persistState saves every active (non-terminal) task in a.shell's
// registry to the durable store; terminal tasks are not saved.
func (a *app) persistState(ctx context.Context) {
	for _, fsm := range a.shell.TaskRegistry().ListActive() {
		if err := a.store.Save(ctx, fsm); err != nil {
			slog.Error("failed to persist task state", "task", fsm.ID(), "error", err)
		}
	}
}

func (a *app) close(ctx context.Context) {
	a.tracer.Shutdown(ctx)
	a.store.Close()
}
