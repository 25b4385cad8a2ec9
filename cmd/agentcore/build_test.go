package main

import (
	"context"
	"testing"

	"github.com/nexus-agent/core/internal/bus"
	"github.com/nexus-agent/core/internal/channel"
	"github.com/nexus-agent/core/internal/config"
	"github.com/nexus-agent/core/internal/schedule"
	"github.com/nexus-agent/core/internal/task"
)

func TestRegisterAdapters_AlwaysRegistersCLI(t *testing.T) {
	b := bus.New()
	mux := channel.NewMux(b, noopToolCaller{})
	registerAdapters(mux, &config.Settings{})

	if _, ok := mux.Get("cli"); !ok {
		t.Fatal("expected cli adapter to be registered unconditionally")
	}
}

func TestRegisterAdapters_NoScheduleSourceWithoutEntries(t *testing.T) {
	b := bus.New()
	mux := channel.NewMux(b, noopToolCaller{})
	registerAdapters(mux, &config.Settings{})

	if _, ok := mux.Get(schedule.Type); ok {
		t.Fatal("expected no schedule source registered when Settings.Schedule is empty")
	}
}

func TestRegisterAdapters_RegistersScheduleSourceFromSettings(t *testing.T) {
	b := bus.New()
	mux := channel.NewMux(b, noopToolCaller{})
	registerAdapters(mux, &config.Settings{
		Schedule: []config.ScheduleEntry{
			{Name: "daily-digest", Spec: "@every 1h", Text: "summarize today"},
		},
	})

	if _, ok := mux.Get(schedule.Type); !ok {
		t.Fatal("expected a schedule source to be registered when Settings.Schedule is non-empty")
	}
}

func TestNewLogger_DefaultsToJSONInfo(t *testing.T) {
	log := newLogger(&config.Settings{LogLevel: "info", LogFormat: "json"})
	if log == nil {
		t.Fatal("expected a non-nil logger")
	}
}

func TestNewLogger_LineFormatAndDebugLevel(t *testing.T) {
	log := newLogger(&config.Settings{LogLevel: "debug", LogFormat: "line"})
	if log == nil {
		t.Fatal("expected a non-nil logger")
	}
}

type noopToolCaller struct{}

func (noopToolCaller) Execute(ctx context.Context, toolCallID, name string, args map[string]any, tc *task.Context) task.StepResult {
	return task.StepResult{}
}
