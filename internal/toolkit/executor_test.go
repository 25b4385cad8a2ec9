package toolkit

import (
	"context"
	"testing"
	"time"

	"github.com/nexus-agent/core/internal/task"
)

func TestExecutor_UnknownToolNotFound(t *testing.T) {
	r := NewRegistry()
	e := NewExecutor(r, time.Second)

	result := e.Execute(context.Background(), "call-1", "missing", nil, &task.Context{})
	if result.Success {
		t.Fatal("expected failure for an unknown tool")
	}
	want := "Tool missing not found"
	if result.Error != want {
		t.Errorf("Error = %q, want %q", result.Error, want)
	}
}

func TestExecutor_ValidationFailurePassesThroughAsFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(echoDef("echo"))
	e := NewExecutor(r, time.Second)

	// Missing the required "text" field.
	result := e.Execute(context.Background(), "call-1", "echo", map[string]any{}, &task.Context{})
	if result.Success {
		t.Fatal("expected validation failure")
	}
	if result.Error == "" {
		t.Error("expected a non-empty validation error message")
	}
}

func TestExecutor_SuccessfulExecution(t *testing.T) {
	r := NewRegistry()
	r.Register(echoDef("echo"))
	e := NewExecutor(r, time.Second)

	result := e.Execute(context.Background(), "call-1", "echo", map[string]any{"text": "hi"}, &task.Context{})
	if !result.Success {
		t.Fatalf("expected success, got error = %q", result.Error)
	}
	if result.Result != "hi" {
		t.Errorf("Result = %v, want %q", result.Result, "hi")
	}
	if result.CompletedAt == nil {
		t.Error("CompletedAt should be set for a synchronous tool result")
	}
}

func TestExecutor_Timeout(t *testing.T) {
	r := NewRegistry()
	r.Register(Definition{
		Name: "slow",
		ParametersSchema: map[string]any{
			"type": "object", "properties": map[string]any{},
		},
		Execute: func(args map[string]any, ctx *task.Context) task.StepResult {
			time.Sleep(200 * time.Millisecond)
			return task.StepResult{Success: true}
		},
	})
	e := NewExecutor(r, 20*time.Millisecond)

	result := e.Execute(context.Background(), "call-1", "slow", map[string]any{}, &task.Context{})
	if result.Success {
		t.Fatal("expected a timeout failure")
	}
	want := "Tool slow timed out after 20ms"
	if result.Error != want {
		t.Errorf("Error = %q, want %q", result.Error, want)
	}
}

func TestExecutor_PanicRecovered(t *testing.T) {
	r := NewRegistry()
	r.Register(Definition{
		Name: "panics",
		ParametersSchema: map[string]any{
			"type": "object", "properties": map[string]any{},
		},
		Execute: func(args map[string]any, ctx *task.Context) task.StepResult {
			panic("boom")
		},
	})
	e := NewExecutor(r, time.Second)

	result := e.Execute(context.Background(), "call-1", "panics", map[string]any{}, &task.Context{})
	if result.Success {
		t.Fatal("expected panic to surface as a failed StepResult")
	}
}

func TestExecutor_ToolReturnedFailureIsPassedThroughNotReRaised(t *testing.T) {
	r := NewRegistry()
	r.Register(Definition{
		Name: "fails-cleanly",
		ParametersSchema: map[string]any{
			"type": "object", "properties": map[string]any{},
		},
		Execute: func(args map[string]any, ctx *task.Context) task.StepResult {
			return task.StepResult{Success: false, Error: "business logic said no"}
		},
	})
	e := NewExecutor(r, time.Second)

	result := e.Execute(context.Background(), "call-1", "fails-cleanly", map[string]any{}, &task.Context{})
	if result.Success {
		t.Fatal("expected the tool's own failure to be reported")
	}
	if result.Error != "business logic said no" {
		t.Errorf("Error = %q, want the tool's own message", result.Error)
	}
}
