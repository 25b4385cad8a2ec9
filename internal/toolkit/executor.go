package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/nexus-agent/core/internal/observability"
	"github.com/nexus-agent/core/internal/task"
)

// Executor runs a registered tool by name, validating arguments against its
// schema and bounding execution with agent.taskTimeout.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	metrics  *observability.Metrics
}

// Option configures an Executor at construction.
type Option func(*Executor)

// WithMetrics records every Execute call's outcome and duration onto m.
// Omitting it (or passing nil) leaves metrics recording disabled.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// NewExecutor constructs an Executor bound to registry, timing out each
// call after timeout (agent.taskTimeout).
func NewExecutor(registry *Registry, timeout time.Duration, opts ...Option) *Executor {
	e := &Executor{registry: registry, timeout: timeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// execResult carries the outcome of a goroutine-isolated tool invocation.
type execResult struct {
	result task.StepResult
}

// Execute looks up name, validates args against its schema, and runs it
// within a timeout. It never returns an error itself: every failure mode
// (not found, invalid args, timeout, panic, tool-raised error) is encoded
// as a failed StepResult so callers can uniformly emit
// TOOL_CALL_COMPLETED/FAILED.
func (e *Executor) Execute(ctx context.Context, toolCallID, name string, args map[string]any, taskCtx *task.Context) task.StepResult {
	started := time.Now()

	def, ok := e.registry.Get(name)
	if !ok {
		return failResult(started, fmt.Sprintf("Tool %s not found", name))
	}

	if err := e.validate(def, args); err != nil {
		return failResult(started, err.Error())
	}

	result := e.executeWithTimeout(ctx, def, args, taskCtx)
	completed := time.Now()
	result.StartedAt = started
	result.CompletedAt = &completed
	result.DurationMs = completed.Sub(started).Milliseconds()

	e.registry.updateCallStats(name, result.DurationMs, result.Success)

	status := "success"
	if !result.Success {
		status = "error"
	}
	e.metrics.RecordToolCall(name, status, float64(result.DurationMs)/1000)

	return result
}

// validate checks args against the tool's structured or pre-baked JSON
// Schema, mirroring the teacher's pkg/pluginsdk.ValidateConfig flow
// (marshal args, decode to an untyped value, Schema.Validate it).
func (e *Executor) validate(def *Definition, args map[string]any) error {
	schema, err := e.registry.schemaFor(def)
	if err != nil {
		return fmt.Errorf("compile schema for tool %q: %w", def.Name, err)
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return err
	}
	return nil
}

// executeWithTimeout runs def.Execute in its own goroutine so a hang or
// panic cannot block the dispatcher; a panic is recovered and converted to
// a failed StepResult.
func (e *Executor) executeWithTimeout(ctx context.Context, def *Definition, args map[string]any, taskCtx *task.Context) task.StepResult {
	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resultCh := make(chan execResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				resultCh <- execResult{result: task.StepResult{
					Success: false,
					Error:   fmt.Sprintf("panic: %v\n%s", r, stack),
				}}
			}
		}()
		resultCh <- execResult{result: def.Execute(args, taskCtx)}
	}()

	select {
	case res := <-resultCh:
		return res.result
	case <-execCtx.Done():
		ms := e.timeout.Milliseconds()
		return task.StepResult{
			Success: false,
			Error:   fmt.Sprintf("Tool %s timed out after %dms", def.Name, ms),
		}
	}
}

func failResult(started time.Time, msg string) task.StepResult {
	completed := time.Now()
	return task.StepResult{
		Success:     false,
		Error:       msg,
		StartedAt:   started,
		CompletedAt: &completed,
		DurationMs:  completed.Sub(started).Milliseconds(),
	}
}
