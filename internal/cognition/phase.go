// Package cognition implements the CognitiveLoop: the driver binding the
// Thinker/Planner/Actor/Reflector phases to bus events per the
// MESSAGE_RECEIVED -> ... -> TASK_COMPLETED protocol.
package cognition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nexus-agent/core/internal/modelregistry"
	"github.com/nexus-agent/core/internal/task"
)

// Thinker produces a Reasoning from a task's current context.
type Thinker interface {
	Run(ctx context.Context, tc *task.Context, memoryIndex []task.MemoryIndexEntry) (task.Reasoning, error)
}

// Planner produces a Plan from a task's current context (post-reasoning).
type Planner interface {
	Run(ctx context.Context, tc *task.Context) (task.Plan, error)
}

// Actor executes one plan step, possibly returning a pending result for an
// asynchronous tool_call.
type Actor interface {
	Run(ctx context.Context, tc *task.Context, step task.PlanStep) (task.StepResult, error)
}

// Reflector decides whether the task should loop back into REASONING or
// terminate.
type Reflector interface {
	Run(ctx context.Context, tc *task.Context) (task.Reflection, error)
}

// ModelFunc resolves the model handle a phase should use, keyed by a role
// name (the phase's own name, e.g. "thinker"); role resolution's
// fall-through to config.default means every phase shares one model
// unless a role-specific override is configured.
type ModelFunc func(role string) (modelregistry.Handle, error)

// DefaultThinker is the teacher-observed Thinker behavior: render the
// system prompt (with an optional memory index preface), avoid duplicating
// the last user message when it already equals InputText byte-exact, and
// derive Reasoning.Approach from whether the model asked for tool calls.
type DefaultThinker struct {
	Model       ModelFunc
	Tools       func() ([]modelregistry.ChatTool, error)
	SystemBase  string
}

// Run implements Thinker.
func (t *DefaultThinker) Run(ctx context.Context, tc *task.Context, memoryIndex []task.MemoryIndexEntry) (task.Reasoning, error) {
	handle, err := t.Model("thinker")
	if err != nil {
		return task.Reasoning{}, err
	}

	if len(tc.Messages) == 0 || tc.Messages[len(tc.Messages)-1].Role != "user" || tc.Messages[len(tc.Messages)-1].Content != tc.InputText {
		tc.Messages = append(tc.Messages, task.ChatMessage{Role: "user", Content: coerceContent(tc.InputText)})
	}

	system := t.SystemBase
	if len(memoryIndex) > 0 {
		var b strings.Builder
		b.WriteString("Available memory:")
		for _, entry := range memoryIndex {
			fmt.Fprintf(&b, "\n%s: %s", entry.Path, entry.Summary)
		}
		if system != "" {
			system = system + "\n\n" + b.String()
		} else {
			system = b.String()
		}
	}

	var tools []modelregistry.ChatTool
	if t.Tools != nil {
		tools, err = t.Tools()
		if err != nil {
			return task.Reasoning{}, err
		}
	}

	messages := make([]modelregistry.ChatMessage, 0, len(tc.Messages))
	for _, m := range tc.Messages {
		messages = append(messages, modelregistry.ChatMessage{Role: m.Role, Content: m.Content})
	}

	result, err := handle.Generate(ctx, modelregistry.GenerateOptions{System: system, Messages: messages, Tools: tools})
	if err != nil {
		return task.Reasoning{}, err
	}

	reasoning := task.Reasoning{Response: result.Text, Approach: task.ApproachDirect}
	if len(result.ToolCalls) > 0 {
		reasoning.Approach = task.ApproachToolUse
		reasoning.ToolCalls = make([]task.ToolCallRef, 0, len(result.ToolCalls))
		for _, tc2 := range result.ToolCalls {
			reasoning.ToolCalls = append(reasoning.ToolCalls, task.ToolCallRef{ID: tc2.ID, Name: tc2.Name, Arguments: tc2.Arguments})
		}
	}
	return reasoning, nil
}

// coerceContent stringifies a dynamic payload the way the source's
// message-building coerces null/undefined content: nil becomes the
// literal string "null"; a string passes through as-is; any other value is
// formatted with fmt.Sprint.
func coerceContent(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// DefaultPlanner builds a deterministic plan from the prior Reasoning's
// tool calls, never consulting the model (see the Open Question in
// DESIGN.md: the source's Planner ignores the model handle entirely).
type DefaultPlanner struct{}

// Run implements Planner.
func (p *DefaultPlanner) Run(ctx context.Context, tc *task.Context) (task.Plan, error) {
	if tc.Reasoning != nil && len(tc.Reasoning.ToolCalls) > 0 {
		steps := make([]task.PlanStep, 0, len(tc.Reasoning.ToolCalls))
		for i, call := range tc.Reasoning.ToolCalls {
			steps = append(steps, task.PlanStep{
				Index:       i,
				Description: fmt.Sprintf("Call tool %s", call.Name),
				ActionType:  task.ActionToolCall,
				ActionParams: map[string]any{
					"toolCallId": call.ID,
					"toolName":   call.Name,
					"toolParams": call.Arguments,
				},
			})
		}
		return task.Plan{Goal: "Execute requested tool calls", Steps: steps}, nil
	}

	return task.Plan{
		Goal:  "Respond to the user",
		Steps: []task.PlanStep{{Index: 0, Description: "Respond to the user", ActionType: task.ActionRespond}},
	}, nil
}

// DefaultActor executes one PlanStep.
type DefaultActor struct{}

// Run implements Actor.
func (a *DefaultActor) Run(ctx context.Context, tc *task.Context, step task.PlanStep) (task.StepResult, error) {
	switch step.ActionType {
	case task.ActionRespond:
		response := ""
		if tc.Reasoning != nil {
			response = tc.Reasoning.Response
		}
		now := time.Now()
		return task.StepResult{
			StepIndex:   step.Index,
			ActionType:  task.ActionRespond,
			Success:     true,
			Result:      response,
			StartedAt:   now,
			CompletedAt: &now,
		}, nil

	case task.ActionToolCall:
		toolName, _ := step.ActionParams["toolName"].(string)
		toolCallID, _ := step.ActionParams["toolCallId"].(string)
		toolParams, _ := step.ActionParams["toolParams"].(map[string]any)

		tc.Messages = append(tc.Messages, task.ChatMessage{
			Role: "assistant",
			ToolCalls: []task.ToolCallRef{{
				ID:        toolCallID,
				Name:      toolName,
				Arguments: toolParams,
			}},
		})

		return task.StepResult{
			StepIndex:  step.Index,
			ActionType: task.ActionToolCall,
			Success:    true,
			StartedAt:  time.Now(),
			// CompletedAt left nil: pending, completed asynchronously by the
			// ToolExecutor/TOOL_CALL_COMPLETED handler.
		}, nil

	default:
		now := time.Now()
		return task.StepResult{
			StepIndex:   step.Index,
			ActionType:  step.ActionType,
			Success:     true,
			Result:      fmt.Sprintf("[Stub] Completed step %d: %s", step.Index, step.Description),
			StartedAt:   now,
			CompletedAt: &now,
		}, nil
	}
}

// DefaultReflector loops the task back into REASONING when the last
// Reasoning asked for clarification; otherwise it terminates.
type DefaultReflector struct{}

// Run implements Reflector.
func (r *DefaultReflector) Run(ctx context.Context, tc *task.Context) (task.Reflection, error) {
	if tc.Reasoning != nil && tc.Reasoning.NeedsClarification {
		return task.Reflection{ShouldContinue: true, Reason: "needs clarification"}, nil
	}
	return task.Reflection{ShouldContinue: false, Reason: "goal satisfied"}, nil
}
