package cognition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nexus-agent/core/internal/bus"
	"github.com/nexus-agent/core/internal/task"
	"github.com/nexus-agent/core/internal/toolkit"
)

// ToolCaller runs one tool call to completion. It is satisfied by
// *toolkit.Executor; kept as an interface so tests can stub it.
type ToolCaller interface {
	Execute(ctx context.Context, toolCallID, name string, args map[string]any, tc *task.Context) task.StepResult
}

// Config configures a Loop.
type Config struct {
	Bus          *bus.EventBus
	Tasks        *task.Registry
	Tools        ToolCaller
	ToolRegistry *toolkit.Registry
	Thinker      Thinker
	Planner      Planner
	Actor        Actor
	Reflector    Reflector
	MaxIterations int // agent.maxCognitiveIterations, default 10
	Log          *slog.Logger
}

// Loop is the CognitiveLoop: the only component allowed to create events
// of types 200-399 and the only consumer of MESSAGE_RECEIVED.
type Loop struct {
	bus          *bus.EventBus
	tasks        *task.Registry
	tools        ToolCaller
	toolRegistry *toolkit.Registry
	thinker      Thinker
	planner      Planner
	actor        Actor
	reflector    Reflector
	maxIterations int
	log          *slog.Logger
}

// New constructs a Loop from cfg, defaulting MaxIterations to 10 and Log
// to slog.Default() when unset.
func New(cfg Config) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Loop{
		bus:           cfg.Bus,
		tasks:         cfg.Tasks,
		tools:         cfg.Tools,
		toolRegistry:  cfg.ToolRegistry,
		thinker:       cfg.Thinker,
		planner:       cfg.Planner,
		actor:         cfg.Actor,
		reflector:     cfg.Reflector,
		maxIterations: cfg.MaxIterations,
		log:           cfg.Log,
	}
}

// Subscribe wires every phase transition handler onto the bus. Call once
// before starting the bus.
func (l *Loop) Subscribe() {
	l.bus.Subscribe(bus.EventMessageReceived, l.onMessageReceived)
	l.bus.Subscribe(bus.EventTaskCreated, l.onTaskCreated)
	l.bus.Subscribe(bus.EventReasonDone, l.onReasonDone)
	l.bus.Subscribe(bus.EventPlanDone, l.onPlanDone)
	l.bus.Subscribe(bus.EventStepRequested, l.onStepRequested)
	l.bus.Subscribe(bus.EventStepCompleted, l.onStepCompleted)
	l.bus.Subscribe(bus.EventReflectDone, l.onReflectDone)
	l.bus.Subscribe(bus.EventToolCallRequested, l.onToolCallRequested)
	l.bus.Subscribe(bus.EventToolCallCompleted, l.onToolResultArrived)
	l.bus.Subscribe(bus.EventToolCallFailed, l.onToolResultArrived)
}

// onMessageReceived creates a TaskFSM for the inbound message and
// publishes TASK_CREATED; the registry's max-active-tasks cap drops the
// message (logged) rather than propagating an error to the bus.
func (l *Loop) onMessageReceived(ctx context.Context, e bus.Event) error {
	text, _ := e.Payload["text"].(string)
	channel, _ := e.Payload["channel"].(task.ChannelCoordinate)

	fsm, err := l.tasks.Create(channel, text)
	if err != nil {
		l.log.Warn("dropping MESSAGE_RECEIVED: max active tasks exceeded", "error", err)
		return nil
	}

	emitForTask(l.bus, bus.Derive(e, bus.EventTaskCreated, nil), fsm.ID())
	return nil
}

func (l *Loop) onTaskCreated(ctx context.Context, e bus.Event) error {
	fsm, err := l.tasks.Get(e.TaskID)
	if err != nil {
		return err
	}
	if err := fsm.Transition(task.StateReasoning); err != nil {
		return l.fail(e, fsm, "invalid_state_transition", err.Error())
	}
	return l.runThinker(ctx, e, fsm)
}

func (l *Loop) runThinker(ctx context.Context, e bus.Event, fsm *task.FSM) error {
	tc := fsm.Context()
	reasoning, err := l.thinker.Run(ctx, tc, tc.MemoryIndex)
	if err != nil {
		return l.fail(e, fsm, "llm_error", err.Error())
	}
	tc.Reasoning = &reasoning
	emitForTask(l.bus, bus.Derive(e, bus.EventReasonDone, nil), fsm.ID())
	return nil
}

func (l *Loop) onReasonDone(ctx context.Context, e bus.Event) error {
	fsm, err := l.tasks.Get(e.TaskID)
	if err != nil {
		return err
	}
	if err := fsm.Transition(task.StatePlanning); err != nil {
		return l.fail(e, fsm, "invalid_state_transition", err.Error())
	}

	tc := fsm.Context()
	plan, err := l.planner.Run(ctx, tc)
	if err != nil {
		return l.fail(e, fsm, "planner_error", err.Error())
	}
	tc.Plan = &plan
	emitForTask(l.bus, bus.Derive(e, bus.EventPlanDone, nil), fsm.ID())
	return nil
}

func (l *Loop) onPlanDone(ctx context.Context, e bus.Event) error {
	fsm, err := l.tasks.Get(e.TaskID)
	if err != nil {
		return err
	}
	if err := fsm.Transition(task.StateActing); err != nil {
		return l.fail(e, fsm, "invalid_state_transition", err.Error())
	}

	tc := fsm.Context()
	if len(tc.Plan.Steps) == 0 {
		// Nothing to act on; go straight to reflection.
		return l.enterReflecting(ctx, e, fsm)
	}

	emitForTask(l.bus, bus.Derive(e, bus.EventStepRequested, map[string]any{"stepIndex": 0}), fsm.ID())
	return nil
}

func (l *Loop) onStepRequested(ctx context.Context, e bus.Event) error {
	fsm, err := l.tasks.Get(e.TaskID)
	if err != nil {
		return err
	}
	stepIndex := intPayload(e.Payload, "stepIndex")
	tc := fsm.Context()
	if stepIndex < 0 || stepIndex >= len(tc.Plan.Steps) {
		return fmt.Errorf("step index %d out of range for task %s", stepIndex, fsm.ID())
	}
	step := tc.Plan.Steps[stepIndex]

	result, err := l.actor.Run(ctx, tc, step)
	if err != nil {
		return l.fail(e, fsm, "actor_error", err.Error())
	}

	if result.Pending() {
		toolName, _ := step.ActionParams["toolName"].(string)
		toolCallID, _ := step.ActionParams["toolCallId"].(string)
		toolParams, _ := step.ActionParams["toolParams"].(map[string]any)
		emitForTask(l.bus, bus.Derive(e, bus.EventToolCallRequested, map[string]any{
			"toolCallId": toolCallID,
			"toolName":   toolName,
			"toolParams": toolParams,
			"stepIndex":  stepIndex,
		}), fsm.ID())
		return nil
	}

	tc.Plan.Steps[stepIndex].Completed = true
	tc.ActionsDone = append(tc.ActionsDone, result)
	emitForTask(l.bus, bus.Derive(e, bus.EventStepCompleted, map[string]any{"stepIndex": stepIndex}), fsm.ID())
	return nil
}

// onToolCallRequested bridges the cognitive plane to the tool plane: it
// runs the tool synchronously within its own suspension point (per §5,
// ToolExecutor.execute is a suspension point) and emits the linked
// completion event.
func (l *Loop) onToolCallRequested(ctx context.Context, e bus.Event) error {
	fsm, err := l.tasks.Get(e.TaskID)
	if err != nil {
		return err
	}
	toolCallID, _ := e.Payload["toolCallId"].(string)
	toolName, _ := e.Payload["toolName"].(string)
	toolParams, _ := e.Payload["toolParams"].(map[string]any)
	stepIndex := intPayload(e.Payload, "stepIndex")

	tc := fsm.Context()
	result := l.tools.Execute(ctx, toolCallID, toolName, toolParams, tc)

	payload := map[string]any{"toolCallId": toolCallID, "stepIndex": stepIndex, "result": result}
	if result.Success {
		emitForTask(l.bus, bus.Derive(e, bus.EventToolCallCompleted, payload), fsm.ID())
	} else {
		emitForTask(l.bus, bus.Derive(e, bus.EventToolCallFailed, payload), fsm.ID())
	}
	return nil
}

// onToolResultArrived handles both TOOL_CALL_COMPLETED and
// TOOL_CALL_FAILED: it pushes the tool result message into the task's
// messages and emits STEP_COMPLETED, matching §4.4's "Upon completion, the
// loop pushes a tool message ... and emits STEP_COMPLETED."
func (l *Loop) onToolResultArrived(ctx context.Context, e bus.Event) error {
	fsm, err := l.tasks.Get(e.TaskID)
	if err != nil {
		return err
	}
	toolCallID, _ := e.Payload["toolCallId"].(string)
	stepIndex := intPayload(e.Payload, "stepIndex")
	result, _ := e.Payload["result"].(task.StepResult)

	tc := fsm.Context()
	tc.Messages = append(tc.Messages, task.ChatMessage{
		Role:       "tool",
		Content:    serializeToolResult(result),
		ToolCallID: toolCallID,
	})

	if stepIndex >= 0 && stepIndex < len(tc.Plan.Steps) {
		tc.Plan.Steps[stepIndex].Completed = true
	}
	tc.ActionsDone = append(tc.ActionsDone, result)

	emitForTask(l.bus, bus.Derive(e, bus.EventStepCompleted, map[string]any{"stepIndex": stepIndex}), fsm.ID())
	return nil
}

func (l *Loop) onStepCompleted(ctx context.Context, e bus.Event) error {
	fsm, err := l.tasks.Get(e.TaskID)
	if err != nil {
		return err
	}
	tc := fsm.Context()
	stepIndex := intPayload(e.Payload, "stepIndex")

	next := stepIndex + 1
	if next < len(tc.Plan.Steps) {
		if err := fsm.Transition(task.StateActing); err != nil {
			return l.fail(e, fsm, "invalid_state_transition", err.Error())
		}
		emitForTask(l.bus, bus.Derive(e, bus.EventStepRequested, map[string]any{"stepIndex": next}), fsm.ID())
		return nil
	}

	return l.enterReflecting(ctx, e, fsm)
}

func (l *Loop) enterReflecting(ctx context.Context, e bus.Event, fsm *task.FSM) error {
	if err := fsm.Transition(task.StateReflecting); err != nil {
		return l.fail(e, fsm, "invalid_state_transition", err.Error())
	}

	tc := fsm.Context()
	reflection, err := l.reflector.Run(ctx, tc)
	if err != nil {
		return l.fail(e, fsm, "reflector_error", err.Error())
	}
	tc.Reflections = append(tc.Reflections, reflection)

	emitForTask(l.bus, bus.Derive(e, bus.EventReflectDone, map[string]any{"shouldContinue": reflection.ShouldContinue}), fsm.ID())
	return nil
}

func (l *Loop) onReflectDone(ctx context.Context, e bus.Event) error {
	fsm, err := l.tasks.Get(e.TaskID)
	if err != nil {
		return err
	}
	tc := fsm.Context()
	shouldContinue, _ := e.Payload["shouldContinue"].(bool)

	if shouldContinue && tc.Iteration+1 < l.maxIterations {
		tc.Iteration++
		if err := fsm.Transition(task.StateReasoning); err != nil {
			return l.fail(e, fsm, "invalid_state_transition", err.Error())
		}
		return l.runThinker(ctx, e, fsm)
	}

	if shouldContinue {
		l.log.Warn("cognitive loop hit max iterations; forcing completion", "task_id", fsm.ID(), "max_iterations", l.maxIterations)
	}

	if err := fsm.Transition(task.StateCompleted); err != nil {
		return l.fail(e, fsm, "invalid_state_transition", err.Error())
	}

	text := bestReply(tc)
	tc.FinalResult = &task.FinalResult{TaskID: fsm.ID(), Text: text}
	emitForTask(l.bus, bus.Derive(e, bus.EventTaskCompleted, map[string]any{"finalResult": *tc.FinalResult}), fsm.ID())
	return nil
}

// bestReply picks the best available reply text when the task completes,
// preferring the latest reasoning response.
func bestReply(tc *task.Context) string {
	if tc.Reasoning != nil && tc.Reasoning.Response != "" {
		return tc.Reasoning.Response
	}
	for i := len(tc.ActionsDone) - 1; i >= 0; i-- {
		if s, ok := tc.ActionsDone[i].Result.(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// fail transitions fsm to FAILED (if not already terminal) and publishes
// TASK_FAILED carrying {taskId, errorKind, message}.
func (l *Loop) fail(e bus.Event, fsm *task.FSM, kind, message string) error {
	fsm.Fail(kind, message)
	emitForTask(l.bus, bus.Derive(e, bus.EventTaskFailed, map[string]any{
		"taskId":    fsm.ID(),
		"errorKind": kind,
		"message":   message,
	}), fsm.ID())
	return fmt.Errorf("%s: %s", kind, message)
}

func intPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return -1
	}
}

func serializeToolResult(result task.StepResult) string {
	if result.Success {
		if s, ok := result.Result.(string); ok {
			return s
		}
		encoded, err := json.Marshal(result.Result)
		if err != nil {
			return fmt.Sprint(result.Result)
		}
		return string(encoded)
	}
	return result.Error
}

// emitForTask stamps ev with taskID (bus.Derive only copies a parent's
// TaskID, but the parent of a freshly-created task's first event is not
// yet task-scoped) and emits it.
func emitForTask(b *bus.EventBus, ev bus.Event, taskID string) {
	ev.TaskID = taskID
	b.Emit(ev)
}
