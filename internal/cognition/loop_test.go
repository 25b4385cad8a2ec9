package cognition

import (
	"context"
	"testing"
	"time"

	"github.com/nexus-agent/core/internal/bus"
	"github.com/nexus-agent/core/internal/task"
)

type fakeThinker struct {
	reasoning task.Reasoning
	calls     int
}

func (f *fakeThinker) Run(ctx context.Context, tc *task.Context, memoryIndex []task.MemoryIndexEntry) (task.Reasoning, error) {
	f.calls++
	return f.reasoning, nil
}

type fakeToolCaller struct {
	result task.StepResult
	calls  int
}

func (f *fakeToolCaller) Execute(ctx context.Context, toolCallID, name string, args map[string]any, tc *task.Context) task.StepResult {
	f.calls++
	return f.result
}

func waitForTerminal(t *testing.T, fsm *task.FSM) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if fsm.State().IsTerminal() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for task %s to reach a terminal state, stuck at %s", fsm.ID(), fsm.State())
		case <-time.After(time.Millisecond):
		}
	}
}

func newTestLoop(thinker Thinker, toolCaller ToolCaller) (*Loop, *bus.EventBus, *task.Registry) {
	b := bus.New()
	tasks := task.NewRegistry(0)
	loop := New(Config{
		Bus:           b,
		Tasks:         tasks,
		Tools:         toolCaller,
		Thinker:       thinker,
		Planner:       &DefaultPlanner{},
		Actor:         &DefaultActor{},
		Reflector:     &DefaultReflector{},
		MaxIterations: 10,
	})
	loop.Subscribe()
	return loop, b, tasks
}

func TestLoop_SingleRespondTaskCompletes(t *testing.T) {
	thinker := &fakeThinker{reasoning: task.Reasoning{Response: "hello there", Approach: task.ApproachDirect}}
	_, b, tasks := newTestLoop(thinker, &fakeToolCaller{})

	ctx := context.Background()
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	b.Emit(bus.New(bus.EventMessageReceived, "", "cli", map[string]any{
		"text":    "hi",
		"channel": task.ChannelCoordinate{Type: "cli", ChannelID: "c1"},
	}))

	deadline := time.After(time.Second)
	var fsm *task.FSM
	for {
		active := tasks.ListAll()
		if len(active) == 1 {
			fsm = active[0]
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for task creation")
		case <-time.After(time.Millisecond):
		}
	}

	waitForTerminal(t, fsm)
	if fsm.State() != task.StateCompleted {
		t.Fatalf("final state = %s, want %s", fsm.State(), task.StateCompleted)
	}

	tc := fsm.Context()
	if tc.FinalResult == nil || tc.FinalResult.Text != "hello there" {
		t.Errorf("FinalResult = %+v, want Text=%q", tc.FinalResult, "hello there")
	}
	if thinker.calls != 1 {
		t.Errorf("thinker called %d times, want 1", thinker.calls)
	}
}

func TestLoop_ToolCallTaskInvokesExecutorAndCompletes(t *testing.T) {
	thinker := &fakeThinker{reasoning: task.Reasoning{
		Approach: task.ApproachToolUse,
		ToolCalls: []task.ToolCallRef{
			{ID: "call-1", Name: "search", Arguments: map[string]any{"q": "go"}},
		},
	}}
	toolCaller := &fakeToolCaller{result: task.StepResult{Success: true, Result: "3 results"}}
	_, b, tasks := newTestLoop(thinker, toolCaller)

	ctx := context.Background()
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	b.Emit(bus.New(bus.EventMessageReceived, "", "cli", map[string]any{
		"text":    "search for go",
		"channel": task.ChannelCoordinate{Type: "cli"},
	}))

	deadline := time.After(time.Second)
	var fsm *task.FSM
	for {
		active := tasks.ListAll()
		if len(active) == 1 {
			fsm = active[0]
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for task creation")
		case <-time.After(time.Millisecond):
		}
	}

	waitForTerminal(t, fsm)
	if fsm.State() != task.StateCompleted {
		t.Fatalf("final state = %s, want %s", fsm.State(), task.StateCompleted)
	}
	if toolCaller.calls != 1 {
		t.Errorf("tool caller called %d times, want 1", toolCaller.calls)
	}

	tc := fsm.Context()
	var sawToolMessage bool
	for _, m := range tc.Messages {
		if m.Role == "tool" && m.ToolCallID == "call-1" && m.Content == "3 results" {
			sawToolMessage = true
		}
	}
	if !sawToolMessage {
		t.Errorf("expected a tool result message in context.Messages, got %+v", tc.Messages)
	}
}

func TestLoop_MaxActiveTasksDropsMessage(t *testing.T) {
	thinker := &fakeThinker{reasoning: task.Reasoning{Response: "ok"}}
	b := bus.New()
	tasks := task.NewRegistry(1)
	loop := New(Config{Bus: b, Tasks: tasks, Tools: &fakeToolCaller{}, Thinker: thinker, Planner: &DefaultPlanner{}, Actor: &DefaultActor{}, Reflector: &DefaultReflector{}})
	loop.Subscribe()

	ctx := context.Background()
	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer b.Stop()

	// Pre-fill the registry to capacity with a task that never completes
	// (no thinker run triggered), then prove a second MESSAGE_RECEIVED is
	// dropped rather than erroring the bus.
	if _, err := tasks.Create(task.ChannelCoordinate{Type: "cli"}, "occupying"); err != nil {
		t.Fatalf("pre-fill Create() error = %v", err)
	}

	b.Emit(bus.New(bus.EventMessageReceived, "", "cli", map[string]any{
		"text":    "hi",
		"channel": task.ChannelCoordinate{Type: "cli"},
	}))

	time.Sleep(50 * time.Millisecond)

	if len(tasks.ListAll()) != 1 {
		t.Errorf("expected the dropped message to leave the registry at 1 task, got %d", len(tasks.ListAll()))
	}
}
