// Package task implements the TaskFSM state machine and TaskRegistry that
// own every in-flight task's mutable context.
package task

import "time"

// ChannelCoordinate identifies the origin/destination of a message: the
// identity tuple carried on every inbound and outbound.
type ChannelCoordinate struct {
	Type      string
	ChannelID string
	UserID    string
	ReplyTo   string
}

// ChatMessage is one entry in a TaskContext's ordered message history,
// matching the LLM chat wire shape (role, text content, optional tool
// calls/results).
type ChatMessage struct {
	Role        string
	Content     string
	ToolCalls   []ToolCallRef
	ToolCallID  string // set on role "tool"
}

// ToolCallRef is the assistant tool-call shape: {id, name, arguments}.
type ToolCallRef struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ActionType enumerates the kinds of plan step the Actor can execute.
type ActionType string

const (
	ActionRespond  ActionType = "respond"
	ActionToolCall ActionType = "tool_call"
	ActionGenerate ActionType = "generate"
)

// Approach enumerates how the Thinker reached its Reasoning.
type Approach string

const (
	ApproachDirect   Approach = "direct"
	ApproachToolUse  Approach = "tool_use"
)

// Reasoning is the Thinker phase's output.
type Reasoning struct {
	Response          string
	Approach          Approach
	NeedsClarification bool
	ToolCalls         []ToolCallRef
}

// PlanStep is one element of a Plan. Index matches its position in
// Plan.Steps; Completed transitions monotonically false -> true.
type PlanStep struct {
	Index        int
	Description  string
	ActionType   ActionType
	ActionParams map[string]any
	Completed    bool
}

// Plan is the Planner phase's output.
type Plan struct {
	Goal      string
	Reasoning string
	Steps     []PlanStep
}

// StepResult is the Actor phase's (possibly pending) output for one step.
// For tool_call steps CompletedAt is nil until the tool result arrives
// asynchronously; Success remains true for the pending placeholder.
type StepResult struct {
	StepIndex   int
	ActionType  ActionType
	ActionInput any
	Success     bool
	Result      any
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
	DurationMs  int64
}

// Pending reports whether this result is awaiting asynchronous completion
// (true only for an in-flight tool_call).
func (r StepResult) Pending() bool {
	return r.ActionType == ActionToolCall && r.CompletedAt == nil
}

// MemoryIndexEntry is one row of a TaskContext's optional memory index,
// rendered into the Thinker's system prompt.
type MemoryIndexEntry struct {
	Path    string
	Summary string
	Size    int64
}

// Reflection is the Reflector phase's output: whether to loop back into
// REASONING or terminate the task.
type Reflection struct {
	ShouldContinue bool
	Reason         string
}

// FinalResult is the payload carried by a TASK_COMPLETED event.
type FinalResult struct {
	TaskID string
	Text   string
}

// Context is the mutable, single-writer state of one task. It is written
// only by the CognitiveLoop handler chain for events scoped to its TaskID;
// the bus's single-dispatcher cooperative model gives it an effective
// single writer without locking.
type Context struct {
	InputText    string
	Channel      ChannelCoordinate
	Messages     []ChatMessage
	Reasoning    *Reasoning
	Plan         *Plan
	ActionsDone  []StepResult
	Reflections  []Reflection
	Iteration    int
	FinalResult  *FinalResult
	MemoryIndex  []MemoryIndexEntry
}
