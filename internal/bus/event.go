// Package bus implements the priority event bus that serializes every state
// change in the agent runtime into a single total order for subscribers.
package bus

import (
	"sync/atomic"
	"time"
)

// EventType is a numeric event kind whose value doubles as its default
// dispatch priority (lower dispatches first). The ranges mirror the
// system/input/task/cognitive/tool segmentation of the runtime.
type EventType int

const (
	// System segment: 0-99.
	EventSystemStarted EventType = 0
	EventHeartbeat      EventType = 50
	EventSystemStopping EventType = 90

	// External input segment: 100-199.
	EventMessageReceived EventType = 100

	// Task lifecycle segment: 200-299.
	EventTaskCreated   EventType = 200
	EventTaskCompleted EventType = 210
	EventTaskFailed    EventType = 220
	EventTaskCancelled EventType = 230

	// Cognitive segment: 300-399.
	EventReasonDone     EventType = 300
	EventPlanDone       EventType = 310
	EventStepRequested  EventType = 315
	EventStepCompleted  EventType = 320
	EventReflectDone    EventType = 330

	// Tool segment: 400-499.
	EventToolCallRequested EventType = 400
	EventToolCallCompleted EventType = 410
	EventToolCallFailed    EventType = 420
)

func (t EventType) String() string {
	switch t {
	case EventSystemStarted:
		return "SYSTEM_STARTED"
	case EventHeartbeat:
		return "HEARTBEAT"
	case EventSystemStopping:
		return "SYSTEM_STOPPING"
	case EventMessageReceived:
		return "MESSAGE_RECEIVED"
	case EventTaskCreated:
		return "TASK_CREATED"
	case EventTaskCompleted:
		return "TASK_COMPLETED"
	case EventTaskFailed:
		return "TASK_FAILED"
	case EventTaskCancelled:
		return "TASK_CANCELLED"
	case EventReasonDone:
		return "REASON_DONE"
	case EventPlanDone:
		return "PLAN_DONE"
	case EventStepRequested:
		return "STEP_REQUESTED"
	case EventStepCompleted:
		return "STEP_COMPLETED"
	case EventReflectDone:
		return "REFLECT_DONE"
	case EventToolCallRequested:
		return "TOOL_CALL_REQUESTED"
	case EventToolCallCompleted:
		return "TOOL_CALL_COMPLETED"
	case EventToolCallFailed:
		return "TOOL_CALL_FAILED"
	default:
		return "UNKNOWN"
	}
}

// WildcardType subscribes a handler to every event type.
const WildcardType EventType = -1

var idCounter uint64

// nextID hands out a monotonically increasing, process-unique event id.
// Unlike a UUID this is directly sortable, matching the "unique, sortable"
// invariant of Event.ID in the spec.
func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

// Event is an immutable record of one state transition. Once constructed
// via New or Derive, no field is mutated; handlers receive it by value.
type Event struct {
	ID            uint64
	Type          EventType
	Timestamp     time.Time
	TaskID        string // empty when not task-scoped
	Source        string // channel type, or "system"
	ParentEventID uint64 // 0 means no parent
	Payload       map[string]any
	priority      *int // optional override of Type's default priority
}

// New constructs a root event (no parent).
func New(typ EventType, taskID, source string, payload map[string]any) Event {
	return Event{
		ID:        nextID(),
		Type:      typ,
		Timestamp: time.Now(),
		TaskID:    taskID,
		Source:    source,
		Payload:   payload,
	}
}

// Derive constructs an event caused by parent: it copies TaskID and Source
// from parent and sets ParentEventID to parent.ID, preserving causality.
func Derive(parent Event, typ EventType, payload map[string]any) Event {
	e := New(typ, parent.TaskID, parent.Source, payload)
	e.ParentEventID = parent.ID
	return e
}

// WithPriority returns a copy of e with an explicit priority override.
func (e Event) WithPriority(p int) Event {
	e.priority = &p
	return e
}

// EffectivePriority is priority ?? type: the explicit override if set,
// otherwise the numeric event type.
func (e Event) EffectivePriority() int {
	if e.priority != nil {
		return *e.priority
	}
	return int(e.Type)
}
