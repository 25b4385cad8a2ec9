package task

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nexus-agent/core/internal/coreerr"
)

// Registry owns the set of live TaskFSMs, keyed by task id. It enforces
// agent.maxActiveTasks: intake beyond the cap is rejected so the caller can
// drop the offending MESSAGE_RECEIVED and log it.
type Registry struct {
	mu             sync.RWMutex
	tasks          map[string]*FSM
	maxActiveTasks int
}

// NewRegistry constructs a Registry bounded at maxActiveTasks concurrently
// non-terminal tasks. maxActiveTasks <= 0 means unbounded.
func NewRegistry(maxActiveTasks int) *Registry {
	return &Registry{
		tasks:          make(map[string]*FSM),
		maxActiveTasks: maxActiveTasks,
	}
}

// Create allocates a unique task id and registers a new FSM in PENDING
// before the caller publishes TASK_CREATED. It returns
// coreerr.NewMaxActiveTasksError when the active-task cap is already at
// maxActiveTasks.
func (r *Registry) Create(channel ChannelCoordinate, inputText string) (*FSM, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxActiveTasks > 0 && r.countActiveLocked() >= r.maxActiveTasks {
		return nil, coreerr.NewMaxActiveTasksError(r.maxActiveTasks)
	}

	id := uuid.NewString()
	fsm := NewFSM(id, &Context{InputText: inputText, Channel: channel})
	r.tasks[id] = fsm
	return fsm, nil
}

// Get looks up a task by id.
func (r *Registry) Get(id string) (*FSM, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fsm, ok := r.tasks[id]
	if !ok {
		return nil, coreerr.NewTaskNotFoundError(id)
	}
	return fsm, nil
}

// ListAll returns every registered task, live and terminal.
func (r *Registry) ListAll() []*FSM {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*FSM, 0, len(r.tasks))
	for _, fsm := range r.tasks {
		out = append(out, fsm)
	}
	return out
}

// ListActive returns every task not yet in a terminal state.
func (r *Registry) ListActive() []*FSM {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*FSM, 0, len(r.tasks))
	for _, fsm := range r.tasks {
		if !fsm.State().IsTerminal() {
			out = append(out, fsm)
		}
	}
	return out
}

// countActiveLocked assumes r.mu is held.
func (r *Registry) countActiveLocked() int {
	n := 0
	for _, fsm := range r.tasks {
		if !fsm.State().IsTerminal() {
			n++
		}
	}
	return n
}
