// Package agentshell wires the bus, task registry, tool registry, model
// registry, cognitive loop, and channel mux into the single narrow surface
// the rest of the process (cmd/agentcore, tests) talks to: start, stop,
// submit, waitForTask, onTaskComplete, registerAdapter, plus observable
// handles onto the underlying components.
//
// Basic usage:
//
//	shell := agentshell.New(agentshell.Config{...})
//	shell.RegisterAdapter(cliAdapter)
//	if err := shell.Start(ctx); err != nil { ... }
//	defer shell.Stop(ctx)
//
//	taskID, err := shell.Submit("hello")
//	fsm, err := shell.WaitForTask(taskID, 5*time.Second)
package agentshell

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-agent/core/internal/bus"
	"github.com/nexus-agent/core/internal/channel"
	"github.com/nexus-agent/core/internal/cognition"
	"github.com/nexus-agent/core/internal/coreerr"
	"github.com/nexus-agent/core/internal/modelregistry"
	"github.com/nexus-agent/core/internal/task"
	"github.com/nexus-agent/core/internal/toolkit"
)

// Config configures a Shell.
type Config struct {
	Bus          *bus.EventBus
	Tasks        *task.Registry
	Tools        *toolkit.Registry
	Models       *modelregistry.Registry
	Loop         *cognition.Loop
	Mux          *channel.Mux
	SubmitTimeout time.Duration // default 5s
	Log          *slog.Logger
}

// Shell is the agent process's public surface.
type Shell struct {
	bus    *bus.EventBus
	tasks  *task.Registry
	tools  *toolkit.Registry
	models *modelregistry.Registry
	loop   *cognition.Loop
	mux    *channel.Mux
	log    *slog.Logger

	submitTimeout time.Duration

	mu         sync.Mutex
	started    bool
	pending    map[uint64]chan string        // originating event id -> task id
	waiters    map[string][]chan *task.FSM    // task id -> terminal-state waiters
	onComplete map[string][]func(*task.FSM)   // task id -> TASK_COMPLETED-only callbacks
}

// New constructs a Shell. SubmitTimeout defaults to 5s, Log to slog.Default().
func New(cfg Config) *Shell {
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 5 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Shell{
		bus:           cfg.Bus,
		tasks:         cfg.Tasks,
		tools:         cfg.Tools,
		models:        cfg.Models,
		loop:          cfg.Loop,
		mux:           cfg.Mux,
		log:           cfg.Log,
		submitTimeout: cfg.SubmitTimeout,
		pending:       make(map[uint64]chan string),
		waiters:       make(map[string][]chan *task.FSM),
		onComplete:    make(map[string][]func(*task.FSM)),
	}
}

// RegisterAdapter registers a channel adapter with the mux. Must be called
// before Start for the adapter to be started with the rest of the process.
func (s *Shell) RegisterAdapter(adapter channel.Adapter) {
	s.mux.Register(adapter)
}

// EventBus returns the underlying bus (observable handle for tests).
func (s *Shell) EventBus() *bus.EventBus { return s.bus }

// TaskRegistry returns the underlying task registry (observable handle for tests).
func (s *Shell) TaskRegistry() *task.Registry { return s.tasks }

// ToolRegistry returns the underlying tool registry (observable handle for tests).
func (s *Shell) ToolRegistry() *toolkit.Registry { return s.tools }

// Start subscribes the cognitive loop and shell-internal correlation
// handlers, starts the bus and the channel mux, then emits SYSTEM_STARTED.
// Idempotent: a second call is a no-op.
func (s *Shell) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.loop.Subscribe()
	s.bus.Subscribe(bus.EventTaskCreated, s.correlateSubmit)
	s.bus.Subscribe(bus.EventTaskCompleted, s.onTerminal)
	s.bus.Subscribe(bus.EventTaskFailed, s.onTerminal)
	s.bus.Subscribe(bus.EventTaskCancelled, s.onTerminal)

	if err := s.bus.Start(ctx); err != nil {
		return err
	}
	if s.mux != nil {
		if err := s.mux.Start(ctx); err != nil {
			return err
		}
	}

	s.bus.Emit(bus.New(bus.EventSystemStarted, "", "system", nil))
	return nil
}

// Stop emits SYSTEM_STOPPING, stops adapters, drains and stops the bus.
// Idempotent: a second call is a no-op.
func (s *Shell) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	s.bus.Emit(bus.New(bus.EventSystemStopping, "", "system", nil))

	if s.mux != nil {
		if err := s.mux.Stop(ctx); err != nil {
			s.log.Error("error stopping channel adapters", "error", err)
		}
	}
	s.bus.Stop()
	return nil
}

// Submit synthesizes a MESSAGE_RECEIVED from a synthetic "shell" channel
// and returns the task id allocated for it, resolved by observing the
// subsequent TASK_CREATED event rather than by calling the registry
// directly (the registry's Create is the loop's privilege, not the
// shell's).
func (s *Shell) Submit(text string) (string, error) {
	ev := bus.New(bus.EventMessageReceived, "", "shell", map[string]any{
		"text": text,
		"channel": task.ChannelCoordinate{
			Type:      "shell",
			ChannelID: uuid.NewString(),
		},
	})

	ch := make(chan string, 1)
	s.mu.Lock()
	s.pending[ev.ID] = ch
	s.mu.Unlock()

	s.bus.Emit(ev)

	select {
	case taskID := <-ch:
		return taskID, nil
	case <-time.After(s.submitTimeout):
		s.mu.Lock()
		delete(s.pending, ev.ID)
		s.mu.Unlock()
		return "", fmt.Errorf("agentshell: submit timed out waiting for TASK_CREATED")
	}
}

// correlateSubmit resolves a pending Submit call by matching a TASK_CREATED
// event's ParentEventID against the originating MESSAGE_RECEIVED's id.
func (s *Shell) correlateSubmit(ctx context.Context, e bus.Event) error {
	s.mu.Lock()
	ch, ok := s.pending[e.ParentEventID]
	if ok {
		delete(s.pending, e.ParentEventID)
	}
	s.mu.Unlock()

	if ok {
		ch <- e.TaskID
	}
	return nil
}

// WaitForTask blocks until taskID reaches a terminal state or timeout
// elapses. A FAILED or CANCELLED terminus is reported as an error built
// from the FSM's recorded failure info.
func (s *Shell) WaitForTask(taskID string, timeout time.Duration) (*task.FSM, error) {
	fsm, err := s.tasks.Get(taskID)
	if err != nil {
		return nil, err
	}
	if fsm.State().IsTerminal() {
		return fsm, terminalErr(fsm)
	}

	ch := make(chan *task.FSM, 1)
	s.mu.Lock()
	s.waiters[taskID] = append(s.waiters[taskID], ch)
	s.mu.Unlock()

	select {
	case fsm := <-ch:
		return fsm, terminalErr(fsm)
	case <-time.After(timeout):
		return nil, fmt.Errorf("agentshell: timed out waiting for task %s to reach a terminal state", taskID)
	}
}

// OnTaskComplete registers a one-shot callback invoked asynchronously after
// taskID reaches TASK_COMPLETED. If the task is already completed, cb runs
// immediately in a new goroutine.
func (s *Shell) OnTaskComplete(taskID string, cb func(fsm *task.FSM)) {
	if fsm, err := s.tasks.Get(taskID); err == nil && fsm.State() == task.StateCompleted {
		go cb(fsm)
		return
	}
	s.mu.Lock()
	s.onComplete[taskID] = append(s.onComplete[taskID], cb)
	s.mu.Unlock()
}

// onTerminal fans a TASK_COMPLETED/FAILED/CANCELLED event out to every
// WaitForTask waiter and (for TASK_COMPLETED only) every OnTaskComplete
// callback registered for that task.
func (s *Shell) onTerminal(ctx context.Context, e bus.Event) error {
	fsm, err := s.tasks.Get(e.TaskID)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	chans := s.waiters[e.TaskID]
	delete(s.waiters, e.TaskID)
	var completeCbs []func(*task.FSM)
	if e.Type == bus.EventTaskCompleted {
		completeCbs = s.onComplete[e.TaskID]
		delete(s.onComplete, e.TaskID)
	}
	s.mu.Unlock()

	for _, ch := range chans {
		ch <- fsm
	}
	for _, cb := range completeCbs {
		go cb(fsm)
	}
	return nil
}

func terminalErr(fsm *task.FSM) error {
	switch fsm.State() {
	case task.StateCompleted:
		return nil
	case task.StateCancelled:
		return coreerr.NewTaskFailedError(fsm.ID(), "cancelled", "task was cancelled")
	default:
		kind, message := fsm.FailureInfo()
		return coreerr.NewTaskFailedError(fsm.ID(), kind, message)
	}
}
