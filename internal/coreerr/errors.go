// Package coreerr defines the typed error taxonomy shared by the agent core:
// config, LLM, tool, task, and memory failures each carry enough structure
// for callers to branch on without string matching.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for branching and logging.
type Kind string

const (
	KindConfig Kind = "config"
	KindLLM    Kind = "llm"
	KindTool   Kind = "tool"
	KindTask   Kind = "task"
	KindMemory Kind = "memory"
)

// Error is the common structured error shape used across the core.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "ModelRegistry.Get"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Op != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

// ConfigError reports a settings load/validation failure.
func ConfigError(op, msg string, cause error) *Error { return newErr(KindConfig, op, msg, cause) }

// LLMErrorType further classifies an LLM failure.
type LLMErrorType string

const (
	LLMErrorGeneric   LLMErrorType = "generic"
	LLMErrorRateLimit LLMErrorType = "rate_limit"
	LLMErrorTimeout   LLMErrorType = "timeout"
)

// LLMErr is a model-call failure, optionally specialized as rate-limit or timeout.
type LLMErr struct {
	*Error
	Type     LLMErrorType
	Provider string
	Model    string
}

func (e *LLMErr) Unwrap() error { return e.Error }

// NewLLMError builds a generic LLM error.
func NewLLMError(provider, model, msg string, cause error) *LLMErr {
	return &LLMErr{
		Error:    newErr(KindLLM, "llm.generate", msg, cause),
		Type:     LLMErrorGeneric,
		Provider: provider,
		Model:    model,
	}
}

// NewLLMRateLimitError builds an LLMRateLimitError per §7.
func NewLLMRateLimitError(provider, model, msg string, cause error) *LLMErr {
	e := NewLLMError(provider, model, msg, cause)
	e.Type = LLMErrorRateLimit
	return e
}

// NewLLMTimeoutError builds an LLMTimeoutError per §7.
func NewLLMTimeoutError(provider, model, msg string, cause error) *LLMErr {
	e := NewLLMError(provider, model, msg, cause)
	e.Type = LLMErrorTimeout
	return e
}

// IsRateLimit reports whether err is (or wraps) an LLMRateLimitError.
func IsRateLimit(err error) bool {
	var llmErr *LLMErr
	return errors.As(err, &llmErr) && llmErr.Type == LLMErrorRateLimit
}

// IsTimeout reports whether err is (or wraps) an LLMTimeoutError.
func IsTimeout(err error) bool {
	var llmErr *LLMErr
	return errors.As(err, &llmErr) && llmErr.Type == LLMErrorTimeout
}

// ToolErr reports a tool execution failure (§4.4, §7).
type ToolErr struct {
	*Error
	ToolName   string
	ToolCallID string
}

// NewToolError builds a ToolError for the named tool.
func NewToolError(toolName, toolCallID, msg string, cause error) *ToolErr {
	return &ToolErr{
		Error:      newErr(KindTool, "tool.execute", msg, cause),
		ToolName:   toolName,
		ToolCallID: toolCallID,
	}
}

func (e *ToolErr) Unwrap() error { return e.Error }

// TaskErrorType distinguishes the task-level failure modes named in §7.
type TaskErrorType string

const (
	TaskErrorGeneric              TaskErrorType = "generic"
	TaskErrorInvalidTransition    TaskErrorType = "invalid_state_transition"
	TaskErrorNotFound             TaskErrorType = "not_found"
	TaskErrorMaxActiveTasks       TaskErrorType = "max_active_tasks"
)

// TaskErr reports an FSM or registry failure.
type TaskErr struct {
	*Error
	Type   TaskErrorType
	TaskID string
	From   string
	To     string
}

func (e *TaskErr) Unwrap() error { return e.Error }

// NewInvalidStateTransition builds the InvalidStateTransition fatal from §4.2/§7.
func NewInvalidStateTransition(taskID, from, to string) *TaskErr {
	return &TaskErr{
		Error:  newErr(KindTask, "fsm.transition", fmt.Sprintf("illegal transition %s -> %s", from, to), nil),
		Type:   TaskErrorInvalidTransition,
		TaskID: taskID,
		From:   from,
		To:     to,
	}
}

// NewTaskNotFoundError builds a TaskNotFoundError.
func NewTaskNotFoundError(taskID string) *TaskErr {
	return &TaskErr{
		Error:  newErr(KindTask, "registry.get", fmt.Sprintf("task %q not found", taskID), nil),
		Type:   TaskErrorNotFound,
		TaskID: taskID,
	}
}

// NewMaxActiveTasksError builds the error used when the registry rejects
// intake beyond agent.maxActiveTasks.
func NewMaxActiveTasksError(limit int) *TaskErr {
	return &TaskErr{
		Error: newErr(KindTask, "registry.create", fmt.Sprintf("max active tasks (%d) exceeded", limit), nil),
		Type:  TaskErrorMaxActiveTasks,
	}
}

// NewTaskFailedError wraps a task's recorded terminal failure (kind,
// message) for callers observing the task from outside the dispatcher,
// e.g. Shell.WaitForTask rejecting with the same content as TASK_FAILED.
func NewTaskFailedError(taskID, kind, message string) *TaskErr {
	return &TaskErr{
		Error:  newErr(KindTask, "fsm.terminal", message, nil),
		Type:   TaskErrorGeneric,
		TaskID: taskID,
		From:   kind,
	}
}

// MemoryError reports a non-fatal memory subsystem failure (§7).
func MemoryError(op, msg string, cause error) *Error { return newErr(KindMemory, op, msg, cause) }

// As is a thin re-export of errors.As for callers that only import coreerr.
func As(err error, target any) bool { return errors.As(err, target) }

// Is is a thin re-export of errors.Is for callers that only import coreerr.
func Is(err, target error) bool { return errors.Is(err, target) }
