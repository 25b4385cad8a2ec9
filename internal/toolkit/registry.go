// Package toolkit implements the ToolRegistry and ToolExecutor: tool
// registration, LLM wire-shape conversion, call statistics, JSON-schema
// argument validation, timeout-bounded execution, and MCP name wrapping.
package toolkit

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nexus-agent/core/internal/task"
)

// Category classifies a tool for reporting; MCP-imported tools always use
// CategoryMCP.
type Category string

const (
	CategoryBuiltin Category = "builtin"
	CategoryMCP     Category = "mcp"
)

// Executable is the side-effecting body of a tool: given its validated
// arguments and the owning task's context, produce a StepResult.
type Executable func(args map[string]any, ctx *task.Context) task.StepResult

// Definition is a registered tool: {name, description, category,
// parametersSchema, parametersJsonSchema?, execute}.
type Definition struct {
	Name        string
	Description string
	Category    Category

	// ParametersSchema is a structured (Go-native) schema description;
	// ParametersJSONSchema, when non-nil, is a pre-baked JSON Schema
	// document that bypasses conversion of ParametersSchema entirely.
	ParametersSchema     map[string]any
	ParametersJSONSchema json.RawMessage

	Execute Executable
}

// llmTool is the wire shape sent to a model: {name, description, parameters}.
type llmTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// callStat is the running per-tool execution statistic.
type callStat struct {
	Count       int
	Failures    int
	avgDuration float64 // milliseconds
}

// Stats is the Registry-wide snapshot returned by Registry.Stats.
type Stats struct {
	Total      int
	ByCategory map[Category]int
	CallStats  map[string]CallStat
}

// CallStat is the public, read-only view of a tool's running statistics.
type CallStat struct {
	Count       int
	Failures    int
	AvgDuration float64
}

// Registry owns the set of registered tools by unique name.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*Definition
	order     []string // registration order, for deterministic listing
	callStats map[string]*callStat
	compiled  map[string]*jsonschema.Schema
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]*Definition),
		callStats: make(map[string]*callStat),
		compiled:  make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool under its unique name. Duplicate registration fails
// with "Tool "{name}" already registered".
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("Tool %q already registered", def.Name)
	}

	r.tools[def.Name] = &def
	r.order = append(r.order, def.Name)
	r.callStats[def.Name] = &callStat{}
	return nil
}

// Unregister removes a tool by name; a no-op if it was never registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.callStats, name)
	delete(r.compiled, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get looks up a tool definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// RegisterMCPTool wraps a tool discovered from an MCP server with the
// synthesized name {serverName}__{toolName}, category MCP, and the
// server's JSON Schema taken verbatim (never converted). The prefix
// prevents collisions across servers and with builtin tools.
func (r *Registry) RegisterMCPTool(serverName, toolName, description string, parametersJSONSchema json.RawMessage, exec Executable) error {
	return r.Register(Definition{
		Name:                 fmt.Sprintf("%s__%s", serverName, toolName),
		Description:          description,
		Category:             CategoryMCP,
		ParametersJSONSchema: parametersJSONSchema,
		Execute:              exec,
	})
}

// ToLLMTools converts every registered tool to the wire shape sent to a
// model: parameters uses ParametersJSONSchema verbatim when present,
// otherwise it is derived from ParametersSchema.
func (r *Registry) ToLLMTools() ([]json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]json.RawMessage, 0, len(r.order))
	for _, name := range r.order {
		def := r.tools[name]

		var params json.RawMessage
		if len(def.ParametersJSONSchema) > 0 {
			params = def.ParametersJSONSchema
		} else {
			converted, err := json.Marshal(toJSONSchema(def.ParametersSchema))
			if err != nil {
				return nil, fmt.Errorf("convert schema for tool %q: %w", def.Name, err)
			}
			params = converted
		}

		encoded, err := json.Marshal(llmTool{Name: def.Name, Description: def.Description, Parameters: params})
		if err != nil {
			return nil, fmt.Errorf("encode tool %q: %w", def.Name, err)
		}
		out = append(out, encoded)
	}
	return out, nil
}

// toJSONSchema derives a JSON Schema object from a structured
// parametersSchema; an absent schema becomes the empty-object schema.
func toJSONSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return schema
}

// Stats returns a snapshot of registration and call counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byCategory := make(map[Category]int)
	for _, def := range r.tools {
		byCategory[def.Category]++
	}

	callStats := make(map[string]CallStat, len(r.callStats))
	for name, s := range r.callStats {
		callStats[name] = CallStat{Count: s.Count, Failures: s.Failures, AvgDuration: s.avgDuration}
	}

	return Stats{
		Total:      len(r.tools),
		ByCategory: byCategory,
		CallStats:  callStats,
	}
}

// updateCallStats records one execution's outcome, computing a running
// mean duration in milliseconds.
func (r *Registry) updateCallStats(name string, durationMs int64, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.callStats[name]
	if !ok {
		s = &callStat{}
		r.callStats[name] = s
	}
	s.avgDuration = (s.avgDuration*float64(s.Count) + float64(durationMs)) / float64(s.Count+1)
	s.Count++
	if !success {
		s.Failures++
	}
}

// schemaFor returns a compiled jsonschema.Schema for def's parameters,
// compiling and caching it on first use (mirroring the teacher's
// pkg/pluginsdk compileSchema cache).
func (r *Registry) schemaFor(def *Definition) (*jsonschema.Schema, error) {
	r.mu.Lock()
	if compiled, ok := r.compiled[def.Name]; ok {
		r.mu.Unlock()
		return compiled, nil
	}
	r.mu.Unlock()

	raw := def.ParametersJSONSchema
	if len(raw) == 0 {
		encoded, err := json.Marshal(toJSONSchema(def.ParametersSchema))
		if err != nil {
			return nil, err
		}
		raw = encoded
	}

	compiled, err := jsonschema.CompileString(def.Name+".schema.json", string(raw))
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.compiled[def.Name] = compiled
	r.mu.Unlock()
	return compiled, nil
}
