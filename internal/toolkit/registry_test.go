package toolkit

import (
	"encoding/json"
	"testing"

	"github.com/nexus-agent/core/internal/task"
)

func echoDef(name string) Definition {
	return Definition{
		Name:        name,
		Description: "echoes its input",
		Category:    CategoryBuiltin,
		ParametersSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []any{"text"},
		},
		Execute: func(args map[string]any, ctx *task.Context) task.StepResult {
			return task.StepResult{Success: true, Result: args["text"]}
		},
	}
}

func TestRegistry_RegisterDuplicateFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoDef("echo")); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	err := r.Register(echoDef("echo"))
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	want := `Tool "echo" already registered`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestRegistry_ToLLMTools_UsesPreBakedSchemaVerbatim(t *testing.T) {
	r := NewRegistry()
	raw := json.RawMessage(`{"type":"object","properties":{"x":{"type":"number"}}}`)
	r.Register(Definition{
		Name:                 "prebaked",
		Description:          "d",
		ParametersJSONSchema: raw,
		Execute:              func(args map[string]any, ctx *task.Context) task.StepResult { return task.StepResult{Success: true} },
	})

	tools, err := r.ToLLMTools()
	if err != nil {
		t.Fatalf("ToLLMTools() error = %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("len(tools) = %d, want 1", len(tools))
	}

	var decoded struct {
		Name       string          `json:"name"`
		Parameters json.RawMessage `json:"parameters"`
	}
	if err := json.Unmarshal(tools[0], &decoded); err != nil {
		t.Fatalf("decode tool: %v", err)
	}
	if decoded.Name != "prebaked" {
		t.Errorf("Name = %q, want prebaked", decoded.Name)
	}
	if string(decoded.Parameters) != string(raw) {
		t.Errorf("Parameters = %s, want verbatim %s", decoded.Parameters, raw)
	}
}

func TestRegistry_MCPToolNameIsPrefixed(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterMCPTool("weather-server", "get_forecast", "d",
		json.RawMessage(`{"type":"object"}`),
		func(args map[string]any, ctx *task.Context) task.StepResult { return task.StepResult{Success: true} })
	if err != nil {
		t.Fatalf("RegisterMCPTool() error = %v", err)
	}

	def, ok := r.Get("weather-server__get_forecast")
	if !ok {
		t.Fatal("expected tool registered under the {server}__{tool} name")
	}
	if def.Category != CategoryMCP {
		t.Errorf("Category = %q, want %q", def.Category, CategoryMCP)
	}
}

func TestRegistry_StatsTracksCallsAndRunningMean(t *testing.T) {
	r := NewRegistry()
	r.Register(echoDef("echo"))

	r.updateCallStats("echo", 100, true)
	r.updateCallStats("echo", 200, false)

	stats := r.Stats()
	cs := stats.CallStats["echo"]
	if cs.Count != 2 {
		t.Errorf("Count = %d, want 2", cs.Count)
	}
	if cs.Failures != 1 {
		t.Errorf("Failures = %d, want 1", cs.Failures)
	}
	if cs.AvgDuration != 150 {
		t.Errorf("AvgDuration = %v, want 150", cs.AvgDuration)
	}
	if stats.Total != 1 {
		t.Errorf("Total = %d, want 1", stats.Total)
	}
	if stats.ByCategory[CategoryBuiltin] != 1 {
		t.Errorf("ByCategory[builtin] = %d, want 1", stats.ByCategory[CategoryBuiltin])
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	r.Register(echoDef("echo"))
	r.Unregister("echo")

	if _, ok := r.Get("echo"); ok {
		t.Error("expected tool to be gone after Unregister")
	}
	// Re-registering the same name should now succeed.
	if err := r.Register(echoDef("echo")); err != nil {
		t.Errorf("re-Register() after Unregister() error = %v", err)
	}
}
