package openai

import (
	"testing"

	"github.com/nexus-agent/core/internal/modelregistry"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New("gpt-4o", "", ""); err == nil {
		t.Fatal("expected an error for an empty api key")
	}
}

func TestNew_BuildsHandle(t *testing.T) {
	h, err := New("gpt-4o", "sk-test", "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if h.Provider() != "openai" {
		t.Errorf("Provider() = %q, want openai", h.Provider())
	}
	if h.ModelID() != "gpt-4o" {
		t.Errorf("ModelID() = %q, want gpt-4o", h.ModelID())
	}
}

func TestConvertMessages_PrependsSystemPrompt(t *testing.T) {
	msgs := convertMessages("be helpful", []modelregistry.ChatMessage{
		{Role: "user", Content: "hi"},
	})
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Content != "be helpful" {
		t.Errorf("msgs[0].Content = %q", msgs[0].Content)
	}
	if msgs[1].Content != "hi" {
		t.Errorf("msgs[1].Content = %q", msgs[1].Content)
	}
}

func TestConvertTools_MapsNameDescriptionParameters(t *testing.T) {
	tools, err := convertTools([]modelregistry.ChatTool{
		{Name: "search", Description: "search the web", Parameters: map[string]any{"type": "object"}},
	})
	if err != nil {
		t.Fatalf("convertTools() error = %v", err)
	}
	if len(tools) != 1 || tools[0].Function.Name != "search" {
		t.Fatalf("tools = %+v", tools)
	}
}

func TestFactory_DelegatesToNew(t *testing.T) {
	handle, err := Factory("openai", "gpt-4o", "", modelregistry.ProviderConfig{APIKey: "sk-test"}, nil)
	if err != nil {
		t.Fatalf("Factory() error = %v", err)
	}
	if handle.ModelID() != "gpt-4o" {
		t.Errorf("ModelID() = %q", handle.ModelID())
	}
}
