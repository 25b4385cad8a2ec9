// Package modelregistry resolves role/tier configuration into cached,
// credential-aware ModelHandle instances.
package modelregistry

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChatMessage is the minimal message shape a ModelHandle.Generate call
// exchanges with a provider.
type ChatMessage struct {
	Role    string
	Content string
}

// GenerateOptions is the input to ModelHandle.Generate.
type GenerateOptions struct {
	System   string
	Messages []ChatMessage
	Tools    []ChatTool
}

// ChatTool is the LLM wire shape for one callable tool.
type ChatTool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCallResult is one tool invocation the model asked for.
type ToolCallResult struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// GenerateResult is the output of ModelHandle.Generate.
type GenerateResult struct {
	Text      string
	ToolCalls []ToolCallResult
}

// Handle is a cached, resolved model: {provider, modelId, generate}.
type Handle interface {
	Provider() string
	ModelID() string
	Generate(ctx context.Context, opts GenerateOptions) (GenerateResult, error)
}

// Factory builds a concrete Handle for a resolved providerType/modelID,
// given that provider's configuration and any stored credentials.
type Factory func(providerType, modelID, apiType string, cfg ProviderConfig, creds Credentials) (Handle, error)

// ProviderConfig is one entry of config.llm.providers.
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`
	BaseURL string `yaml:"baseURL"`
	Type    string `yaml:"type"` // e.g. "openai", "anthropic"; required when the name doesn't infer one
}

// ModelValue is a role/tier/default entry: either a bare "{provider}/{model}"
// string or the expanded {model, contextWindow?, apiType?} object.
type ModelValue struct {
	Model         string
	ContextWindow int
	APIType       string
}

// UnmarshalYAML accepts either a bare "{provider}/{model}" string or the
// expanded {model, contextWindow?, apiType?} object, per config's llm.default/
// llm.roles/llm.tiers schema.
func (m *ModelValue) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var spec string
		if err := value.Decode(&spec); err != nil {
			return err
		}
		m.Model = spec
		return nil
	}

	var expanded struct {
		Model         string `yaml:"model"`
		ContextWindow int    `yaml:"contextWindow"`
		APIType       string `yaml:"apiType"`
	}
	if err := value.Decode(&expanded); err != nil {
		return err
	}
	m.Model = expanded.Model
	m.ContextWindow = expanded.ContextWindow
	m.APIType = expanded.APIType
	return nil
}

// Credentials is an opaque credential bag stored per provider.
type Credentials map[string]string

// cacheKey identifies a cached Handle by the tuple the spec names:
// (resolvedProviderType, modelName, apiType).
type cacheKey struct {
	providerType string
	modelName    string
	apiType      string
}

// parseModelSpec splits a "{provider}/{model}" string on exactly one '/'.
func parseModelSpec(spec string) (provider, model string, err error) {
	idx := strings.Index(spec, "/")
	if idx < 0 || idx != strings.LastIndex(spec, "/") || idx == 0 || idx == len(spec)-1 {
		return "", "", fmt.Errorf("Invalid model spec %q", spec)
	}
	return spec[:idx], spec[idx+1:], nil
}
