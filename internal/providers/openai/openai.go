// Package openai implements modelregistry.Handle against OpenAI's Chat
// Completions API, for wiring into modelregistry.Registry's provider
// type "openai" via a Factory.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nexus-agent/core/internal/modelregistry"
)

// Handle implements modelregistry.Handle backed by a real OpenAI client.
type Handle struct {
	client  *openai.Client
	modelID string
}

// New builds a Handle for modelID using apiKey and an optional baseURL
// override, matching the teacher's NewOpenAIProvider constructor shape.
func New(modelID, apiKey, baseURL string) (*Handle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Handle{client: openai.NewClientWithConfig(cfg), modelID: modelID}, nil
}

// Factory adapts New to modelregistry.Factory's call shape.
func Factory(providerType, modelID, apiType string, cfg modelregistry.ProviderConfig, creds modelregistry.Credentials) (modelregistry.Handle, error) {
	return New(modelID, cfg.APIKey, cfg.BaseURL)
}

// Provider returns "openai".
func (h *Handle) Provider() string { return "openai" }

// ModelID returns the resolved model name.
func (h *Handle) ModelID() string { return h.modelID }

// Generate issues a single (non-streaming) CreateChatCompletion call.
func (h *Handle) Generate(ctx context.Context, opts modelregistry.GenerateOptions) (modelregistry.GenerateResult, error) {
	messages := convertMessages(opts.System, opts.Messages)

	req := openai.ChatCompletionRequest{
		Model:    h.modelID,
		Messages: messages,
	}
	if len(opts.Tools) > 0 {
		tools, err := convertTools(opts.Tools)
		if err != nil {
			return modelregistry.GenerateResult{}, fmt.Errorf("openai: failed to convert tools: %w", err)
		}
		req.Tools = tools
	}

	resp, err := h.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return modelregistry.GenerateResult{}, fmt.Errorf("openai: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return modelregistry.GenerateResult{}, fmt.Errorf("openai: empty response")
	}

	return convertResult(resp.Choices[0].Message), nil
}

func convertMessages(system string, messages []modelregistry.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func convertTools(tools []modelregistry.ChatTool) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out, nil
}

func convertResult(msg openai.ChatCompletionMessage) modelregistry.GenerateResult {
	result := modelregistry.GenerateResult{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		result.ToolCalls = append(result.ToolCalls, modelregistry.ToolCallResult{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return result
}
