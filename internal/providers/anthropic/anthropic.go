// Package anthropic implements modelregistry.Handle against Anthropic's
// Messages API, for wiring into modelregistry.Registry's provider type
// "anthropic" via a Factory.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexus-agent/core/internal/modelregistry"
)

const defaultMaxTokens = 4096

// Handle implements modelregistry.Handle backed by a real Anthropic
// client.
type Handle struct {
	client  anthropic.Client
	modelID string
}

// New builds a Handle for modelID using apiKey and an optional baseURL
// override. Matches the constructor shape of the teacher's
// NewAnthropicProvider (APIKey + option-based client construction).
func New(modelID, apiKey, baseURL string) (*Handle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Handle{client: anthropic.NewClient(opts...), modelID: modelID}, nil
}

// Factory adapts New to modelregistry.Factory's call shape, used when
// registering this package with a modelregistry.Registry.
func Factory(providerType, modelID, apiType string, cfg modelregistry.ProviderConfig, creds modelregistry.Credentials) (modelregistry.Handle, error) {
	return New(modelID, cfg.APIKey, cfg.BaseURL)
}

// Provider returns "anthropic".
func (h *Handle) Provider() string { return "anthropic" }

// ModelID returns the resolved model name.
func (h *Handle) ModelID() string { return h.modelID }

// Generate issues a single (non-streaming) Messages.New call, converting
// opts into Anthropic's wire shapes and the result back into
// modelregistry.GenerateResult.
func (h *Handle) Generate(ctx context.Context, opts modelregistry.GenerateOptions) (modelregistry.GenerateResult, error) {
	messages, err := convertMessages(opts.Messages)
	if err != nil {
		return modelregistry.GenerateResult{}, fmt.Errorf("anthropic: failed to convert messages: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(h.modelID),
		Messages:  messages,
		MaxTokens: defaultMaxTokens,
	}
	if opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: opts.System}}
	}
	if len(opts.Tools) > 0 {
		tools, err := convertTools(opts.Tools)
		if err != nil {
			return modelregistry.GenerateResult{}, fmt.Errorf("anthropic: failed to convert tools: %w", err)
		}
		params.Tools = tools
	}

	msg, err := h.client.Messages.New(ctx, params)
	if err != nil {
		return modelregistry.GenerateResult{}, fmt.Errorf("anthropic: generate: %w", err)
	}

	return convertResult(msg), nil
}

func convertMessages(messages []modelregistry.ChatMessage) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			return nil, fmt.Errorf("unsupported role %q", m.Role)
		}
	}
	return out, nil
}

func convertTools(tools []modelregistry.ChatTool) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, err
		}
		var inputSchema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(schema, &inputSchema); err != nil {
			return nil, err
		}
		out = append(out, anthropic.ToolUnionParamOfTool(inputSchema, t.Name))
	}
	return out, nil
}

func convertResult(msg *anthropic.Message) modelregistry.GenerateResult {
	var result modelregistry.GenerateResult
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			result.Text += variant.Text
		case anthropic.ToolUseBlock:
			var args map[string]any
			_ = json.Unmarshal(variant.Input, &args)
			result.ToolCalls = append(result.ToolCalls, modelregistry.ToolCallResult{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: args,
			})
		}
	}
	return result
}
