package channel

import (
	"context"
	"time"

	"github.com/nexus-agent/core/internal/task"
)

// replyToolName is the single tool name the mux intercepts; every other
// name is delegated to the wrapped ToolCaller unchanged.
const replyToolName = "reply"

// Execute implements ToolCaller (and so also cognition.ToolCaller): a call
// to "reply" is routed as an Outbound delivery to the adapter matching the
// originating task's channel type instead of reaching the tool registry.
func (m *Mux) Execute(ctx context.Context, toolCallID, name string, args map[string]any, tc *task.Context) task.StepResult {
	if name != replyToolName {
		return m.inner.Execute(ctx, toolCallID, name, args, tc)
	}
	return m.deliverReply(ctx, tc, args)
}

func (m *Mux) deliverReply(ctx context.Context, tc *task.Context, args map[string]any) task.StepResult {
	started := time.Now()
	text, _ := args["text"].(string)
	channelID, _ := args["channelId"].(string)

	out := Outbound{
		Text: text,
		Channel: task.ChannelCoordinate{
			Type:      tc.Channel.Type,
			ChannelID: channelID,
			ReplyTo:   tc.Channel.ReplyTo,
		},
	}

	if m.onReply != nil {
		m.onReply(out)
	}

	adapter, ok := m.outbound[tc.Channel.Type]
	if !ok {
		m.log.Warn("unknown channel type", "type", tc.Channel.Type)
		return completedResult(started, "dropped: unknown channel type")
	}

	if err := adapter.Deliver(ctx, out); err != nil {
		m.log.Error("reply delivery failed", "type", tc.Channel.Type, "error", err)
		return completedResult(started, "delivery failed: "+err.Error())
	}
	return completedResult(started, "delivered")
}

func completedResult(started time.Time, result string) task.StepResult {
	now := time.Now()
	return task.StepResult{
		ActionType:  task.ActionToolCall,
		Success:     true,
		Result:      result,
		StartedAt:   started,
		CompletedAt: &now,
	}
}
