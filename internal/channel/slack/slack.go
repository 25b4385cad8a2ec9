// Package slack implements channel.FullAdapter over slack-go/slack's
// Socket Mode client.
package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/nexus-agent/core/internal/channel"
	"github.com/nexus-agent/core/internal/task"
)

// Type is the channel.type this adapter reports.
const Type = "slack"

// Adapter is a channel.FullAdapter backed by a Slack Socket Mode client.
type Adapter struct {
	botToken string
	appToken string

	client       *slack.Client
	socketClient *socketmode.Client
	cancel       context.CancelFunc
	messages     chan channel.Inbound
}

// New builds an Adapter for the given bot and app-level tokens, matching
// the teacher's slack.New + socketmode.New construction shape.
func New(botToken, appToken string) *Adapter {
	client := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	return &Adapter{
		botToken:     botToken,
		appToken:     appToken,
		client:       client,
		socketClient: socketmode.New(client),
		messages:     make(chan channel.Inbound, 64),
	}
}

// Type returns "slack".
func (a *Adapter) Type() string { return Type }

// Start launches the Socket Mode event loop in a background goroutine.
func (a *Adapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go a.handleEvents(runCtx)
	go func() {
		if err := a.socketClient.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			_ = err // connection loss after Start is surfaced only via the events loop ending
		}
	}()
	return nil
}

// Stop cancels the Socket Mode event loop.
func (a *Adapter) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}

// Messages returns the channel of inbound messages observed from Slack.
func (a *Adapter) Messages() <-chan channel.Inbound { return a.messages }

// Deliver posts out.Text to the Slack channel encoded in
// out.Channel.ChannelID.
func (a *Adapter) Deliver(ctx context.Context, out channel.Outbound) error {
	_, _, err := a.client.PostMessageContext(ctx, out.Channel.ChannelID, slack.MsgOptionText(out.Text, false))
	if err != nil {
		return fmt.Errorf("slack: send failed: %w", err)
	}
	return nil
}

func (a *Adapter) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.socketClient.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			eventsAPI, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			a.socketClient.Ack(*evt.Request)
			a.handleEventsAPI(eventsAPI)
		}
	}
}

func (a *Adapter) handleEventsAPI(event slackevents.EventsAPIEvent) {
	inner, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	if inner.BotID != "" {
		return
	}

	a.messages <- channel.Inbound{
		Text: inner.Text,
		Channel: task.ChannelCoordinate{
			Type:      Type,
			ChannelID: inner.Channel,
			UserID:    inner.User,
			ReplyTo:   inner.TimeStamp,
		},
	}
}
