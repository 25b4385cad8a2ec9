// Package telegram implements channel.FullAdapter over go-telegram/bot's
// long-polling client.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/nexus-agent/core/internal/channel"
	"github.com/nexus-agent/core/internal/task"
)

// Type is the channel.type this adapter reports.
const Type = "telegram"

// Adapter is a channel.FullAdapter backed by a go-telegram/bot client.
type Adapter struct {
	token    string
	bot      *bot.Bot
	cancel   context.CancelFunc
	messages chan channel.Inbound
}

// New builds an Adapter for the given bot token.
func New(token string) *Adapter {
	return &Adapter{
		token:    token,
		messages: make(chan channel.Inbound, 64),
	}
}

// Type returns "telegram".
func (a *Adapter) Type() string { return Type }

// Start constructs the bot client with a default update handler and
// begins long-polling in a background goroutine.
func (a *Adapter) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	b, err := bot.New(a.token, bot.WithDefaultHandler(a.handleUpdate))
	if err != nil {
		cancel()
		return fmt.Errorf("telegram: failed to create bot: %w", err)
	}
	a.bot = b

	go b.Start(runCtx)
	return nil
}

// Stop cancels the long-polling loop.
func (a *Adapter) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	return nil
}

// Messages returns the channel of inbound messages observed from Telegram.
func (a *Adapter) Messages() <-chan channel.Inbound { return a.messages }

// Deliver sends out.Text to the chat id encoded in out.Channel.ChannelID.
func (a *Adapter) Deliver(ctx context.Context, out channel.Outbound) error {
	if a.bot == nil {
		return fmt.Errorf("telegram: bot not started")
	}
	chatID, err := strconv.ParseInt(out.Channel.ChannelID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q: %w", out.Channel.ChannelID, err)
	}
	_, err = a.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: out.Text})
	if err != nil {
		return fmt.Errorf("telegram: send failed: %w", err)
	}
	return nil
}

func (a *Adapter) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message

	a.messages <- channel.Inbound{
		Text: msg.Text,
		Channel: task.ChannelCoordinate{
			Type:      Type,
			ChannelID: strconv.FormatInt(msg.Chat.ID, 10),
			UserID:    userID(msg),
			ReplyTo:   strconv.Itoa(msg.ID),
		},
	}
}

func userID(msg *models.Message) string {
	if msg.From == nil {
		return ""
	}
	return strconv.FormatInt(msg.From.ID, 10)
}
