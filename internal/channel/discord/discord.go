// Package discord implements channel.FullAdapter over a real Discord bot
// connection, demonstrating the wire shape ChannelMux routes against.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/nexus-agent/core/internal/channel"
	"github.com/nexus-agent/core/internal/task"
)

// Type is the channel.type this adapter reports and that ChannelMux
// routes "reply" tool calls against.
const Type = "discord"

// Adapter is a channel.FullAdapter backed by a discordgo.Session.
type Adapter struct {
	token    string
	session  *discordgo.Session
	messages chan channel.Inbound
}

// New builds an Adapter for the given bot token. The session is opened
// on Start, not here, matching the teacher's NewAdapter/Start split.
func New(token string) *Adapter {
	return &Adapter{
		token:    token,
		messages: make(chan channel.Inbound, 64),
	}
}

// Type returns "discord".
func (a *Adapter) Type() string { return Type }

// Start opens the Discord session and registers the message handler.
func (a *Adapter) Start(ctx context.Context) error {
	session, err := discordgo.New("Bot " + a.token)
	if err != nil {
		return fmt.Errorf("discord: failed to create session: %w", err)
	}
	session.AddHandler(a.handleMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: failed to open session: %w", err)
	}
	a.session = session
	return nil
}

// Stop closes the Discord session.
func (a *Adapter) Stop(ctx context.Context) error {
	if a.session == nil {
		return nil
	}
	return a.session.Close()
}

// Messages returns the channel of inbound messages observed from Discord.
func (a *Adapter) Messages() <-chan channel.Inbound { return a.messages }

// Deliver sends out.Text to out.Channel.ChannelID as a Discord message.
func (a *Adapter) Deliver(ctx context.Context, out channel.Outbound) error {
	if a.session == nil {
		return fmt.Errorf("discord: session not started")
	}
	_, err := a.session.ChannelMessageSend(out.Channel.ChannelID, out.Text)
	if err != nil {
		return fmt.Errorf("discord: send failed: %w", err)
	}
	return nil
}

func (a *Adapter) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author != nil && m.Author.Bot {
		return
	}
	a.messages <- channel.Inbound{
		Text: m.Content,
		Channel: task.ChannelCoordinate{
			Type:      Type,
			ChannelID: m.ChannelID,
			UserID:    authorID(m),
			ReplyTo:   m.ID,
		},
		Metadata: map[string]any{
			"guildId": m.GuildID,
		},
	}
}

func authorID(m *discordgo.MessageCreate) string {
	if m.Author == nil {
		return ""
	}
	return m.Author.ID
}
