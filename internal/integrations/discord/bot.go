// Package discord runs the chat-side of the bot: slash commands, message
// history fetching, and the interactive filing preview.
package discord

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mudlet/bugbot/internal/core/config"
	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/core/session"
	"github.com/mudlet/bugbot/internal/integrations/github"
)

const (
	// defaultMessageCount is how many recent messages /bug collects when no
	// count is given.
	defaultMessageCount = 20
	// maxMessageCount caps the history fetch.
	maxMessageCount = 100
)

// IssueCreator files a report on the tracker.
type IssueCreator interface {
	CreateIssue(ctx context.Context, title, body string, labels []string) (*github.IssueRef, error)
}

// Bot wires the gateway connection to the filing pipeline.
type Bot struct {
	session  *discordgo.Session
	cfg      *config.Config
	registry *pipeline.Registry
	deps     *pipeline.Dependencies
	creator  IssueCreator
	sessions *session.Store

	registered []*discordgo.ApplicationCommand
}

// New creates a bot. Call Start to connect.
func New(cfg *config.Config, registry *pipeline.Registry, deps *pipeline.Dependencies, creator IssueCreator, sessions *session.Store) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	b := &Bot{
		session:  s,
		cfg:      cfg,
		registry: registry,
		deps:     deps,
		creator:  creator,
		sessions: sessions,
	}

	s.AddHandler(b.onReady)
	s.AddHandler(b.onInteraction)
	return b, nil
}

// Start opens the gateway connection and registers the slash commands.
// Commands are registered per guild when a test guild is configured, which
// makes them available immediately instead of after the global sync delay.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	cmds, err := b.session.ApplicationCommandBulkOverwrite(
		b.session.State.User.ID, b.cfg.Discord.TestGuildID, commandDefinitions())
	if err != nil {
		b.session.Close()
		return fmt.Errorf("failed to register commands: %w", err)
	}
	b.registered = cmds

	log.Printf("[discord] connected as %s, %d commands registered",
		b.session.State.User.Username, len(cmds))
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

// Healthy reports whether the gateway connection is ready.
func (b *Bot) Healthy() bool {
	return b.session != nil && b.session.DataReady
}

// Latency returns the last heartbeat round trip.
func (b *Bot) Latency() time.Duration {
	return b.session.HeartbeatLatency()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[discord] gateway ready, session %s", r.SessionID)
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		switch i.ApplicationCommandData().Name {
		case "bug":
			b.handleBug(s, i)
		case "ping":
			b.handlePing(s, i)
		}
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "bug",
			Description: "Turn recent channel messages into a Mudlet bug report",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "message_count",
					Description: fmt.Sprintf("How many recent messages to read (default %d, max %d)", defaultMessageCount, maxMessageCount),
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message_link",
					Description: "Link to the first message of the conversation",
					Required:    false,
				},
			},
		},
		{
			Name:        "ping",
			Description: "Check that the bot is alive",
		},
	}
}
