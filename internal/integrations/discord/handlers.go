package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/core/session"
	"github.com/mudlet/bugbot/internal/report"
)

// FetchError indicates the requested message history could not be read.
// Its message is safe to show users; the cause stays in the logs.
type FetchError struct {
	err error
}

func (e *FetchError) Error() string { return "could not read the conversation history" }
func (e *FetchError) Unwrap() error { return e.err }

func (b *Bot) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	content := fmt.Sprintf("Pong. Gateway latency %dms.", b.Latency().Milliseconds())
	respondEphemeral(s, i, content)
}

func (b *Bot) handleBug(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.memberAllowed(s, i) {
		respondEphemeral(s, i, "You need one of the configured roles to file bug reports.")
		return
	}

	// The pipeline takes longer than the 3 second interaction window, so
	// acknowledge first and deliver the preview as a followup edit.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		log.Printf("[discord] failed to defer /bug: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conv, err := b.collectConversation(s, i)
	if err != nil {
		log.Printf("[discord] history fetch failed: %v", err)
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			b.editDeferred(s, i, "I could not read that conversation. Check the link and my channel permissions.", nil, nil)
		} else {
			b.editDeferred(s, i, err.Error(), nil, nil)
		}
		return
	}

	preview, err := b.runPipeline(ctx, conv)
	if err != nil {
		log.Printf("[discord] pipeline failed: %v", err)
		b.editDeferred(s, i, "Sorry, I could not extract a bug report from that conversation. You can file one manually on GitHub.", nil, nil)
		return
	}

	timeout := time.Duration(b.cfg.Preview.TimeoutMinutes) * time.Minute
	sess := session.New(interactionUserID(i), i.ChannelID, preview, timeout)
	b.sessions.Put(sess)

	embeds := []*discordgo.MessageEmbed{previewEmbed(preview, b.cfg.GitHub.Repo)}
	b.editDeferred(s, i, "", embeds, previewComponents(sess.ID, false))
}

// historyFetcher is the slice of discordgo.Session used to read channel
// history, split out so conversation collection is testable.
type historyFetcher interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

// collectConversation fetches the message history the command refers to.
func (b *Bot) collectConversation(s historyFetcher, i *discordgo.InteractionCreate) (*pipeline.Conversation, error) {
	count := defaultMessageCount
	var anchor *MessageLink

	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "message_count":
			count = int(opt.IntValue())
		case "message_link":
			link, err := ParseMessageLink(strings.TrimSpace(opt.StringValue()))
			if err != nil {
				return nil, err
			}
			anchor = link
		}
	}
	if count < 1 {
		count = defaultMessageCount
	}
	if count > maxMessageCount {
		count = maxMessageCount
	}

	var msgs []*discordgo.Message
	if anchor != nil {
		// Start at the linked message and read forward.
		first, err := s.ChannelMessage(anchor.ChannelID, anchor.MessageID)
		if err != nil {
			return nil, &FetchError{err: err}
		}
		msgs = append(msgs, first)
		// Asking discordgo for zero messages would drop the limit
		// parameter and fetch Discord's default page instead.
		if count > 1 {
			rest, err := s.ChannelMessages(anchor.ChannelID, count-1, "", anchor.MessageID, "")
			if err != nil {
				return nil, &FetchError{err: err}
			}
			// ChannelMessages returns newest first.
			for j := len(rest) - 1; j >= 0; j-- {
				msgs = append(msgs, rest[j])
			}
		}
	} else {
		recent, err := s.ChannelMessages(i.ChannelID, count, "", "", "")
		if err != nil {
			return nil, &FetchError{err: err}
		}
		for j := len(recent) - 1; j >= 0; j-- {
			msgs = append(msgs, recent[j])
		}
	}

	if len(msgs) == 0 {
		return nil, fmt.Errorf("no messages found")
	}

	conv := &pipeline.Conversation{
		SourceLink: FormatMessageLink(i.GuildID, msgs[0].ChannelID, msgs[0].ID),
	}
	for _, m := range msgs {
		if m.Author != nil && m.Author.Bot {
			continue
		}
		author := "Unknown"
		if m.Author != nil {
			author = m.Author.Username
		}
		conv.Messages = append(conv.Messages, report.Message{
			Author:  author,
			Content: m.Content,
		})
		for _, att := range m.Attachments {
			if strings.HasPrefix(att.ContentType, "image/") {
				conv.Images = append(conv.Images, report.ImageRef{
					URL:       att.URL,
					MediaType: att.ContentType,
				})
			}
		}
	}
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("no user messages in the selected range")
	}
	return conv, nil
}

func (b *Bot) runPipeline(ctx context.Context, conv *pipeline.Conversation) (*pipeline.Preview, error) {
	p, err := b.registry.BuildFromNames(pipeline.DefaultSteps, b.deps)
	if err != nil {
		return nil, err
	}

	pctx := pipeline.NewContext(ctx, conv, b.cfg)
	if err := p.Run(pctx); err != nil {
		return nil, err
	}
	if pctx.Preview == nil {
		return nil, fmt.Errorf("pipeline produced no preview")
	}
	return pctx.Preview, nil
}

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	action, sessionID, ok := strings.Cut(i.MessageComponentData().CustomID, ":")
	if !ok {
		return
	}

	sess := b.sessions.Get(sessionID)
	if sess == nil || sess.State() == session.StateTimedOut {
		updateMessage(s, i, "This preview has expired. Run /bug again to start over.", nil, nil)
		if sess != nil {
			b.sessions.Remove(sessionID)
		}
		return
	}

	if interactionUserID(i) != sess.UserID {
		respondEphemeral(s, i, "Only the person who ran /bug can act on this preview.")
		return
	}

	switch action {
	case "file":
		b.handleFile(s, i, sess)
	case "cancel":
		sess.Cancel()
		b.sessions.Remove(sess.ID)
		updateMessage(s, i, "Bug report cancelled. Nothing was filed.", nil, nil)
	}
}

func (b *Bot) handleFile(s *discordgo.Session, i *discordgo.InteractionCreate, sess *session.Session) {
	switch sess.RequestFile() {
	case session.DecisionNeedsConfirm:
		embeds := []*discordgo.MessageEmbed{previewEmbed(sess.Preview, b.cfg.GitHub.Repo)}
		updateMessage(s, i,
			"A very similar open issue already exists. Press **Confirm File** if you want to file anyway.",
			embeds, previewComponents(sess.ID, true))
		return
	case session.DecisionRejected:
		updateMessage(s, i, "This preview is no longer active. Run /bug again to start over.", nil, nil)
		b.sessions.Remove(sess.ID)
		return
	}

	// Acknowledge before the tracker round trip.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.Printf("[discord] failed to defer filing: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rep := sess.Preview.Report
	ref, err := b.creator.CreateIssue(ctx, rep.Title(), rep.IssueBody(), sess.Preview.Labels)
	if err != nil {
		// A failed filing attempt ends the session. The preview stays
		// visible for reference but all buttons go away.
		log.Printf("[discord] filing failed: %v", err)
		b.sessions.Remove(sess.ID)
		editMessage(s, i, filingFailureMessage(err),
			[]*discordgo.MessageEmbed{previewEmbed(sess.Preview, b.cfg.GitHub.Repo)},
			emptyComponents())
		return
	}

	b.sessions.Remove(sess.ID)
	log.Printf("[discord] filed issue #%d", ref.Number)
	editMessage(s, i, "", []*discordgo.MessageEmbed{filedEmbed(ref)}, emptyComponents())
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("[discord] failed to respond: %v", err)
	}
}

func (b *Bot) editDeferred(s *discordgo.Session, i *discordgo.InteractionCreate, content string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		log.Printf("[discord] failed to edit response: %v", err)
	}
}

// updateMessage replies to a component press by replacing the preview
// message in place.
func updateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	if components == nil {
		components = emptyComponents()
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Embeds:     embeds,
			Components: components,
		},
	})
	if err != nil {
		log.Printf("[discord] failed to update message: %v", err)
	}
}

// editMessage edits the original preview after a deferred update.
func editMessage(s *discordgo.Session, i *discordgo.InteractionCreate, content string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		log.Printf("[discord] failed to edit message: %v", err)
	}
}
