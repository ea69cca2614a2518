package discord

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mudlet/bugbot/internal/core/pipeline"
	"github.com/mudlet/bugbot/internal/integrations/github"
)

const (
	colorPreview = 0x3498db
	colorFiled   = 0x2ecc71
	colorWarning = 0xe67e22
)

// fieldLimit keeps embed fields inside Discord's 1024 character cap.
const fieldLimit = 1000

func truncateField(s string) string {
	runes := []rune(s)
	if len(runes) <= fieldLimit {
		return s
	}
	return string(runes[:fieldLimit-3]) + "..."
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

// previewEmbed renders the extracted report for review.
func previewEmbed(p *pipeline.Preview, repo string) *discordgo.MessageEmbed {
	rep := p.Report
	embed := &discordgo.MessageEmbed{
		Title:       rep.Title(),
		Description: fmt.Sprintf("Review the report below. Filing creates an issue in **%s**.", repo),
		Color:       colorPreview,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Brief summary", Value: truncateField(orNA(rep.Summary))},
			{Name: "Steps to reproduce", Value: truncateField(orNA(strings.Join(rep.Steps, "\n")))},
			{Name: "Error output", Value: truncateField(orNA(rep.ErrorOutput))},
			{Name: "Extra information", Value: truncateField(orNA(rep.ExtraInfo))},
		},
	}

	if len(p.Labels) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Labels",
			Value: strings.Join(p.Labels, ", "),
		})
	}

	if len(p.Candidates) > 0 {
		var lines []string
		for _, c := range p.Candidates {
			marker := ""
			if c.HighConfidence {
				marker = " ⚠️"
			}
			lines = append(lines, fmt.Sprintf("[#%d](%s) %s (%s, %.0f%%)%s",
				c.Number, c.URL, c.Title, c.State, c.Score*100, marker))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Possible duplicates",
			Value: truncateField(strings.Join(lines, "\n")),
		})
	}

	var notes []string
	if rep.Confidence != "" {
		notes = append(notes, "Extraction confidence: "+rep.Confidence)
	}
	if p.RequiresConfirmation {
		embed.Color = colorWarning
		notes = append(notes, "An open issue looks very similar. Filing will ask for confirmation.")
	} else if rep.MissingInfo != "" {
		notes = append(notes, "Missing info: "+rep.MissingInfo)
	}
	if len(notes) > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: strings.Join(notes, " • ")}
	}

	return embed
}

// previewComponents builds the File/Cancel button row. When confirming, the
// file button restyles to a red "Confirm File".
func previewComponents(sessionID string, confirming bool) []discordgo.MessageComponent {
	fileLabel := "File Report"
	fileStyle := discordgo.SuccessButton
	if confirming {
		fileLabel = "Confirm File"
		fileStyle = discordgo.DangerButton
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    fileLabel,
					Style:    fileStyle,
					CustomID: "file:" + sessionID,
				},
				discordgo.Button{
					Label:    "Cancel",
					Style:    discordgo.SecondaryButton,
					CustomID: "cancel:" + sessionID,
				},
			},
		},
	}
}

// emptyComponents clears the button row from a finished preview.
func emptyComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{}
}

// filingFailureMessage maps tracker errors onto user-safe text. Raw API
// payloads never reach the channel.
func filingFailureMessage(err error) string {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Sprintf("Filing failed: the tracker is rate limiting us. Run /bug again in %s.",
			rateErr.RetryAfter.Round(time.Second))
	}
	var authErr *github.AuthError
	if errors.As(err, &authErr) {
		return "Filing failed: the bot's tracker credentials were rejected. An admin needs to look at this."
	}
	var valErr *github.ValidationError
	if errors.As(err, &valErr) {
		return "Filing failed: the tracker rejected the issue content. Run /bug again to start over."
	}
	return "Filing failed. Nothing was created. Run /bug again to start over."
}

// filedEmbed announces a successfully created issue.
func filedEmbed(ref *github.IssueRef) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Filed issue #%d", ref.Number),
		Description: ref.URL,
		Color:       colorFiled,
	}
}
