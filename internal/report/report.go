// Package report defines the structured bug report extracted from a
// conversation and its rendering into the tracker's issue template.
package report

import (
	"fmt"
	"strings"
)

// Message is a single conversation message.
type Message struct {
	Author  string
	Content string
}

// ImageRef points at an image attached to the conversation.
type ImageRef struct {
	URL       string
	MediaType string
}

// BugReport is the structured extraction result. It is immutable once
// produced; labels and duplicate candidates are attached externally.
type BugReport struct {
	Summary     string
	Steps       []string
	ErrorOutput string
	ExtraInfo   string

	// Confidence is the extractor's self-assessment: "high", "medium" or "low".
	Confidence string

	// MissingInfo notes what would improve the report, empty if complete.
	MissingInfo string

	// SourceLink is a permalink to the originating conversation.
	SourceLink string

	// RawConversation is the verbatim transcript, retained for audit.
	RawConversation string
}

const maxTitleLen = 80

// Title derives the issue title from the summary, truncated to 80 runes.
func (r *BugReport) Title() string {
	title := strings.TrimSpace(r.Summary)
	runes := []rune(title)
	if len(runes) <= maxTitleLen {
		return title
	}
	return string(runes[:maxTitleLen-3]) + "..."
}

// IssueBody renders the report into the Mudlet issue template: four headed
// sections followed by a provenance footer. Empty sections render as N/A.
func (r *BugReport) IssueBody() string {
	steps := "N/A"
	if len(r.Steps) > 0 {
		var lines []string
		for i, step := range r.Steps {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, step))
		}
		steps = strings.Join(lines, "\n")
	}

	errOut := strings.TrimSpace(r.ErrorOutput)
	if errOut == "" {
		errOut = "N/A"
	}

	extra := r.ExtraInfo
	if strings.TrimSpace(extra) == "" {
		extra = "N/A"
	}

	return fmt.Sprintf(`#### Brief summary of issue:
%s

#### Steps to reproduce the issue:
%s

#### Error output
%s

#### Extra information, such as the Mudlet version, operating system and ideas for how to solve:
%s

---
*Auto-generated from Discord by mudlet-bug-bot • [Original conversation](%s)*`,
		r.Summary, steps, errOut, extra, r.SourceLink)
}

// FormatConversation flattens messages into "author: content" lines.
// Messages with empty content are skipped.
func FormatConversation(messages []Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		author := msg.Author
		if author == "" {
			author = "Unknown"
		}
		fmt.Fprintf(&sb, "%s: %s\n", author, msg.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}
