package discord

import (
	"fmt"
	"regexp"
)

// messageLinkPattern matches Discord message permalinks, including the ptb
// and canary frontends and the legacy discordapp.com host.
var messageLinkPattern = regexp.MustCompile(`^https://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/channels/(\d+)/(\d+)/(\d+)$`)

// MessageLink identifies a single message.
type MessageLink struct {
	GuildID   string
	ChannelID string
	MessageID string
}

// ParseMessageLink extracts the IDs from a message permalink.
func ParseMessageLink(link string) (*MessageLink, error) {
	m := messageLinkPattern.FindStringSubmatch(link)
	if m == nil {
		return nil, fmt.Errorf("not a message link: %q", link)
	}
	return &MessageLink{GuildID: m[1], ChannelID: m[2], MessageID: m[3]}, nil
}

// FormatMessageLink builds the permalink for a message.
func FormatMessageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
