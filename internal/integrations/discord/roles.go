package discord

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

// memberAllowed checks the invoking member against the configured role list.
// An empty list allows everyone.
func (b *Bot) memberAllowed(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if len(b.cfg.Discord.AllowedRoles) == 0 {
		return true
	}
	if i.Member == nil {
		// Direct messages carry no roles.
		return false
	}

	guildRoles, err := s.GuildRoles(i.GuildID)
	if err != nil {
		log.Printf("[discord] failed to fetch guild roles: %v", err)
		return false
	}
	return rolesAllow(b.cfg.Discord.AllowedRoles, i.Member.Roles, guildRoles)
}

// rolesAllow reports whether any member role matches the allow list. Entries
// may be role names or raw role IDs.
func rolesAllow(allowed []string, memberRoles []string, guildRoles []*discordgo.Role) bool {
	names := make(map[string]string, len(guildRoles))
	for _, r := range guildRoles {
		names[r.ID] = r.Name
	}

	allowSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		allowSet[a] = true
	}

	for _, id := range memberRoles {
		if allowSet[id] || allowSet[names[id]] {
			return true
		}
	}
	return false
}
