// Package discord maps Discord members onto ledger identities.
package discord

import (
	"fmt"
	"strconv"
	"strings"

	"marbles/models"

	"github.com/bwmarrin/discordgo"
)

// ParseSnowflake parses a Discord snowflake id
func ParseSnowflake(id string) (int64, error) {
	id = strings.TrimSpace(id)
	// Mentions arrive as <@123> or <@!123>
	id = strings.TrimSuffix(strings.TrimPrefix(id, "<@"), ">")
	id = strings.TrimPrefix(id, "!")

	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", id, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("invalid snowflake %q: must be positive", id)
	}
	return parsed, nil
}

// FormatSnowflake renders an id the way Discord's API expects it
func FormatSnowflake(id int64) string {
	return strconv.FormatInt(id, 10)
}

// DisplayName picks the guild nickname, then the global name, then the username
func DisplayName(member *discordgo.Member) string {
	if member == nil {
		return ""
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User == nil {
		return ""
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

// IdentityFromMember builds the identity an account is keyed and named by
func IdentityFromMember(guildID int64, member *discordgo.Member) (models.Identity, error) {
	if member == nil || member.User == nil {
		return models.Identity{}, fmt.Errorf("member has no user")
	}

	discordID, err := ParseSnowflake(member.User.ID)
	if err != nil {
		return models.Identity{}, err
	}

	return models.Identity{
		GuildID:     guildID,
		DiscordID:   discordID,
		DisplayName: DisplayName(member),
	}, nil
}

// IdentityFromInteraction resolves the invoking member of a guild interaction
func IdentityFromInteraction(i *discordgo.InteractionCreate) (models.Identity, error) {
	if i == nil || i.Interaction == nil {
		return models.Identity{}, fmt.Errorf("empty interaction")
	}
	if i.GuildID == "" || i.Member == nil {
		return models.Identity{}, fmt.Errorf("interaction was not sent from a guild")
	}

	guildID, err := ParseSnowflake(i.GuildID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to parse guild id: %w", err)
	}
	return IdentityFromMember(guildID, i.Member)
}
