package discord

import (
	"testing"

	"marbles/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSnowflake(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{input: "123456789012345678", expected: 123456789012345678},
		{input: " 42 ", expected: 42},
		{input: "<@42>", expected: 42},
		{input: "<@!42>", expected: 42},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "-5", wantErr: true},
		{input: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSnowflake(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDisplayName_Fallbacks(t *testing.T) {
	user := &discordgo.User{ID: "1", Username: "fox_mccloud", GlobalName: "Fox"}

	assert.Equal(t, "Captain", DisplayName(&discordgo.Member{Nick: "Captain", User: user}))
	assert.Equal(t, "Fox", DisplayName(&discordgo.Member{User: user}))
	assert.Equal(t, "falco", DisplayName(&discordgo.Member{User: &discordgo.User{ID: "2", Username: "falco"}}))
	assert.Equal(t, "", DisplayName(nil))
	assert.Equal(t, "", DisplayName(&discordgo.Member{}))
}

func TestIdentityFromMember(t *testing.T) {
	member := &discordgo.Member{
		Nick: "Marth Main",
		User: &discordgo.User{ID: "222222", Username: "marth"},
	}

	identity, err := IdentityFromMember(987, member)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{GuildID: 987, DiscordID: 222222, DisplayName: "Marth Main"}, identity)

	_, err = IdentityFromMember(987, &discordgo.Member{})
	assert.Error(t, err)

	_, err = IdentityFromMember(987, &discordgo.Member{User: &discordgo.User{ID: "not-a-number"}})
	assert.Error(t, err)
}

func TestIdentityFromInteraction(t *testing.T) {
	interaction := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		GuildID: "987",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "111111", Username: "sheik"}},
	}}

	identity, err := IdentityFromInteraction(interaction)
	require.NoError(t, err)
	assert.Equal(t, int64(987), identity.GuildID)
	assert.Equal(t, int64(111111), identity.DiscordID)
	assert.Equal(t, "sheik", identity.DisplayName)

	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		User: &discordgo.User{ID: "111111"},
	}}
	_, err = IdentityFromInteraction(dm)
	assert.Error(t, err)

	_, err = IdentityFromInteraction(nil)
	assert.Error(t, err)
}
