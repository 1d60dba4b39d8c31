package models

import (
	"time"
)

// Account represents a player's marble balance within a single guild
type Account struct {
	ID               int64      `db:"id"`
	DiscordID        int64      `db:"discord_id"`
	GuildID          int64      `db:"guild_id"`
	DisplayName      string     `db:"display_name"`
	Balance          int64      `db:"balance"`
	Wins             int        `db:"wins"`
	Losses           int        `db:"losses"`
	Elo              float64    `db:"elo"`
	FriendlyLastUsed *time.Time `db:"friendly_last_used"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// MatchesPlayed returns the number of resolved matches the account took part in
func (a *Account) MatchesPlayed() int {
	return a.Wins + a.Losses
}

// WinRate returns the percentage of resolved matches won, 0 when none were played
func (a *Account) WinRate() float64 {
	played := a.MatchesPlayed()
	if played == 0 {
		return 0
	}
	return 100 * float64(a.Wins) / float64(played)
}

// CanClaimFriendly reports whether the friendly reward is available in the
// window that started at periodStart
func (a *Account) CanClaimFriendly(periodStart time.Time) bool {
	return a.FriendlyLastUsed == nil || a.FriendlyLastUsed.Before(periodStart)
}

// Identity is how an external caller names a player
type Identity struct {
	GuildID     int64
	DiscordID   int64
	DisplayName string
}
