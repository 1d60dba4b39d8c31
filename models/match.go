package models

import (
	"time"
)

// MatchState represents the lifecycle state of a match
type MatchState string

const (
	MatchStateProposed  MatchState = "proposed"
	MatchStateAccepted  MatchState = "accepted"
	MatchStateActive    MatchState = "active"
	MatchStateResolved  MatchState = "resolved"
	MatchStateCancelled MatchState = "cancelled"
)

// Match represents a live two-player wager. Resolved and cancelled matches are
// removed from the live store.
type Match struct {
	ID           int64     `db:"id"`
	GuildID      int64     `db:"guild_id"`
	Amount       int64     `db:"amount"`
	ChallengerID int64     `db:"challenger_id"`
	RecipientID  int64     `db:"recipient_id"`
	Accepted     bool      `db:"accepted"`
	Active       bool      `db:"active"`
	Game         string    `db:"game"`
	Format       string    `db:"format"`
	CreatedAt    time.Time `db:"created_at"`
}

// State derives the lifecycle state from the accepted/active flags
func (m *Match) State() MatchState {
	switch {
	case m.Active:
		return MatchStateActive
	case m.Accepted:
		return MatchStateAccepted
	default:
		return MatchStateProposed
	}
}

// IsParticipant checks if an account is one of the two players
func (m *Match) IsParticipant(discordID int64) bool {
	return m.ChallengerID == discordID || m.RecipientID == discordID
}

// GetOpponent returns the other participant's discord ID
func (m *Match) GetOpponent(discordID int64) int64 {
	if m.ChallengerID == discordID {
		return m.RecipientID
	}
	if m.RecipientID == discordID {
		return m.ChallengerID
	}
	return 0 // Not a participant
}

// CanBeAccepted checks if the match can be accepted by the given account
func (m *Match) CanBeAccepted(discordID int64) bool {
	return m.State() == MatchStateProposed && m.RecipientID == discordID
}

// IsOpenForBetting checks if bets may be placed or changed
func (m *Match) IsOpenForBetting() bool {
	return m.State() == MatchStateAccepted
}

// CanBeCancelled checks if the match has not started yet
func (m *Match) CanBeCancelled() bool {
	state := m.State()
	return state == MatchStateProposed || state == MatchStateAccepted
}

// EscrowedAmount returns the stakes currently held out of the players' balances
func (m *Match) EscrowedAmount() int64 {
	if !m.Accepted {
		return 0
	}
	return m.Amount * 2
}

// MatchHistory is the archived record of a resolved match
type MatchHistory struct {
	ID           int64     `db:"id"`
	GuildID      int64     `db:"guild_id"`
	Amount       int64     `db:"amount"`
	ChallengerID int64     `db:"challenger_id"`
	RecipientID  int64     `db:"recipient_id"`
	WinnerID     int64     `db:"winner_id"`
	Game         string    `db:"game"`
	Format       string    `db:"format"`
	ResolvedAt   time.Time `db:"resolved_at"`
}

// LoserID returns the participant that did not win
func (h *MatchHistory) LoserID() int64 {
	if h.WinnerID == h.ChallengerID {
		return h.RecipientID
	}
	return h.ChallengerID
}
