package models

import "time"

// Bet represents a live side-bet on a match
type Bet struct {
	ID        int64     `db:"id"`
	GuildID   int64     `db:"guild_id"`
	MatchID   int64     `db:"match_id"`
	BettorID  int64     `db:"bettor_id"`
	TargetID  int64     `db:"target_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BetHistory is the archived record of a settled bet
type BetHistory struct {
	ID         int64     `db:"id"`
	GuildID    int64     `db:"guild_id"`
	MatchID    int64     `db:"match_id"`
	BettorID   int64     `db:"bettor_id"`
	TargetID   int64     `db:"target_id"`
	WinnerID   int64     `db:"winner_id"`
	Amount     int64     `db:"amount"`
	Payout     int64     `db:"payout"`
	ResolvedAt time.Time `db:"resolved_at"`
}

// Won reports whether the bet picked the match winner
func (b *BetHistory) Won() bool {
	return b.TargetID == b.WinnerID
}

// Profit returns the net marbles gained (negative for a lost bet)
func (b *BetHistory) Profit() int64 {
	return b.Payout - b.Amount
}

// BetPlacement describes the outcome of a place call
type BetPlacement struct {
	Bet            *Bet  // nil when the bet was removed
	PreviousAmount int64 // stake refunded from a replaced or removed bet
	Removed        bool
}
