package models

import (
	"time"
)

// Season is a numbered ranked period of a guild. At most one season per guild
// is open at a time.
type Season struct {
	ID        int64      `db:"id"`
	GuildID   int64      `db:"guild_id"`
	Number    int        `db:"season_number"`
	StartedAt time.Time  `db:"started_at"`
	EndsAt    time.Time  `db:"ends_at"` // planned end announced at start
	EndedAt   *time.Time `db:"ended_at"`
}

// IsActive reports whether the season has not been ended yet
func (s *Season) IsActive() bool {
	return s.EndedAt == nil
}

// IsOverdue reports whether an open season has passed its planned end
func (s *Season) IsOverdue(now time.Time) bool {
	return s.IsActive() && !now.Before(s.EndsAt)
}

// SeasonTransactionTypes are the balance changes that count towards a season
// ranking: play on matches and bets, not grants or transfers
var SeasonTransactionTypes = []TransactionType{
	TransactionTypeMatchStake,
	TransactionTypeMatchRefund,
	TransactionTypeMatchWin,
	TransactionTypeBetStake,
	TransactionTypeBetRefund,
	TransactionTypeBetWin,
}
