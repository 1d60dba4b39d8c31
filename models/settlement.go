package models

// BetPayout is the settlement outcome for a single bet
type BetPayout struct {
	Bet    *Bet
	Won    bool
	Payout int64 // marbles credited back, stake included; 0 for a losing bet
}

// Profit returns the net marbles gained by the bettor
func (p BetPayout) Profit() int64 {
	return p.Payout - p.Bet.Amount
}

// Settlement is the parimutuel distribution computed for a resolved match
type Settlement struct {
	MatchID     int64
	WinnerID    int64
	LoserID     int64
	WinnerPot   int64
	LoserPot    int64
	WinnerCount int
	LoserCount  int
	Payouts     []BetPayout
}

// TotalPaid returns the sum of all payouts credited to bettors
func (s *Settlement) TotalPaid() int64 {
	var total int64
	for _, p := range s.Payouts {
		total += p.Payout
	}
	return total
}

// WinnerProfit returns the marbles winners gained on top of their stakes
func (s *Settlement) WinnerProfit() int64 {
	return s.TotalPaid() - s.WinnerPot
}

// HouseDelta returns marbles created (positive) or destroyed (negative) by
// settlement relative to the staked pools. Rounding makes it negative, the
// one-marble minimum profit and the no-loser doubling make it positive.
func (s *Settlement) HouseDelta() int64 {
	return s.TotalPaid() - s.WinnerPot - s.LoserPot
}

// PayoutFor returns the payout recorded for a bettor, if any
func (s *Settlement) PayoutFor(bettorID int64) (BetPayout, bool) {
	for _, p := range s.Payouts {
		if p.Bet.BettorID == bettorID {
			return p, true
		}
	}
	return BetPayout{}, false
}

// MatchResult is returned to callers of resolve
type MatchResult struct {
	History    *MatchHistory
	Settlement *Settlement
	Winner     *Account
	Loser      *Account
}
