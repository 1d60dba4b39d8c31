package models

// LeaderboardStat selects what a leaderboard is ordered by
type LeaderboardStat string

const (
	LeaderboardStatBalance LeaderboardStat = "balance"
	LeaderboardStatWins    LeaderboardStat = "wins"
	LeaderboardStatLosses  LeaderboardStat = "losses"
	LeaderboardStatWinRate LeaderboardStat = "winrate"
	LeaderboardStatElo     LeaderboardStat = "elo"

	// Aggregated from the match and bet archive
	LeaderboardStatMatchCount LeaderboardStat = "match_count"
	LeaderboardStatBetTotal   LeaderboardStat = "bet_total"
	LeaderboardStatBetWinRate LeaderboardStat = "bet_winrate"

	// Net marbles won from matches and bets during the latest season
	LeaderboardStatSeason LeaderboardStat = "season"
)

// LeaderboardStats lists every stat in display order
var LeaderboardStats = []LeaderboardStat{
	LeaderboardStatBalance,
	LeaderboardStatWins,
	LeaderboardStatLosses,
	LeaderboardStatWinRate,
	LeaderboardStatElo,
	LeaderboardStatMatchCount,
	LeaderboardStatBetTotal,
	LeaderboardStatBetWinRate,
	LeaderboardStatSeason,
}

// IsValid checks the stat is one the store can order by
func (s LeaderboardStat) IsValid() bool {
	for _, stat := range LeaderboardStats {
		if s == stat {
			return true
		}
	}
	return false
}

// IsAccountStat reports whether the stat is a column of the account itself
func (s LeaderboardStat) IsAccountStat() bool {
	switch s {
	case LeaderboardStatBalance, LeaderboardStatWins, LeaderboardStatLosses, LeaderboardStatWinRate, LeaderboardStatElo:
		return true
	}
	return false
}

// IsHistoryStat reports whether the stat is aggregated from resolved matches and settled bets
func (s LeaderboardStat) IsHistoryStat() bool {
	switch s {
	case LeaderboardStatMatchCount, LeaderboardStatBetTotal, LeaderboardStatBetWinRate:
		return true
	}
	return false
}

// AccountValue returns the value of an account stat, 0 for stats kept elsewhere
func (s LeaderboardStat) AccountValue(a *Account) float64 {
	switch s {
	case LeaderboardStatBalance:
		return float64(a.Balance)
	case LeaderboardStatWins:
		return float64(a.Wins)
	case LeaderboardStatLosses:
		return float64(a.Losses)
	case LeaderboardStatWinRate:
		return a.WinRate()
	case LeaderboardStatElo:
		return a.Elo
	}
	return 0
}

// Standing is one account's place in a ranking. Ties are broken by Discord ID.
type Standing struct {
	Rank      int
	DiscordID int64
	Value     float64
}

// LeaderboardEntry is a single ranked row
type LeaderboardEntry struct {
	Rank    int
	Account *Account
	Value   float64
}

// BetStats represents aggregated settled-bet statistics for a bettor
type BetStats struct {
	TotalBets    int
	TotalWins    int
	TotalLosses  int
	TotalWagered int64
	TotalPayout  int64
	BiggestWin   int64
	BiggestLoss  int64
}

// WinPercentage returns the share of settled bets that won
func (s *BetStats) WinPercentage() float64 {
	if s.TotalBets == 0 {
		return 0
	}
	return 100 * float64(s.TotalWins) / float64(s.TotalBets)
}

// NetProfit returns payouts minus stakes across all settled bets
func (s *BetStats) NetProfit() int64 {
	return s.TotalPayout - s.TotalWagered
}

// PlayerStats represents combined statistics for an account
type PlayerStats struct {
	Account      *Account
	MatchCount   int
	WinRate      float64
	BetStats     *BetStats
	LiveMatch    *Match
	LiveBetTotal int64 // marbles currently staked on open matches
}

// EconomySummary describes the marble supply of a guild
type EconomySummary struct {
	GuildID         int64
	AccountCount    int
	TotalBalance    int64
	EscrowedMatches int64 // stakes debited for accepted matches
	EscrowedBets    int64 // stakes held by live bets
	LiveMatches     int
	LiveBets        int
}

// TotalSupply returns every marble in the guild, spendable or escrowed
func (s *EconomySummary) TotalSupply() int64 {
	return s.TotalBalance + s.EscrowedMatches + s.EscrowedBets
}
