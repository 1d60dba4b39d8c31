package cmd

import (
	"context"
	"time"

	"marbles/application"
	"marbles/models"
)

// Ledger is the set of ledger operations the CLI drives
type Ledger interface {
	EnsureAccount(ctx context.Context, identity models.Identity) (*models.Account, error)
	GetAccount(ctx context.Context, guildID, discordID int64) (*models.Account, error)
	Credit(ctx context.Context, guildID, discordID, amount int64) (*models.Account, error)
	Debit(ctx context.Context, guildID, discordID, amount int64) (*models.Account, error)
	Transfer(ctx context.Context, guildID, fromID, toID, amount int64) (*models.Account, *models.Account, error)
	AdjustWins(ctx context.Context, guildID, discordID int64, delta int) (*models.Account, error)
	AdjustLosses(ctx context.Context, guildID, discordID int64, delta int) (*models.Account, error)
	SetDisplayName(ctx context.Context, guildID, discordID int64, displayName string) (*models.Account, error)
	SetBalance(ctx context.Context, guildID, discordID, balance int64) (*models.Account, error)
	ClaimFriendly(ctx context.Context, guildID, playerID, opponentID int64) (*models.Account, *models.Account, error)

	Propose(ctx context.Context, guildID, challengerID, recipientID, amount int64, game, format string) (*models.Match, error)
	Accept(ctx context.Context, guildID, matchID, callerID int64) (*models.Match, error)
	Start(ctx context.Context, guildID, matchID int64) (*models.Match, error)
	Resolve(ctx context.Context, guildID, matchID, winnerID int64) (*models.MatchResult, error)
	Cancel(ctx context.Context, guildID, matchID int64) error
	GetMatch(ctx context.Context, guildID, matchID int64) (*models.Match, error)
	ListMatches(ctx context.Context, guildID int64) ([]*models.Match, error)
	GetResolvedMatch(ctx context.Context, guildID, matchID int64) (*models.MatchHistory, []*models.BetHistory, error)

	PlaceBet(ctx context.Context, guildID, matchID, bettorID, targetID, amount int64) (*models.BetPlacement, error)
	ListBets(ctx context.Context, guildID, matchID int64) ([]*models.Bet, error)

	Leaderboard(ctx context.Context, guildID int64, stat models.LeaderboardStat, limit int) ([]*models.LeaderboardEntry, error)
	LeaderboardPosition(ctx context.Context, guildID int64, stat models.LeaderboardStat, discordID int64) (*models.LeaderboardEntry, error)
	PlayerStats(ctx context.Context, guildID, discordID int64) (*models.PlayerStats, error)
	EconomySummary(ctx context.Context, guildID int64) (*models.EconomySummary, error)
	MatchHistory(ctx context.Context, guildID, discordID int64, opponentID *int64, limit int) ([]*models.MatchHistory, error)
	BetHistory(ctx context.Context, guildID, bettorID int64, limit int) ([]*models.BetHistory, error)
	BalanceHistory(ctx context.Context, guildID, discordID int64, limit int) ([]*models.BalanceHistory, error)

	StartSeason(ctx context.Context, guildID int64, endsAt time.Time) (*models.Season, error)
	EndSeason(ctx context.Context, guildID int64) (*models.Season, error)
	CurrentSeason(ctx context.Context, guildID int64) (*models.Season, error)
	ListSeasons(ctx context.Context, guildID int64) ([]*models.Season, error)
	SeasonStandings(ctx context.Context, guildID int64, number int, limit int) ([]*models.LeaderboardEntry, error)
}

var _ Ledger = (*application.Ledger)(nil)
