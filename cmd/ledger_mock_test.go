package cmd

import (
	"context"
	"time"

	"marbles/models"

	"github.com/stretchr/testify/mock"
)

// mockLedger is a testify mock of Ledger
type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) account(args mock.Arguments) (*models.Account, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *mockLedger) match(args mock.Arguments) (*models.Match, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *mockLedger) accountPair(args mock.Arguments) (*models.Account, *models.Account, error) {
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Account), args.Get(1).(*models.Account), args.Error(2)
}

func (m *mockLedger) EnsureAccount(ctx context.Context, identity models.Identity) (*models.Account, error) {
	return m.account(m.Called(ctx, identity))
}

func (m *mockLedger) GetAccount(ctx context.Context, guildID, discordID int64) (*models.Account, error) {
	return m.account(m.Called(ctx, guildID, discordID))
}

func (m *mockLedger) Credit(ctx context.Context, guildID, discordID, amount int64) (*models.Account, error) {
	return m.account(m.Called(ctx, guildID, discordID, amount))
}

func (m *mockLedger) Debit(ctx context.Context, guildID, discordID, amount int64) (*models.Account, error) {
	return m.account(m.Called(ctx, guildID, discordID, amount))
}

func (m *mockLedger) Transfer(ctx context.Context, guildID, fromID, toID, amount int64) (*models.Account, *models.Account, error) {
	return m.accountPair(m.Called(ctx, guildID, fromID, toID, amount))
}

func (m *mockLedger) AdjustWins(ctx context.Context, guildID, discordID int64, delta int) (*models.Account, error) {
	return m.account(m.Called(ctx, guildID, discordID, delta))
}

func (m *mockLedger) AdjustLosses(ctx context.Context, guildID, discordID int64, delta int) (*models.Account, error) {
	return m.account(m.Called(ctx, guildID, discordID, delta))
}

func (m *mockLedger) SetDisplayName(ctx context.Context, guildID, discordID int64, displayName string) (*models.Account, error) {
	return m.account(m.Called(ctx, guildID, discordID, displayName))
}

func (m *mockLedger) SetBalance(ctx context.Context, guildID, discordID, balance int64) (*models.Account, error) {
	return m.account(m.Called(ctx, guildID, discordID, balance))
}

func (m *mockLedger) ClaimFriendly(ctx context.Context, guildID, playerID, opponentID int64) (*models.Account, *models.Account, error) {
	return m.accountPair(m.Called(ctx, guildID, playerID, opponentID))
}

func (m *mockLedger) Propose(ctx context.Context, guildID, challengerID, recipientID, amount int64, game, format string) (*models.Match, error) {
	return m.match(m.Called(ctx, guildID, challengerID, recipientID, amount, game, format))
}

func (m *mockLedger) Accept(ctx context.Context, guildID, matchID, callerID int64) (*models.Match, error) {
	return m.match(m.Called(ctx, guildID, matchID, callerID))
}

func (m *mockLedger) Start(ctx context.Context, guildID, matchID int64) (*models.Match, error) {
	return m.match(m.Called(ctx, guildID, matchID))
}

func (m *mockLedger) Resolve(ctx context.Context, guildID, matchID, winnerID int64) (*models.MatchResult, error) {
	args := m.Called(ctx, guildID, matchID, winnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchResult), args.Error(1)
}

func (m *mockLedger) Cancel(ctx context.Context, guildID, matchID int64) error {
	return m.Called(ctx, guildID, matchID).Error(0)
}

func (m *mockLedger) GetMatch(ctx context.Context, guildID, matchID int64) (*models.Match, error) {
	return m.match(m.Called(ctx, guildID, matchID))
}

func (m *mockLedger) ListMatches(ctx context.Context, guildID int64) ([]*models.Match, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

func (m *mockLedger) GetResolvedMatch(ctx context.Context, guildID, matchID int64) (*models.MatchHistory, []*models.BetHistory, error) {
	args := m.Called(ctx, guildID, matchID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.MatchHistory), args.Get(1).([]*models.BetHistory), args.Error(2)
}

func (m *mockLedger) PlaceBet(ctx context.Context, guildID, matchID, bettorID, targetID, amount int64) (*models.BetPlacement, error) {
	args := m.Called(ctx, guildID, matchID, bettorID, targetID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BetPlacement), args.Error(1)
}

func (m *mockLedger) ListBets(ctx context.Context, guildID, matchID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, guildID, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *mockLedger) Leaderboard(ctx context.Context, guildID int64, stat models.LeaderboardStat, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, guildID, stat, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

func (m *mockLedger) PlayerStats(ctx context.Context, guildID, discordID int64) (*models.PlayerStats, error) {
	args := m.Called(ctx, guildID, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlayerStats), args.Error(1)
}

func (m *mockLedger) EconomySummary(ctx context.Context, guildID int64) (*models.EconomySummary, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EconomySummary), args.Error(1)
}

func (m *mockLedger) MatchHistory(ctx context.Context, guildID, discordID int64, opponentID *int64, limit int) ([]*models.MatchHistory, error) {
	args := m.Called(ctx, guildID, discordID, opponentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MatchHistory), args.Error(1)
}

func (m *mockLedger) BetHistory(ctx context.Context, guildID, bettorID int64, limit int) ([]*models.BetHistory, error) {
	args := m.Called(ctx, guildID, bettorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BetHistory), args.Error(1)
}

func (m *mockLedger) BalanceHistory(ctx context.Context, guildID, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, guildID, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *mockLedger) LeaderboardPosition(ctx context.Context, guildID int64, stat models.LeaderboardStat, discordID int64) (*models.LeaderboardEntry, error) {
	args := m.Called(ctx, guildID, stat, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LeaderboardEntry), args.Error(1)
}

func (m *mockLedger) StartSeason(ctx context.Context, guildID int64, endsAt time.Time) (*models.Season, error) {
	args := m.Called(ctx, guildID, endsAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Season), args.Error(1)
}

func (m *mockLedger) EndSeason(ctx context.Context, guildID int64) (*models.Season, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Season), args.Error(1)
}

func (m *mockLedger) CurrentSeason(ctx context.Context, guildID int64) (*models.Season, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Season), args.Error(1)
}

func (m *mockLedger) ListSeasons(ctx context.Context, guildID int64) ([]*models.Season, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Season), args.Error(1)
}

func (m *mockLedger) SeasonStandings(ctx context.Context, guildID int64, number int, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, guildID, number, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

var _ Ledger = (*mockLedger)(nil)
