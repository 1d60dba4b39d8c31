package service

import (
	"context"
	"time"

	"marbles/events"
	"marbles/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) LockAccounts(ctx context.Context, discordIDs ...int64) (map[int64]*models.Account, error) {
	args := m.Called(ctx, discordIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, discordID int64, displayName string, initialBalance int64, initialElo float64) (*models.Account, error) {
	args := m.Called(ctx, discordID, displayName, initialBalance, initialElo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) AddBalance(ctx context.Context, discordID int64, amount int64) (int64, error) {
	args := m.Called(ctx, discordID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) DeductBalance(ctx context.Context, discordID int64, amount int64) (int64, error) {
	args := m.Called(ctx, discordID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) SetBalance(ctx context.Context, discordID int64, balance int64) error {
	args := m.Called(ctx, discordID, balance)
	return args.Error(0)
}

func (m *MockAccountRepository) AdjustWins(ctx context.Context, discordID int64, delta int) (int, error) {
	args := m.Called(ctx, discordID, delta)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) AdjustLosses(ctx context.Context, discordID int64, delta int) (int, error) {
	args := m.Called(ctx, discordID, delta)
	return args.Int(0), args.Error(1)
}

func (m *MockAccountRepository) UpdateElo(ctx context.Context, discordID int64, elo float64) error {
	args := m.Called(ctx, discordID, elo)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateDisplayName(ctx context.Context, discordID int64, displayName string) error {
	args := m.Called(ctx, discordID, displayName)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateFriendlyLastUsed(ctx context.Context, discordID int64, at time.Time) error {
	args := m.Called(ctx, discordID, at)
	return args.Error(0)
}

func (m *MockAccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetLeaderboard(ctx context.Context, stat models.LeaderboardStat, limit int) ([]*models.Account, error) {
	args := m.Called(ctx, stat, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetStanding(ctx context.Context, stat models.LeaderboardStat, discordID int64) (*models.Standing, error) {
	args := m.Called(ctx, stat, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Standing), args.Error(1)
}

func (m *MockAccountRepository) GetEconomySummary(ctx context.Context) (*models.EconomySummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EconomySummary), args.Error(1)
}

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) Create(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) GetLiveByParticipant(ctx context.Context, discordID int64) (*models.Match, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) Update(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Match), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByMatchAndBettor(ctx context.Context, matchID, bettorID int64) (*models.Bet, error) {
	args := m.Called(ctx, matchID, bettorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListByMatch(ctx context.Context, matchID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ListByBettor(ctx context.Context, bettorID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, bettorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) Update(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBetRepository) DeleteByMatch(ctx context.Context, matchID int64) (int64, error) {
	args := m.Called(ctx, matchID)
	return args.Get(0).(int64), args.Error(1)
}

// MockHistoryRepository is a mock implementation of HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) RecordMatch(ctx context.Context, history *models.MatchHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockHistoryRepository) RecordBets(ctx context.Context, bets []*models.BetHistory) error {
	args := m.Called(ctx, bets)
	return args.Error(0)
}

func (m *MockHistoryRepository) GetMatch(ctx context.Context, matchID int64) (*models.MatchHistory, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchHistory), args.Error(1)
}

func (m *MockHistoryRepository) ListMatchesByAccount(ctx context.Context, discordID int64, opponentID *int64, limit int) ([]*models.MatchHistory, error) {
	args := m.Called(ctx, discordID, opponentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MatchHistory), args.Error(1)
}

func (m *MockHistoryRepository) ListBetsByMatch(ctx context.Context, matchID int64) ([]*models.BetHistory, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BetHistory), args.Error(1)
}

func (m *MockHistoryRepository) ListBetsByBettor(ctx context.Context, bettorID int64, limit int) ([]*models.BetHistory, error) {
	args := m.Called(ctx, bettorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BetHistory), args.Error(1)
}

func (m *MockHistoryRepository) GetBetStats(ctx context.Context, bettorID int64) (*models.BetStats, error) {
	args := m.Called(ctx, bettorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BetStats), args.Error(1)
}

func (m *MockHistoryRepository) GetStandings(ctx context.Context, stat models.LeaderboardStat, limit int) ([]*models.Standing, error) {
	args := m.Called(ctx, stat, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Standing), args.Error(1)
}

func (m *MockHistoryRepository) GetStanding(ctx context.Context, stat models.LeaderboardStat, discordID int64) (*models.Standing, error) {
	args := m.Called(ctx, stat, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Standing), args.Error(1)
}

// MockSeasonRepository is a mock implementation of SeasonRepository
type MockSeasonRepository struct {
	mock.Mock
}

func (m *MockSeasonRepository) Create(ctx context.Context, season *models.Season) error {
	args := m.Called(ctx, season)
	return args.Error(0)
}

func (m *MockSeasonRepository) GetActive(ctx context.Context) (*models.Season, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Season), args.Error(1)
}

func (m *MockSeasonRepository) GetLatest(ctx context.Context) (*models.Season, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Season), args.Error(1)
}

func (m *MockSeasonRepository) GetByNumber(ctx context.Context, number int) (*models.Season, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Season), args.Error(1)
}

func (m *MockSeasonRepository) List(ctx context.Context) ([]*models.Season, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Season), args.Error(1)
}

func (m *MockSeasonRepository) End(ctx context.Context, number int, at time.Time) error {
	args := m.Called(ctx, number, at)
	return args.Error(0)
}

func (m *MockSeasonRepository) GetStandings(ctx context.Context, season *models.Season, limit int) ([]*models.Standing, error) {
	args := m.Called(ctx, season, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Standing), args.Error(1)
}

func (m *MockSeasonRepository) GetStanding(ctx context.Context, season *models.Season, discordID int64) (*models.Standing, error) {
	args := m.Called(ctx, season, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Standing), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, discordID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) GetByRelated(ctx context.Context, relatedType models.RelatedType, relatedID int64) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, relatedType, relatedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
