package service

import (
	"context"
	"testing"
	"time"

	"marbles/models"

	"github.com/stretchr/testify/mock"
)

// Test IDs - Using meaningful constants instead of magic numbers
const (
	TestChallengerID int64 = 111111
	TestRecipientID  int64 = 222222
	TestBettorAID    int64 = 333333
	TestBettorBID    int64 = 444444
	TestBettorCID    int64 = 555555
	TestBettorDID    int64 = 666666
	TestOutsiderID   int64 = 777777
	TestMatchID      int64 = 42
	TestGuildID      int64 = 987654321
	TestStartBalance int64 = 100
)

// TestMocks holds all mock repositories for easy access
type TestMocks struct {
	AccountRepo        *MockAccountRepository
	MatchRepo          *MockMatchRepository
	BetRepo            *MockBetRepository
	HistoryRepo        *MockHistoryRepository
	BalanceHistoryRepo *MockBalanceHistoryRepository
	SeasonRepo         *MockSeasonRepository
	EventPublisher     *MockEventPublisher
}

// NewTestMocks creates a new set of mocks
func NewTestMocks() *TestMocks {
	return &TestMocks{
		AccountRepo:        new(MockAccountRepository),
		MatchRepo:          new(MockMatchRepository),
		BetRepo:            new(MockBetRepository),
		HistoryRepo:        new(MockHistoryRepository),
		BalanceHistoryRepo: new(MockBalanceHistoryRepository),
		SeasonRepo:         new(MockSeasonRepository),
		EventPublisher:     new(MockEventPublisher),
	}
}

// AssertAllExpectations asserts all mock expectations
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.AccountRepo.AssertExpectations(t)
	m.MatchRepo.AssertExpectations(t)
	m.BetRepo.AssertExpectations(t)
	m.HistoryRepo.AssertExpectations(t)
	m.BalanceHistoryRepo.AssertExpectations(t)
	m.SeasonRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

// ExpectLedgerWrites accepts any number of balance history records and events
func (m *TestMocks) ExpectLedgerWrites(ctx context.Context) {
	m.BalanceHistoryRepo.On("Record", ctx, mock.AnythingOfType("*models.BalanceHistory")).Return(nil)
	m.EventPublisher.On("Publish", mock.Anything).Return(nil)
}

// AccountService builds an account service over the mocks
func (m *TestMocks) AccountService() AccountService {
	return NewAccountService(m.AccountRepo, m.BalanceHistoryRepo, m.EventPublisher, DefaultEconomyConfig())
}

// MatchService builds a match service over the mocks
func (m *TestMocks) MatchService() MatchService {
	return NewMatchService(m.AccountRepo, m.MatchRepo, m.BetRepo, m.HistoryRepo, m.BalanceHistoryRepo, m.EventPublisher, DefaultEconomyConfig())
}

// BetService builds a bet service over the mocks
func (m *TestMocks) BetService() BetService {
	return NewBetService(m.AccountRepo, m.MatchRepo, m.BetRepo, m.HistoryRepo, m.BalanceHistoryRepo, m.EventPublisher)
}

// StatsService builds a stats service over the mocks
func (m *TestMocks) StatsService() StatsService {
	return NewStatsService(m.AccountRepo, m.MatchRepo, m.BetRepo, m.HistoryRepo, m.BalanceHistoryRepo, m.SeasonRepo)
}

// SeasonService builds a season service over the mocks
func (m *TestMocks) SeasonService() SeasonService {
	return NewSeasonService(m.AccountRepo, m.SeasonRepo)
}

// NewTestAccount creates an account with default rating
func NewTestAccount(discordID int64, displayName string, balance int64) *models.Account {
	return &models.Account{
		DiscordID:   discordID,
		GuildID:     TestGuildID,
		DisplayName: displayName,
		Balance:     balance,
		Elo:         1200,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// NewTestSeason creates a season started on 1 March 2026, either open or ended a week later
func NewTestSeason(number int, open bool) *models.Season {
	started := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	season := &models.Season{
		ID:        int64(number),
		GuildID:   TestGuildID,
		Number:    number,
		StartedAt: started,
		EndsAt:    started.AddDate(0, 1, 0),
	}
	if !open {
		ended := started.AddDate(0, 0, 7)
		season.EndedAt = &ended
	}
	return season
}

// MatchScenario represents a complete test scenario
type MatchScenario struct {
	Match    *models.Match
	Bets     []*models.Bet
	Accounts map[int64]*models.Account
}

// Bettors returns the IDs of every bettor in bet order
func (s *MatchScenario) Bettors() []int64 {
	ids := make([]int64, 0, len(s.Bets))
	for _, bet := range s.Bets {
		ids = append(ids, bet.BettorID)
	}
	return ids
}

// MatchScenarioBuilder builds test scenarios fluently
type MatchScenarioBuilder struct {
	scenario *MatchScenario
}

// NewMatchScenario creates a new scenario builder with both players funded
func NewMatchScenario(amount int64) *MatchScenarioBuilder {
	return &MatchScenarioBuilder{
		scenario: &MatchScenario{
			Match: &models.Match{
				ID:           TestMatchID,
				GuildID:      TestGuildID,
				Amount:       amount,
				ChallengerID: TestChallengerID,
				RecipientID:  TestRecipientID,
				Game:         "melee",
				Format:       "Bo3",
				CreatedAt:    time.Now(),
			},
			Accounts: map[int64]*models.Account{
				TestChallengerID: NewTestAccount(TestChallengerID, "challenger", TestStartBalance),
				TestRecipientID:  NewTestAccount(TestRecipientID, "recipient", TestStartBalance),
			},
		},
	}
}

// Accepted marks the match accepted, as if both stakes were debited
func (b *MatchScenarioBuilder) Accepted() *MatchScenarioBuilder {
	b.scenario.Match.Accepted = true
	return b
}

// Active marks the match started
func (b *MatchScenarioBuilder) Active() *MatchScenarioBuilder {
	b.scenario.Match.Accepted = true
	b.scenario.Match.Active = true
	return b
}

// WithAccount adds or replaces an account
func (b *MatchScenarioBuilder) WithAccount(discordID int64, displayName string, balance int64) *MatchScenarioBuilder {
	b.scenario.Accounts[discordID] = NewTestAccount(discordID, displayName, balance)
	return b
}

// WithBet adds a bet and an account for the bettor if it has none
func (b *MatchScenarioBuilder) WithBet(bettorID, targetID, amount int64) *MatchScenarioBuilder {
	b.scenario.Bets = append(b.scenario.Bets, &models.Bet{
		ID:       int64(len(b.scenario.Bets) + 1),
		GuildID:  TestGuildID,
		MatchID:  TestMatchID,
		BettorID: bettorID,
		TargetID: targetID,
		Amount:   amount,
	})
	if _, ok := b.scenario.Accounts[bettorID]; !ok {
		b.scenario.Accounts[bettorID] = NewTestAccount(bettorID, "bettor", TestStartBalance)
	}
	return b
}

// Build returns the complete scenario
func (b *MatchScenarioBuilder) Build() *MatchScenario {
	return b.scenario
}
