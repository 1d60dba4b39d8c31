package service

import (
	"context"
	"testing"

	"marbles/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestStatsService_GetLeaderboard(t *testing.T) {
	ctx := context.Background()

	t.Run("ranks from one", func(t *testing.T) {
		mocks := NewTestMocks()
		top := []*models.Account{
			NewTestAccount(TestBettorAID, "a", 90),
			NewTestAccount(TestBettorBID, "b", 40),
		}
		mocks.AccountRepo.On("GetLeaderboard", ctx, models.LeaderboardStatBalance, 10).Return(top, nil)

		entries, err := mocks.StatsService().GetLeaderboard(ctx, models.LeaderboardStatBalance, 10)

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, 1, entries[0].Rank)
		assert.Equal(t, 2, entries[1].Rank)
		assert.Same(t, top[1], entries[1].Account)
		assert.Equal(t, float64(40), entries[1].Value)
		mocks.AssertAllExpectations(t)
	})

	t.Run("history stat ranks from the archive", func(t *testing.T) {
		mocks := NewTestMocks()
		mocks.HistoryRepo.On("GetStandings", ctx, models.LeaderboardStatBetWinRate, 10).Return([]*models.Standing{
			{Rank: 1, DiscordID: TestBettorBID, Value: 75},
			{Rank: 2, DiscordID: TestBettorAID, Value: 50},
		}, nil)
		mocks.AccountRepo.On("GetByDiscordID", ctx, TestBettorBID).Return(NewTestAccount(TestBettorBID, "b", 10), nil)
		mocks.AccountRepo.On("GetByDiscordID", ctx, TestBettorAID).Return(NewTestAccount(TestBettorAID, "a", 90), nil)

		entries, err := mocks.StatsService().GetLeaderboard(ctx, models.LeaderboardStatBetWinRate, 10)

		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, TestBettorBID, entries[0].Account.DiscordID)
		assert.Equal(t, float64(75), entries[0].Value)
		assert.Equal(t, 2, entries[1].Rank)
		mocks.AccountRepo.AssertNotCalled(t, "GetLeaderboard", mock.Anything, mock.Anything, mock.Anything)
		mocks.AssertAllExpectations(t)
	})

	t.Run("season stat ranks the latest season", func(t *testing.T) {
		mocks := NewTestMocks()
		season := NewTestSeason(2, true)
		mocks.SeasonRepo.On("GetLatest", ctx).Return(season, nil)
		mocks.SeasonRepo.On("GetStandings", ctx, season, 5).Return([]*models.Standing{
			{Rank: 1, DiscordID: TestChallengerID, Value: 40},
		}, nil)
		mocks.AccountRepo.On("GetByDiscordID", ctx, TestChallengerID).Return(NewTestAccount(TestChallengerID, "c", 140), nil)

		entries, err := mocks.StatsService().GetLeaderboard(ctx, models.LeaderboardStatSeason, 5)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, float64(40), entries[0].Value)
		mocks.AssertAllExpectations(t)
	})

	t.Run("season stat before any season", func(t *testing.T) {
		mocks := NewTestMocks()
		mocks.SeasonRepo.On("GetLatest", ctx).Return(nil, nil)

		_, err := mocks.StatsService().GetLeaderboard(ctx, models.LeaderboardStatSeason, 5)
		NewAssertionHelper(t).AssertLedgerError(err, models.ErrorKindInvalidState)
	})

	t.Run("unknown stat", func(t *testing.T) {
		mocks := NewTestMocks()
		_, err := mocks.StatsService().GetLeaderboard(ctx, models.LeaderboardStat("marbles_lost"), 10)
		NewAssertionHelper(t).AssertLedgerError(err, models.ErrorKindInvalidArgument)
	})

	t.Run("limit out of range", func(t *testing.T) {
		mocks := NewTestMocks()
		for _, limit := range []int{0, 101} {
			_, err := mocks.StatsService().GetLeaderboard(ctx, models.LeaderboardStatElo, limit)
			NewAssertionHelper(t).AssertLedgerError(err, models.ErrorKindInvalidArgument)
		}
		mocks.AccountRepo.AssertNotCalled(t, "GetLeaderboard", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStatsService_GetLeaderboardPosition(t *testing.T) {
	ctx := context.Background()

	t.Run("account stat", func(t *testing.T) {
		mocks := NewTestMocks()
		account := NewTestAccount(TestBettorAID, "a", 30)
		mocks.AccountRepo.On("GetByDiscordID", ctx, TestBettorAID).Return(account, nil)
		mocks.AccountRepo.On("GetStanding", ctx, models.LeaderboardStatElo, TestBettorAID).
			Return(&models.Standing{Rank: 4, DiscordID: TestBettorAID, Value: 1200}, nil)

		entry, err := mocks.StatsService().GetLeaderboardPosition(ctx, models.LeaderboardStatElo, TestBettorAID)

		require.NoError(t, err)
		assert.Equal(t, 4, entry.Rank)
		assert.Same(t, account, entry.Account)
		assert.Equal(t, float64(1200), entry.Value)
		mocks.AssertAllExpectations(t)
	})

	t.Run("history stat", func(t *testing.T) {
		mocks := NewTestMocks()
		mocks.AccountRepo.On("GetByDiscordID", ctx, TestBettorAID).Return(NewTestAccount(TestBettorAID, "a", 30), nil)
		mocks.HistoryRepo.On("GetStanding", ctx, models.LeaderboardStatMatchCount, TestBettorAID).
			Return(&models.Standing{Rank: 2, DiscordID: TestBettorAID, Value: 7}, nil)

		entry, err := mocks.StatsService().GetLeaderboardPosition(ctx, models.LeaderboardStatMatchCount, TestBettorAID)

		require.NoError(t, err)
		assert.Equal(t, 2, entry.Rank)
		assert.Equal(t, float64(7), entry.Value)
		mocks.AssertAllExpectations(t)
	})

	t.Run("season stat", func(t *testing.T) {
		mocks := NewTestMocks()
		season := NewTestSeason(1, false)
		mocks.AccountRepo.On("GetByDiscordID", ctx, TestBettorAID).Return(NewTestAccount(TestBettorAID, "a", 30), nil)
		mocks.SeasonRepo.On("GetLatest", ctx).Return(season, nil)
		mocks.SeasonRepo.On("GetStanding", ctx, season, TestBettorAID).
			Return(&models.Standing{Rank: 3, DiscordID: TestBettorAID, Value: -12}, nil)

		entry, err := mocks.StatsService().GetLeaderboardPosition(ctx, models.LeaderboardStatSeason, TestBettorAID)

		require.NoError(t, err)
		assert.Equal(t, 3, entry.Rank)
		assert.Equal(t, float64(-12), entry.Value)
		mocks.AssertAllExpectations(t)
	})

	t.Run("no record for the stat", func(t *testing.T) {
		mocks := NewTestMocks()
		mocks.AccountRepo.On("GetByDiscordID", ctx, TestBettorAID).Return(NewTestAccount(TestBettorAID, "a", 30), nil)
		mocks.HistoryRepo.On("GetStanding", ctx, models.LeaderboardStatBetTotal, TestBettorAID).Return(nil, nil)

		_, err := mocks.StatsService().GetLeaderboardPosition(ctx, models.LeaderboardStatBetTotal, TestBettorAID)
		NewAssertionHelper(t).AssertLedgerError(err, models.ErrorKindNotFound)
	})

	t.Run("unknown account", func(t *testing.T) {
		mocks := NewTestMocks()
		mocks.AccountRepo.On("GetByDiscordID", ctx, TestOutsiderID).Return(nil, nil)

		_, err := mocks.StatsService().GetLeaderboardPosition(ctx, models.LeaderboardStatBalance, TestOutsiderID)
		NewAssertionHelper(t).AssertLedgerError(err, models.ErrorKindNotFound)
		mocks.AccountRepo.AssertNotCalled(t, "GetStanding", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown stat", func(t *testing.T) {
		mocks := NewTestMocks()
		_, err := mocks.StatsService().GetLeaderboardPosition(ctx, models.LeaderboardStat("height"), TestBettorAID)
		NewAssertionHelper(t).AssertLedgerError(err, models.ErrorKindInvalidArgument)
	})
}

func TestStatsService_GetPlayerStats(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()

	account := NewTestAccount(TestBettorAID, "a", 30)
	account.Wins = 3
	account.Losses = 1
	live := NewMatchScenario(5).Build().Match
	betStats := &models.BetStats{TotalBets: 4, TotalWins: 1, TotalWagered: 40, TotalPayout: 25}

	mocks.AccountRepo.On("GetByDiscordID", ctx, TestBettorAID).Return(account, nil)
	mocks.HistoryRepo.On("GetBetStats", ctx, TestBettorAID).Return(betStats, nil)
	mocks.MatchRepo.On("GetLiveByParticipant", ctx, TestBettorAID).Return(live, nil)
	mocks.BetRepo.On("ListByBettor", ctx, TestBettorAID).Return([]*models.Bet{
		{ID: 1, Amount: 4},
		{ID: 2, Amount: 6},
	}, nil)

	stats, err := mocks.StatsService().GetPlayerStats(ctx, TestBettorAID)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.MatchCount)
	assert.InDelta(t, 75.0, stats.WinRate, 1e-9)
	assert.Equal(t, int64(10), stats.LiveBetTotal)
	assert.Same(t, live, stats.LiveMatch)
	assert.Equal(t, int64(-15), stats.BetStats.NetProfit())
	mocks.AssertAllExpectations(t)
}

func TestStatsService_GetPlayerStats_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	mocks.AccountRepo.On("GetByDiscordID", ctx, TestOutsiderID).Return(nil, nil)

	_, err := mocks.StatsService().GetPlayerStats(ctx, TestOutsiderID)

	NewAssertionHelper(t).AssertLedgerError(err, models.ErrorKindNotFound)
}

func TestStatsService_History(t *testing.T) {
	ctx := context.Background()
	opponent := TestRecipientID

	mocks := NewTestMocks()
	mocks.HistoryRepo.On("ListMatchesByAccount", ctx, TestChallengerID, &opponent, 5).
		Return([]*models.MatchHistory{{ID: 1, WinnerID: TestChallengerID}}, nil)
	mocks.HistoryRepo.On("ListBetsByBettor", ctx, TestBettorCID, 20).
		Return([]*models.BetHistory{{ID: 3, Amount: 10, Payout: 15}}, nil)
	mocks.BalanceHistoryRepo.On("GetByUser", ctx, TestBettorCID, 20).
		Return([]*models.BalanceHistory{{ID: 8, ChangeAmount: 15}}, nil)
	service := mocks.StatsService()

	matches, err := service.GetMatchHistory(ctx, TestChallengerID, &opponent, 5)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	bets, err := service.GetBetHistory(ctx, TestBettorCID, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(5), bets[0].Profit())

	changes, err := service.GetBalanceHistory(ctx, TestBettorCID, 20)
	require.NoError(t, err)
	assert.Len(t, changes, 1)

	self := TestChallengerID
	_, err = service.GetMatchHistory(ctx, TestChallengerID, &self, 5)
	NewAssertionHelper(t).AssertLedgerError(err, models.ErrorKindInvalidArgument)

	mocks.AssertAllExpectations(t)
}

func TestStatsService_GetEconomySummary(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	mocks.AccountRepo.On("GetEconomySummary", ctx).Return(&models.EconomySummary{
		GuildID:         TestGuildID,
		TotalBalance:    260,
		EscrowedMatches: 40,
		EscrowedBets:    15,
	}, nil)

	summary, err := mocks.StatsService().GetEconomySummary(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(315), summary.TotalSupply())
	mocks.AssertAllExpectations(t)
}
