package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"marbles/models"
	"marbles/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGuildID int64 = 987654321

func TestAccountRepository_GetByDiscordID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB, testGuildID)
	ctx := context.Background()

	t.Run("account not found", func(t *testing.T) {
		account, err := repo.GetByDiscordID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("account found", func(t *testing.T) {
		created, err := repo.Create(ctx, 123456, "alice", 10, 1200)
		require.NoError(t, err)

		account, err := repo.GetByDiscordID(ctx, 123456)
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.Equal(t, created.ID, account.ID)
		assert.Equal(t, testGuildID, account.GuildID)
		assert.Equal(t, "alice", account.DisplayName)
		assert.Equal(t, int64(10), account.Balance)
		assert.Equal(t, float64(1200), account.Elo)
		assert.Nil(t, account.FriendlyLastUsed)
	})

	t.Run("guild isolation", func(t *testing.T) {
		other := NewAccountRepository(testDB.DB, testGuildID+1)
		account, err := other.GetByDiscordID(ctx, 123456)
		require.NoError(t, err)
		assert.Nil(t, account)
	})
}

func TestAccountRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB, testGuildID)
	ctx := context.Background()

	t.Run("duplicate discord ID in same guild", func(t *testing.T) {
		_, err := repo.Create(ctx, 789012, "bob", 10, 1200)
		require.NoError(t, err)

		_, err = repo.Create(ctx, 789012, "bob again", 10, 1200)
		assert.Error(t, err)
	})

	t.Run("same discord ID in another guild", func(t *testing.T) {
		other := NewAccountRepository(testDB.DB, testGuildID+1)
		account, err := other.Create(ctx, 789012, "bob", 25, 1200)
		require.NoError(t, err)
		assert.Equal(t, int64(25), account.Balance)
	})
}

func TestAccountRepository_BalanceOperations(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB, testGuildID)
	ctx := context.Background()

	_, err := repo.Create(ctx, 111111, "carol", 50, 1200)
	require.NoError(t, err)

	t.Run("add balance", func(t *testing.T) {
		balance, err := repo.AddBalance(ctx, 111111, 15)
		require.NoError(t, err)
		assert.Equal(t, int64(65), balance)
	})

	t.Run("deduct balance", func(t *testing.T) {
		balance, err := repo.DeductBalance(ctx, 111111, 65)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	})

	t.Run("deduct more than balance fails without clamping", func(t *testing.T) {
		_, err := repo.DeductBalance(ctx, 111111, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrInsufficientFunds))

		account, err := repo.GetByDiscordID(ctx, 111111)
		require.NoError(t, err)
		assert.Equal(t, int64(0), account.Balance)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := repo.DeductBalance(ctx, 424242, 1)
		assert.True(t, errors.Is(err, models.ErrNotFound))

		_, err = repo.AddBalance(ctx, 424242, 1)
		assert.True(t, errors.Is(err, models.ErrNotFound))

		err = repo.SetBalance(ctx, 424242, 1)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("set balance", func(t *testing.T) {
		require.NoError(t, repo.SetBalance(ctx, 111111, 42))

		account, err := repo.GetByDiscordID(ctx, 111111)
		require.NoError(t, err)
		assert.Equal(t, int64(42), account.Balance)
	})

	t.Run("schema rejects negative balance", func(t *testing.T) {
		assert.Error(t, repo.SetBalance(ctx, 111111, -1))
	})
}

func TestAccountRepository_Counters(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB, testGuildID)
	ctx := context.Background()

	_, err := repo.Create(ctx, 222222, "dave", 10, 1200)
	require.NoError(t, err)

	wins, err := repo.AdjustWins(ctx, 222222, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, wins)

	wins, err = repo.AdjustWins(ctx, 222222, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, wins, "counter never drops below zero")

	losses, err := repo.AdjustLosses(ctx, 222222, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, losses)

	require.NoError(t, repo.UpdateElo(ctx, 222222, 1216.5))
	require.NoError(t, repo.UpdateDisplayName(ctx, 222222, "David"))

	usedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateFriendlyLastUsed(ctx, 222222, usedAt))

	account, err := repo.GetByDiscordID(ctx, 222222)
	require.NoError(t, err)
	assert.Equal(t, 0, account.Wins)
	assert.Equal(t, 2, account.Losses)
	assert.Equal(t, 1216.5, account.Elo)
	assert.Equal(t, "David", account.DisplayName)
	require.NotNil(t, account.FriendlyLastUsed)
	assert.True(t, usedAt.Equal(*account.FriendlyLastUsed))

	_, err = repo.AdjustLosses(ctx, 999, 1)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestAccountRepository_LockAccounts(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB, testGuildID)
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		_, err := repo.Create(ctx, id, "player", 10, 1200)
		require.NoError(t, err)
	}

	tx, err := testDB.DB.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	locked, err := newAccountRepository(tx, testGuildID).LockAccounts(ctx, 3, 1, 77)
	require.NoError(t, err)
	assert.Len(t, locked, 2)
	assert.Contains(t, locked, int64(1))
	assert.Contains(t, locked, int64(3))
	assert.NotContains(t, locked, int64(77))
}

func TestAccountRepository_LeaderboardAndSummary(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB, testGuildID)
	matchRepo := NewMatchRepository(testDB.DB, testGuildID)
	betRepo := NewBetRepository(testDB.DB, testGuildID)
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, "one", 100, 1200)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, "two", 30, 1250)
	require.NoError(t, err)
	_, err = repo.Create(ctx, 3, "three", 30, 1100)
	require.NoError(t, err)

	_, err = repo.AdjustWins(ctx, 2, 3)
	require.NoError(t, err)
	_, err = repo.AdjustLosses(ctx, 2, 1)
	require.NoError(t, err)
	_, err = repo.AdjustWins(ctx, 3, 1)
	require.NoError(t, err)

	t.Run("balance with id tie break", func(t *testing.T) {
		accounts, err := repo.GetLeaderboard(ctx, models.LeaderboardStatBalance, 10)
		require.NoError(t, err)
		require.Len(t, accounts, 3)
		assert.Equal(t, []int64{1, 2, 3}, []int64{accounts[0].DiscordID, accounts[1].DiscordID, accounts[2].DiscordID})
	})

	t.Run("winrate", func(t *testing.T) {
		accounts, err := repo.GetLeaderboard(ctx, models.LeaderboardStatWinRate, 2)
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, int64(3), accounts[0].DiscordID) // 100%
		assert.Equal(t, int64(2), accounts[1].DiscordID) // 75%
	})

	t.Run("elo", func(t *testing.T) {
		accounts, err := repo.GetLeaderboard(ctx, models.LeaderboardStatElo, 1)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, int64(2), accounts[0].DiscordID)
	})

	t.Run("unknown stat", func(t *testing.T) {
		_, err := repo.GetLeaderboard(ctx, "height", 10)
		assert.True(t, errors.Is(err, models.ErrInvalidArgument))

		_, err = repo.GetStanding(ctx, "height", 1)
		assert.True(t, errors.Is(err, models.ErrInvalidArgument))
	})

	t.Run("standing of one account", func(t *testing.T) {
		standing, err := repo.GetStanding(ctx, models.LeaderboardStatBalance, 3)
		require.NoError(t, err)
		require.NotNil(t, standing)
		assert.Equal(t, 3, standing.Rank, "tied with account 2 on balance, ranked after it by id")
		assert.Equal(t, float64(30), standing.Value)

		standing, err = repo.GetStanding(ctx, models.LeaderboardStatWinRate, 2)
		require.NoError(t, err)
		require.NotNil(t, standing)
		assert.Equal(t, 2, standing.Rank)
		assert.InDelta(t, 75.0, standing.Value, 1e-9)

		missing, err := repo.GetStanding(ctx, models.LeaderboardStatElo, 77)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("economy summary counts escrow", func(t *testing.T) {
		match := testutil.CreateTestAcceptedMatch(1, 2, 10)
		require.NoError(t, matchRepo.Create(ctx, match))
		require.NoError(t, betRepo.Create(ctx, testutil.CreateTestBet(match.ID, 3, 1, 7)))

		summary, err := repo.GetEconomySummary(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.AccountCount)
		assert.Equal(t, int64(160), summary.TotalBalance)
		assert.Equal(t, int64(20), summary.EscrowedMatches)
		assert.Equal(t, int64(7), summary.EscrowedBets)
		assert.Equal(t, 1, summary.LiveMatches)
		assert.Equal(t, 1, summary.LiveBets)
		assert.Equal(t, int64(187), summary.TotalSupply())
	})
}
