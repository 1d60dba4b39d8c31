package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"marbles/application"
	"marbles/events"
	"marbles/models"
	"marbles/repository"
	"marbles/repository/testutil"
	"marbles/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guildID   int64 = 555000111
	playerA   int64 = 1001
	playerB   int64 = 1002
	bettorC   int64 = 1003
	bettorD   int64 = 1004
	bystander int64 = 1005
)

func setupLedger(t *testing.T) (*application.Ledger, *events.Bus) {
	t.Helper()
	testDB := testutil.SetupTestDatabase(t)

	bus := events.NewSyncBus()
	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, bus)
	return application.NewLedger(uowFactory, service.DefaultEconomyConfig()), bus
}

func fund(t *testing.T, ctx context.Context, ledger *application.Ledger, balances map[int64]int64) {
	t.Helper()
	for id, balance := range balances {
		_, err := ledger.EnsureAccount(ctx, models.Identity{GuildID: guildID, DiscordID: id, DisplayName: "player"})
		require.NoError(t, err)
		_, err = ledger.SetBalance(ctx, guildID, id, balance)
		require.NoError(t, err)
	}
}

func balanceOf(t *testing.T, ctx context.Context, ledger *application.Ledger, id int64) int64 {
	t.Helper()
	account, err := ledger.GetAccount(ctx, guildID, id)
	require.NoError(t, err)
	return account.Balance
}

func TestLedger_MatchWithSideBets(t *testing.T) {
	t.Parallel()
	ledger, bus := setupLedger(t)
	ctx := context.Background()

	var resolvedEvents []events.MatchResolvedEvent
	bus.Subscribe(events.EventTypeMatchResolved, func(ctx context.Context, event events.Event) {
		resolvedEvents = append(resolvedEvents, event.(events.MatchResolvedEvent))
	})

	fund(t, ctx, ledger, map[int64]int64{playerA: 100, playerB: 100, bettorC: 50, bettorD: 50})

	match, err := ledger.Propose(ctx, guildID, playerA, playerB, 20, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balanceOf(t, ctx, ledger, playerA), "proposing debits nothing")

	_, err = ledger.Accept(ctx, guildID, match.ID, playerB)
	require.NoError(t, err)
	assert.Equal(t, int64(80), balanceOf(t, ctx, ledger, playerA))
	assert.Equal(t, int64(80), balanceOf(t, ctx, ledger, playerB))

	_, err = ledger.PlaceBet(ctx, guildID, match.ID, bettorC, playerA, 10)
	require.NoError(t, err)
	_, err = ledger.PlaceBet(ctx, guildID, match.ID, bettorD, playerB, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(40), balanceOf(t, ctx, ledger, bettorC))
	assert.Equal(t, int64(45), balanceOf(t, ctx, ledger, bettorD))

	summary, err := ledger.EconomySummary(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), summary.TotalSupply())
	assert.Equal(t, int64(40), summary.EscrowedMatches)
	assert.Equal(t, int64(15), summary.EscrowedBets)

	_, err = ledger.Start(ctx, guildID, match.ID)
	require.NoError(t, err)

	_, err = ledger.PlaceBet(ctx, guildID, match.ID, bystander, playerA, 1)
	assert.ErrorIs(t, err, models.ErrInvalidState, "betting closes when the match starts")

	result, err := ledger.Resolve(ctx, guildID, match.ID, playerA)
	require.NoError(t, err)
	assert.Equal(t, int64(120), result.Winner.Balance)
	assert.Equal(t, 1, result.Winner.Wins)
	assert.Equal(t, 1, result.Loser.Losses)
	assert.Greater(t, result.Winner.Elo, result.Loser.Elo)

	assert.Equal(t, int64(120), balanceOf(t, ctx, ledger, playerA))
	assert.Equal(t, int64(80), balanceOf(t, ctx, ledger, playerB))
	assert.Equal(t, int64(55), balanceOf(t, ctx, ledger, bettorC))
	assert.Equal(t, int64(45), balanceOf(t, ctx, ledger, bettorD))

	summary, err = ledger.EconomySummary(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), summary.TotalSupply())
	assert.Zero(t, summary.LiveMatches)
	assert.Zero(t, summary.LiveBets)

	archived, bets, err := ledger.GetResolvedMatch(ctx, guildID, match.ID)
	require.NoError(t, err)
	assert.Equal(t, playerA, archived.WinnerID)
	require.Len(t, bets, 2)

	require.Len(t, resolvedEvents, 1)
	assert.Equal(t, int64(15), resolvedEvents[0].TotalPaid)

	t.Run("second resolve is rejected", func(t *testing.T) {
		_, err := ledger.Resolve(ctx, guildID, match.ID, playerB)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		assert.Equal(t, int64(120), balanceOf(t, ctx, ledger, playerA))
		assert.Equal(t, int64(80), balanceOf(t, ctx, ledger, playerB))
	})

	t.Run("players are free for a new match", func(t *testing.T) {
		next, err := ledger.Propose(ctx, guildID, playerB, playerA, 5, "", "")
		require.NoError(t, err)
		assert.NotEqual(t, match.ID, next.ID)
		require.NoError(t, ledger.Cancel(ctx, guildID, next.ID))
	})

	t.Run("history and stats", func(t *testing.T) {
		history, err := ledger.MatchHistory(ctx, guildID, playerA, nil, 10)
		require.NoError(t, err)
		require.Len(t, history, 1)

		betHistory, err := ledger.BetHistory(ctx, guildID, bettorC, 10)
		require.NoError(t, err)
		require.Len(t, betHistory, 1)
		assert.Equal(t, int64(5), betHistory[0].Profit())

		stats, err := ledger.PlayerStats(ctx, guildID, bettorD)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.BetStats.TotalLosses)

		board, err := ledger.Leaderboard(ctx, guildID, models.LeaderboardStatBalance, 2)
		require.NoError(t, err)
		require.Len(t, board, 2)
		assert.Equal(t, playerA, board[0].Account.DiscordID)
	})
}

func TestLedger_CancelRefundsEverything(t *testing.T) {
	t.Parallel()
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	fund(t, ctx, ledger, map[int64]int64{playerA: 30, playerB: 30, bettorC: 30})

	match, err := ledger.Propose(ctx, guildID, playerA, playerB, 10, "melee", "Bo5")
	require.NoError(t, err)
	_, err = ledger.Accept(ctx, guildID, match.ID, playerB)
	require.NoError(t, err)
	_, err = ledger.PlaceBet(ctx, guildID, match.ID, bettorC, playerB, 12)
	require.NoError(t, err)

	require.NoError(t, ledger.Cancel(ctx, guildID, match.ID))

	for _, id := range []int64{playerA, playerB, bettorC} {
		assert.Equal(t, int64(30), balanceOf(t, ctx, ledger, id))
	}

	err = ledger.Cancel(ctx, guildID, match.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, _, err = ledger.GetResolvedMatch(ctx, guildID, match.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "cancelled matches leave no history")
}

func TestLedger_ConcurrentBets(t *testing.T) {
	t.Parallel()
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	balances := map[int64]int64{playerA: 50, playerB: 50}
	const bettors = 8
	for i := int64(0); i < bettors; i++ {
		balances[2000+i] = 10
	}
	fund(t, ctx, ledger, balances)

	match, err := ledger.Propose(ctx, guildID, playerA, playerB, 10, "", "")
	require.NoError(t, err)
	_, err = ledger.Accept(ctx, guildID, match.ID, playerB)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, bettors*2)
	for i := int64(0); i < bettors; i++ {
		target := playerA
		if i%2 == 1 {
			target = playerB
		}
		// every bettor races two bets of different sizes against each other
		for _, amount := range []int64{3 + i%4, 7} {
			wg.Add(1)
			go func(bettor, target, amount int64) {
				defer wg.Done()
				_, err := ledger.PlaceBet(ctx, guildID, match.ID, bettor, target, amount)
				errs <- err
			}(2000+i, target, amount)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	bets, err := ledger.ListBets(ctx, guildID, match.ID)
	require.NoError(t, err)
	require.Len(t, bets, bettors, "one bet per bettor survives")

	var staked int64
	for _, bet := range bets {
		staked += bet.Amount
		assert.Equal(t, 10-bet.Amount, balanceOf(t, ctx, ledger, bet.BettorID))
	}

	summary, err := ledger.EconomySummary(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, staked, summary.EscrowedBets)
	assert.Equal(t, int64(100+bettors*10), summary.TotalSupply())

	_, err = ledger.Start(ctx, guildID, match.ID)
	require.NoError(t, err)
	result, err := ledger.Resolve(ctx, guildID, match.ID, playerB)
	require.NoError(t, err)

	summary, err = ledger.EconomySummary(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, int64(100+bettors*10)+result.Settlement.HouseDelta(), summary.TotalSupply())
}

func TestLedger_ConcurrentProposalsKeepOneLiveMatch(t *testing.T) {
	t.Parallel()
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	fund(t, ctx, ledger, map[int64]int64{playerA: 50, playerB: 50, bettorC: 50})

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, opponent := range []int64{playerB, bettorC} {
		wg.Add(1)
		go func(opponent int64) {
			defer wg.Done()
			_, err := ledger.Propose(ctx, guildID, playerA, opponent, 10, "", "")
			results <- err
		}(opponent)
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	matches, err := ledger.ListMatches(ctx, guildID)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestLedger_TransferAndFriendly(t *testing.T) {
	t.Parallel()
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	fund(t, ctx, ledger, map[int64]int64{playerA: 10, playerB: 0})

	_, _, err := ledger.Transfer(ctx, guildID, playerA, playerB, 11)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	from, to, err := ledger.Transfer(ctx, guildID, playerA, playerB, 10)
	require.NoError(t, err)
	assert.Zero(t, from.Balance)
	assert.Equal(t, int64(10), to.Balance)

	_, err = ledger.Debit(ctx, guildID, playerA, 1)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	_, _, err = ledger.ClaimFriendly(ctx, guildID, playerA, playerB)
	require.NoError(t, err)
	_, _, err = ledger.ClaimFriendly(ctx, guildID, playerB, playerA)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	assert.Equal(t, int64(1), balanceOf(t, ctx, ledger, playerA))
	assert.Equal(t, int64(11), balanceOf(t, ctx, ledger, playerB))

	changes, err := ledger.BalanceHistory(ctx, guildID, playerB, 10)
	require.NoError(t, err)
	require.NotEmpty(t, changes)
	assert.Equal(t, models.TransactionTypeFriendly, changes[0].TransactionType)
}

func TestLedger_CancelRacesTransfer(t *testing.T) {
	t.Parallel()
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	fund(t, ctx, ledger, map[int64]int64{playerA: 100, playerB: 100, bettorC: 100})

	for round := 0; round < 5; round++ {
		// B challenges so its refund would come first without ordered locking
		match, err := ledger.Propose(ctx, guildID, playerB, playerA, 10, "", "")
		require.NoError(t, err)
		_, err = ledger.Accept(ctx, guildID, match.ID, playerA)
		require.NoError(t, err)
		_, err = ledger.PlaceBet(ctx, guildID, match.ID, bettorC, playerA, 5)
		require.NoError(t, err)

		// the transfer locks A then B, the cancel refunds both players and the bettor
		var wg sync.WaitGroup
		errs := make(chan error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, err := ledger.Transfer(ctx, guildID, playerB, playerA, 1)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- ledger.Cancel(ctx, guildID, match.ID)
		}()
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err, "round %d", round)
		}
	}

	assert.Equal(t, int64(105), balanceOf(t, ctx, ledger, playerA))
	assert.Equal(t, int64(95), balanceOf(t, ctx, ledger, playerB))
	assert.Equal(t, int64(100), balanceOf(t, ctx, ledger, bettorC))
}

func TestLedger_SeasonRanking(t *testing.T) {
	t.Parallel()
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	fund(t, ctx, ledger, map[int64]int64{playerA: 100, playerB: 100, bettorC: 50, bettorD: 50})

	_, err := ledger.Leaderboard(ctx, guildID, models.LeaderboardStatSeason, 10)
	assert.ErrorIs(t, err, models.ErrInvalidState, "no season yet")

	season, err := ledger.StartSeason(ctx, guildID, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, season.Number)

	_, err = ledger.StartSeason(ctx, guildID, time.Now().Add(48*time.Hour))
	assert.ErrorIs(t, err, models.ErrInvalidState, "one open season at a time")

	match, err := ledger.Propose(ctx, guildID, playerA, playerB, 20, "", "")
	require.NoError(t, err)
	_, err = ledger.Accept(ctx, guildID, match.ID, playerB)
	require.NoError(t, err)
	_, err = ledger.PlaceBet(ctx, guildID, match.ID, bettorC, playerA, 10)
	require.NoError(t, err)
	_, err = ledger.PlaceBet(ctx, guildID, match.ID, bettorD, playerB, 5)
	require.NoError(t, err)
	_, err = ledger.Start(ctx, guildID, match.ID)
	require.NoError(t, err)
	_, err = ledger.Resolve(ctx, guildID, match.ID, playerA)
	require.NoError(t, err)

	// grants are not play
	_, err = ledger.Credit(ctx, guildID, playerB, 500)
	require.NoError(t, err)

	standings, err := ledger.SeasonStandings(ctx, guildID, 0, 10)
	require.NoError(t, err)
	require.Len(t, standings, 4)
	var order []int64
	var values []float64
	for _, entry := range standings {
		order = append(order, entry.Account.DiscordID)
		values = append(values, entry.Value)
	}
	assert.Equal(t, []int64{playerA, bettorC, bettorD, playerB}, order)
	assert.Equal(t, []float64{20, 5, -5, -20}, values)

	t.Run("season stat on the leaderboard", func(t *testing.T) {
		position, err := ledger.LeaderboardPosition(ctx, guildID, models.LeaderboardStatSeason, playerB)
		require.NoError(t, err)
		assert.Equal(t, 4, position.Rank)
	})

	t.Run("history stats", func(t *testing.T) {
		played, err := ledger.Leaderboard(ctx, guildID, models.LeaderboardStatMatchCount, 10)
		require.NoError(t, err)
		require.Len(t, played, 2)
		assert.Equal(t, playerA, played[0].Account.DiscordID)

		wagered, err := ledger.LeaderboardPosition(ctx, guildID, models.LeaderboardStatBetTotal, bettorC)
		require.NoError(t, err)
		assert.Equal(t, 1, wagered.Rank)
		assert.Equal(t, float64(10), wagered.Value)

		winRate, err := ledger.LeaderboardPosition(ctx, guildID, models.LeaderboardStatBetWinRate, bettorD)
		require.NoError(t, err)
		assert.Equal(t, 2, winRate.Rank)
		assert.Equal(t, float64(0), winRate.Value)

		_, err = ledger.LeaderboardPosition(ctx, guildID, models.LeaderboardStatBetTotal, playerA)
		assert.ErrorIs(t, err, models.ErrNotFound, "players who never bet have no bet_total standing")
	})

	t.Run("end and list", func(t *testing.T) {
		ended, err := ledger.EndSeason(ctx, guildID)
		require.NoError(t, err)
		assert.False(t, ended.IsActive())

		_, err = ledger.CurrentSeason(ctx, guildID)
		assert.ErrorIs(t, err, models.ErrInvalidState)

		seasons, err := ledger.ListSeasons(ctx, guildID)
		require.NoError(t, err)
		require.Len(t, seasons, 1)

		final, err := ledger.SeasonStandings(ctx, guildID, 1, 1)
		require.NoError(t, err)
		require.Len(t, final, 1)
		assert.Equal(t, playerA, final[0].Account.DiscordID)
	})
}
