package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"marbles/models"
	"marbles/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testGuildID int64 = 987654321

// mockUnitOfWork hands out the service package's repository mocks
type mockUnitOfWork struct {
	mock.Mock
	mocks *service.TestMocks
}

func (u *mockUnitOfWork) Begin(ctx context.Context) error { return u.Called(ctx).Error(0) }
func (u *mockUnitOfWork) Commit() error                   { return u.Called().Error(0) }
func (u *mockUnitOfWork) Rollback() error                 { return u.Called().Error(0) }

func (u *mockUnitOfWork) AccountRepository() service.AccountRepository { return u.mocks.AccountRepo }
func (u *mockUnitOfWork) MatchRepository() service.MatchRepository     { return u.mocks.MatchRepo }
func (u *mockUnitOfWork) BetRepository() service.BetRepository         { return u.mocks.BetRepo }
func (u *mockUnitOfWork) HistoryRepository() service.HistoryRepository { return u.mocks.HistoryRepo }
func (u *mockUnitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	return u.mocks.BalanceHistoryRepo
}
func (u *mockUnitOfWork) SeasonRepository() service.SeasonRepository { return u.mocks.SeasonRepo }
func (u *mockUnitOfWork) EventBus() service.EventPublisher           { return u.mocks.EventPublisher }

type mockUnitOfWorkFactory struct {
	uow     *mockUnitOfWork
	guildID int64
}

func (f *mockUnitOfWorkFactory) CreateForGuild(guildID int64) service.UnitOfWork {
	f.guildID = guildID
	return f.uow
}

func newTestLedger() (*Ledger, *mockUnitOfWorkFactory) {
	factory := &mockUnitOfWorkFactory{uow: &mockUnitOfWork{mocks: service.NewTestMocks()}}
	return NewLedger(factory, service.DefaultEconomyConfig()), factory
}

func TestLedger_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	ledger, factory := newTestLedger()
	uow := factory.uow

	uow.On("Begin", ctx).Return(nil)
	uow.On("Commit").Return(nil)
	uow.On("Rollback").Return(nil)
	uow.mocks.AccountRepo.On("GetByDiscordID", ctx, service.TestBettorAID).
		Return(service.NewTestAccount(service.TestBettorAID, "a", 5), nil)
	uow.mocks.AccountRepo.On("AddBalance", ctx, service.TestBettorAID, int64(5)).Return(int64(10), nil)
	uow.mocks.ExpectLedgerWrites(ctx)

	account, err := ledger.Credit(ctx, testGuildID, service.TestBettorAID, 5)

	require.NoError(t, err)
	assert.Equal(t, int64(10), account.Balance)
	assert.Equal(t, testGuildID, factory.guildID)
	uow.AssertExpectations(t)
	uow.mocks.AssertAllExpectations(t)
}

func TestLedger_RollsBackOnLedgerError(t *testing.T) {
	ctx := context.Background()
	ledger, factory := newTestLedger()
	uow := factory.uow

	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)

	_, err := ledger.Credit(ctx, testGuildID, service.TestBettorAID, -1)

	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	uow.AssertNotCalled(t, "Commit")
	uow.AssertExpectations(t)
}

func TestLedger_StorageFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("begin", func(t *testing.T) {
		ledger, factory := newTestLedger()
		factory.uow.On("Begin", ctx).Return(errors.New("connection refused"))

		_, err := ledger.GetAccount(ctx, testGuildID, service.TestBettorAID)

		assert.ErrorIs(t, err, models.ErrStorageFailure)
		factory.uow.AssertNotCalled(t, "Rollback")
	})

	t.Run("repository", func(t *testing.T) {
		ledger, factory := newTestLedger()
		driverErr := errors.New("deadlock detected")
		factory.uow.On("Begin", ctx).Return(nil)
		factory.uow.On("Rollback").Return(nil)
		factory.uow.mocks.AccountRepo.On("GetByDiscordID", ctx, service.TestBettorAID).Return(nil, driverErr)

		_, err := ledger.GetAccount(ctx, testGuildID, service.TestBettorAID)

		assert.ErrorIs(t, err, models.ErrStorageFailure)
		assert.ErrorIs(t, err, driverErr)
		factory.uow.AssertNotCalled(t, "Commit")
	})

	t.Run("commit", func(t *testing.T) {
		ledger, factory := newTestLedger()
		factory.uow.On("Begin", ctx).Return(nil)
		factory.uow.On("Commit").Return(errors.New("serialization failure"))
		factory.uow.On("Rollback").Return(nil)
		factory.uow.mocks.MatchRepo.On("List", ctx).Return([]*models.Match{}, nil)

		matches, err := ledger.ListMatches(ctx, testGuildID)

		assert.ErrorIs(t, err, models.ErrStorageFailure)
		assert.Empty(t, matches)
	})
}

func TestLedger_EnsureAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the display name current", func(t *testing.T) {
		ledger, factory := newTestLedger()
		uow := factory.uow
		uow.On("Begin", ctx).Return(nil)
		uow.On("Commit").Return(nil)
		uow.On("Rollback").Return(nil)
		uow.mocks.AccountRepo.On("GetByDiscordID", ctx, service.TestChallengerID).
			Return(service.NewTestAccount(service.TestChallengerID, "old nick", 10), nil)
		uow.mocks.AccountRepo.On("UpdateDisplayName", ctx, service.TestChallengerID, "new nick").Return(nil)

		account, err := ledger.EnsureAccount(ctx, models.Identity{
			GuildID:     testGuildID,
			DiscordID:   service.TestChallengerID,
			DisplayName: "new nick",
		})

		require.NoError(t, err)
		assert.Equal(t, "new nick", account.DisplayName)
		uow.mocks.AssertAllExpectations(t)
	})

	t.Run("unchanged name writes nothing", func(t *testing.T) {
		ledger, factory := newTestLedger()
		uow := factory.uow
		uow.On("Begin", ctx).Return(nil)
		uow.On("Commit").Return(nil)
		uow.On("Rollback").Return(nil)
		uow.mocks.AccountRepo.On("GetByDiscordID", ctx, service.TestChallengerID).
			Return(service.NewTestAccount(service.TestChallengerID, "same", 10), nil)

		_, err := ledger.EnsureAccount(ctx, models.Identity{GuildID: testGuildID, DiscordID: service.TestChallengerID, DisplayName: "same"})

		require.NoError(t, err)
		uow.mocks.AccountRepo.AssertNotCalled(t, "UpdateDisplayName", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestLedger_ClaimFriendlyUsesClock(t *testing.T) {
	ctx := context.Background()
	ledger, factory := newTestLedger()
	fixed := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return fixed }

	uow := factory.uow
	uow.On("Begin", ctx).Return(nil)
	uow.On("Rollback").Return(nil)
	uow.mocks.AccountRepo.On("LockAccounts", ctx, []int64{service.TestChallengerID, service.TestRecipientID}).
		Return(map[int64]*models.Account{}, nil)

	_, _, err := ledger.ClaimFriendly(ctx, testGuildID, service.TestChallengerID, service.TestRecipientID)

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestLedger_SeasonsUseClock(t *testing.T) {
	ctx := context.Background()
	ledger, factory := newTestLedger()
	fixed := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return fixed }

	uow := factory.uow
	uow.On("Begin", ctx).Return(nil)
	uow.On("Commit").Return(nil)
	uow.On("Rollback").Return(nil)
	uow.mocks.SeasonRepo.On("GetActive", ctx).Return(nil, nil).Once()
	uow.mocks.SeasonRepo.On("GetLatest", ctx).Return(nil, nil)
	uow.mocks.SeasonRepo.On("Create", ctx, mock.MatchedBy(func(s *models.Season) bool {
		return s.StartedAt.Equal(fixed)
	})).Return(nil)

	season, err := ledger.StartSeason(ctx, testGuildID, fixed.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, season.Number)

	uow.mocks.SeasonRepo.On("GetActive", ctx).Return(season, nil).Once()
	uow.mocks.SeasonRepo.On("End", ctx, 1, fixed).Return(nil)

	ended, err := ledger.EndSeason(ctx, testGuildID)
	require.NoError(t, err)
	assert.Equal(t, fixed, *ended.EndedAt)
	uow.mocks.AssertAllExpectations(t)
}

func TestLedger_GetResolvedMatch(t *testing.T) {
	ctx := context.Background()
	ledger, factory := newTestLedger()
	uow := factory.uow
	uow.On("Begin", ctx).Return(nil)
	uow.On("Commit").Return(nil)
	uow.On("Rollback").Return(nil)
	uow.mocks.HistoryRepo.On("GetMatch", ctx, service.TestMatchID).
		Return(&models.MatchHistory{ID: service.TestMatchID, WinnerID: service.TestChallengerID}, nil)
	uow.mocks.HistoryRepo.On("GetMatch", ctx, int64(404)).Return(nil, nil)
	uow.mocks.HistoryRepo.On("ListBetsByMatch", ctx, service.TestMatchID).
		Return([]*models.BetHistory{{ID: 1, Amount: 10, Payout: 15}}, nil)

	match, bets, err := ledger.GetResolvedMatch(ctx, testGuildID, service.TestMatchID)
	require.NoError(t, err)
	assert.Equal(t, service.TestChallengerID, match.WinnerID)
	assert.Len(t, bets, 1)

	_, _, err = ledger.GetResolvedMatch(ctx, testGuildID, 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
