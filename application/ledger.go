package application

import (
	"context"
	"fmt"
	"time"

	"marbles/models"
	"marbles/service"
)

// Ledger is the entry point to the marble economy. Every operation runs in its
// own guild-scoped unit of work: it either commits completely, with its events
// flushed afterwards, or leaves no trace.
type Ledger struct {
	uowFactory service.UnitOfWorkFactory
	economy    service.EconomyConfig
	now        func() time.Time
}

// NewLedger creates a ledger over the given unit of work factory
func NewLedger(uowFactory service.UnitOfWorkFactory, economy service.EconomyConfig) *Ledger {
	return &Ledger{
		uowFactory: uowFactory,
		economy:    economy,
		now:        time.Now,
	}
}

// inUnitOfWork runs fn in a transaction scoped to guildID. Errors that are not
// ledger errors are reported as storage failures.
func (l *Ledger) inUnitOfWork(ctx context.Context, guildID int64, fn func(uow service.UnitOfWork) error) error {
	uow := l.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return models.NewStorageFailure("failed to begin transaction", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return models.AsLedgerError(err)
	}

	if err := uow.Commit(); err != nil {
		return models.NewStorageFailure("failed to commit transaction", err)
	}
	return nil
}

func (l *Ledger) accountService(uow service.UnitOfWork) service.AccountService {
	return service.NewAccountService(uow.AccountRepository(), uow.BalanceHistoryRepository(), uow.EventBus(), l.economy)
}

func (l *Ledger) matchService(uow service.UnitOfWork) service.MatchService {
	return service.NewMatchService(
		uow.AccountRepository(),
		uow.MatchRepository(),
		uow.BetRepository(),
		uow.HistoryRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
		l.economy,
	)
}

func (l *Ledger) betService(uow service.UnitOfWork) service.BetService {
	return service.NewBetService(
		uow.AccountRepository(),
		uow.MatchRepository(),
		uow.BetRepository(),
		uow.HistoryRepository(),
		uow.BalanceHistoryRepository(),
		uow.EventBus(),
	)
}

func (l *Ledger) statsService(uow service.UnitOfWork) service.StatsService {
	return service.NewStatsService(
		uow.AccountRepository(),
		uow.MatchRepository(),
		uow.BetRepository(),
		uow.HistoryRepository(),
		uow.BalanceHistoryRepository(),
		uow.SeasonRepository(),
	)
}

func (l *Ledger) seasonService(uow service.UnitOfWork) service.SeasonService {
	return service.NewSeasonService(uow.AccountRepository(), uow.SeasonRepository())
}

// EnsureAccount returns the account for identity, creating it with the starting
// balance on first sight and keeping its display name current
func (l *Ledger) EnsureAccount(ctx context.Context, identity models.Identity) (*models.Account, error) {
	var account *models.Account
	err := l.inUnitOfWork(ctx, identity.GuildID, func(uow service.UnitOfWork) error {
		accounts := l.accountService(uow)

		var err error
		account, err = accounts.GetOrCreateAccount(ctx, identity.DiscordID, identity.DisplayName)
		if err != nil {
			return err
		}
		if identity.DisplayName != "" && account.DisplayName != identity.DisplayName {
			account, err = accounts.SetDisplayName(ctx, identity.DiscordID, identity.DisplayName)
		}
		return err
	})
	return account, err
}

// GetAccount returns an existing account
func (l *Ledger) GetAccount(ctx context.Context, guildID, discordID int64) (*models.Account, error) {
	var account *models.Account
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		account, err = l.accountService(uow).GetAccount(ctx, discordID)
		return err
	})
	return account, err
}

// Credit adds marbles to an account
func (l *Ledger) Credit(ctx context.Context, guildID, discordID, amount int64) (*models.Account, error) {
	var account *models.Account
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		account, err = l.accountService(uow).Credit(ctx, discordID, amount)
		return err
	})
	return account, err
}

// Debit removes marbles from an account, failing rather than going below zero
func (l *Ledger) Debit(ctx context.Context, guildID, discordID, amount int64) (*models.Account, error) {
	var account *models.Account
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		account, err = l.accountService(uow).Debit(ctx, discordID, amount)
		return err
	})
	return account, err
}

// Transfer moves marbles between two accounts of the same guild
func (l *Ledger) Transfer(ctx context.Context, guildID, fromID, toID, amount int64) (*models.Account, *models.Account, error) {
	var from, to *models.Account
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		from, to, err = l.accountService(uow).Transfer(ctx, fromID, toID, amount)
		return err
	})
	return from, to, err
}

// AdjustWins changes an account's win counter; it never drops below zero
func (l *Ledger) AdjustWins(ctx context.Context, guildID, discordID int64, delta int) (*models.Account, error) {
	var account *models.Account
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		account, err = l.accountService(uow).AdjustWins(ctx, discordID, delta)
		return err
	})
	return account, err
}

// AdjustLosses changes an account's loss counter; it never drops below zero
func (l *Ledger) AdjustLosses(ctx context.Context, guildID, discordID int64, delta int) (*models.Account, error) {
	var account *models.Account
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		account, err = l.accountService(uow).AdjustLosses(ctx, discordID, delta)
		return err
	})
	return account, err
}

// SetDisplayName renames an account
func (l *Ledger) SetDisplayName(ctx context.Context, guildID, discordID int64, displayName string) (*models.Account, error) {
	var account *models.Account
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		account, err = l.accountService(uow).SetDisplayName(ctx, discordID, displayName)
		return err
	})
	return account, err
}

// SetBalance overwrites an account's balance
func (l *Ledger) SetBalance(ctx context.Context, guildID, discordID, balance int64) (*models.Account, error) {
	var account *models.Account
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		account, err = l.accountService(uow).SetBalance(ctx, discordID, balance)
		return err
	})
	return account, err
}

// ClaimFriendly rewards both players of a friendly game
func (l *Ledger) ClaimFriendly(ctx context.Context, guildID, playerID, opponentID int64) (*models.Account, *models.Account, error) {
	var player, opponent *models.Account
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		player, opponent, err = l.accountService(uow).ClaimFriendly(ctx, playerID, opponentID, l.now())
		return err
	})
	return player, opponent, err
}

// Propose creates a match between two accounts
func (l *Ledger) Propose(ctx context.Context, guildID, challengerID, recipientID, amount int64, game, format string) (*models.Match, error) {
	var match *models.Match
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		match, err = l.matchService(uow).Propose(ctx, challengerID, recipientID, amount, game, format)
		return err
	})
	return match, err
}

// Accept debits both stakes and opens betting
func (l *Ledger) Accept(ctx context.Context, guildID, matchID, callerID int64) (*models.Match, error) {
	var match *models.Match
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		match, err = l.matchService(uow).Accept(ctx, matchID, callerID)
		return err
	})
	return match, err
}

// Start closes betting on an accepted match
func (l *Ledger) Start(ctx context.Context, guildID, matchID int64) (*models.Match, error) {
	var match *models.Match
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		match, err = l.matchService(uow).Start(ctx, matchID)
		return err
	})
	return match, err
}

// Resolve declares the winner, settles the bet book and archives the match
func (l *Ledger) Resolve(ctx context.Context, guildID, matchID, winnerID int64) (*models.MatchResult, error) {
	var result *models.MatchResult
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		result, err = l.matchService(uow).Resolve(ctx, matchID, winnerID)
		return err
	})
	return result, err
}

// Cancel refunds a match that has not started and removes it
func (l *Ledger) Cancel(ctx context.Context, guildID, matchID int64) error {
	return l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		return l.matchService(uow).Cancel(ctx, matchID)
	})
}

// GetMatch returns a live match
func (l *Ledger) GetMatch(ctx context.Context, guildID, matchID int64) (*models.Match, error) {
	var match *models.Match
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		match, err = l.matchService(uow).GetMatch(ctx, matchID)
		return err
	})
	return match, err
}

// GetLiveMatchFor returns the live match an account plays in, nil when there is none
func (l *Ledger) GetLiveMatchFor(ctx context.Context, guildID, discordID int64) (*models.Match, error) {
	var match *models.Match
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		match, err = l.matchService(uow).GetLiveMatchFor(ctx, discordID)
		return err
	})
	return match, err
}

// ListMatches returns every live match in the guild
func (l *Ledger) ListMatches(ctx context.Context, guildID int64) ([]*models.Match, error) {
	var matches []*models.Match
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		matches, err = l.matchService(uow).ListLiveMatches(ctx)
		return err
	})
	return matches, err
}

// GetResolvedMatch returns an archived match together with its settled bets
func (l *Ledger) GetResolvedMatch(ctx context.Context, guildID, matchID int64) (*models.MatchHistory, []*models.BetHistory, error) {
	var match *models.MatchHistory
	var bets []*models.BetHistory
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		match, err = uow.HistoryRepository().GetMatch(ctx, matchID)
		if err != nil {
			return fmt.Errorf("failed to get resolved match: %w", err)
		}
		if match == nil {
			return models.NewNotFound("resolved match", matchID)
		}

		bets, err = uow.HistoryRepository().ListBetsByMatch(ctx, matchID)
		if err != nil {
			return fmt.Errorf("failed to get settled bets: %w", err)
		}
		return nil
	})
	return match, bets, err
}

// PlaceBet creates, replaces or, with a zero amount, removes a bet
func (l *Ledger) PlaceBet(ctx context.Context, guildID, matchID, bettorID, targetID, amount int64) (*models.BetPlacement, error) {
	var placement *models.BetPlacement
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		placement, err = l.betService(uow).PlaceBet(ctx, matchID, bettorID, targetID, amount)
		return err
	})
	return placement, err
}

// ListBets returns the live bets on a match
func (l *Ledger) ListBets(ctx context.Context, guildID, matchID int64) ([]*models.Bet, error) {
	var bets []*models.Bet
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		bets, err = l.betService(uow).ListForMatch(ctx, matchID)
		return err
	})
	return bets, err
}

// Leaderboard ranks the guild's accounts by stat
func (l *Ledger) Leaderboard(ctx context.Context, guildID int64, stat models.LeaderboardStat, limit int) ([]*models.LeaderboardEntry, error) {
	var entries []*models.LeaderboardEntry
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		entries, err = l.statsService(uow).GetLeaderboard(ctx, stat, limit)
		return err
	})
	return entries, err
}

// LeaderboardPosition returns one account's place on the leaderboard of stat
func (l *Ledger) LeaderboardPosition(ctx context.Context, guildID int64, stat models.LeaderboardStat, discordID int64) (*models.LeaderboardEntry, error) {
	var entry *models.LeaderboardEntry
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		entry, err = l.statsService(uow).GetLeaderboardPosition(ctx, stat, discordID)
		return err
	})
	return entry, err
}

// StartSeason opens the guild's next ranked season
func (l *Ledger) StartSeason(ctx context.Context, guildID int64, endsAt time.Time) (*models.Season, error) {
	var season *models.Season
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		season, err = l.seasonService(uow).Start(ctx, endsAt, l.now())
		return err
	})
	return season, err
}

// EndSeason closes the guild's open season
func (l *Ledger) EndSeason(ctx context.Context, guildID int64) (*models.Season, error) {
	var season *models.Season
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		season, err = l.seasonService(uow).End(ctx, l.now())
		return err
	})
	return season, err
}

// CurrentSeason returns the guild's open season
func (l *Ledger) CurrentSeason(ctx context.Context, guildID int64) (*models.Season, error) {
	var season *models.Season
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		season, err = l.seasonService(uow).Current(ctx)
		return err
	})
	return season, err
}

// ListSeasons returns every season of the guild
func (l *Ledger) ListSeasons(ctx context.Context, guildID int64) ([]*models.Season, error) {
	var seasons []*models.Season
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		seasons, err = l.seasonService(uow).List(ctx)
		return err
	})
	return seasons, err
}

// SeasonStandings ranks a season, the latest one when number is 0
func (l *Ledger) SeasonStandings(ctx context.Context, guildID int64, number int, limit int) ([]*models.LeaderboardEntry, error) {
	var entries []*models.LeaderboardEntry
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		entries, err = l.seasonService(uow).Standings(ctx, number, limit)
		return err
	})
	return entries, err
}

// PlayerStats returns an account's record and betting statistics
func (l *Ledger) PlayerStats(ctx context.Context, guildID, discordID int64) (*models.PlayerStats, error) {
	var stats *models.PlayerStats
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		stats, err = l.statsService(uow).GetPlayerStats(ctx, discordID)
		return err
	})
	return stats, err
}

// EconomySummary returns the guild's marble supply
func (l *Ledger) EconomySummary(ctx context.Context, guildID int64) (*models.EconomySummary, error) {
	var summary *models.EconomySummary
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		summary, err = l.statsService(uow).GetEconomySummary(ctx)
		return err
	})
	return summary, err
}

// MatchHistory returns an account's resolved matches, optionally against one opponent
func (l *Ledger) MatchHistory(ctx context.Context, guildID, discordID int64, opponentID *int64, limit int) ([]*models.MatchHistory, error) {
	var history []*models.MatchHistory
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		history, err = l.statsService(uow).GetMatchHistory(ctx, discordID, opponentID, limit)
		return err
	})
	return history, err
}

// BetHistory returns a bettor's settled bets
func (l *Ledger) BetHistory(ctx context.Context, guildID, bettorID int64, limit int) ([]*models.BetHistory, error) {
	var history []*models.BetHistory
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		history, err = l.statsService(uow).GetBetHistory(ctx, bettorID, limit)
		return err
	})
	return history, err
}

// BalanceHistory returns an account's recent balance changes
func (l *Ledger) BalanceHistory(ctx context.Context, guildID, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	var history []*models.BalanceHistory
	err := l.inUnitOfWork(ctx, guildID, func(uow service.UnitOfWork) error {
		var err error
		history, err = l.statsService(uow).GetBalanceHistory(ctx, discordID, limit)
		return err
	})
	return history, err
}
