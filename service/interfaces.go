package service

import (
	"context"
	"time"

	"marbles/events"
	"marbles/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByDiscordID retrieves an account by its Discord ID, nil when missing
	GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error)

	// LockAccounts loads and row-locks the given accounts in ascending Discord ID order.
	// Missing accounts are absent from the returned map.
	LockAccounts(ctx context.Context, discordIDs ...int64) (map[int64]*models.Account, error)

	// Create creates a new account with the initial balance and rating
	Create(ctx context.Context, discordID int64, displayName string, initialBalance int64, initialElo float64) (*models.Account, error)

	// AddBalance adds to an account's balance atomically and returns the new balance
	AddBalance(ctx context.Context, discordID int64, amount int64) (int64, error)

	// DeductBalance deducts from an account's balance atomically, failing with
	// InsufficientFunds instead of going below zero
	DeductBalance(ctx context.Context, discordID int64, amount int64) (int64, error)

	// SetBalance overwrites an account's balance
	SetBalance(ctx context.Context, discordID int64, balance int64) error

	// AdjustWins and AdjustLosses change the counters, never below zero
	AdjustWins(ctx context.Context, discordID int64, delta int) (int, error)
	AdjustLosses(ctx context.Context, discordID int64, delta int) (int, error)

	UpdateElo(ctx context.Context, discordID int64, elo float64) error
	UpdateDisplayName(ctx context.Context, discordID int64, displayName string) error
	UpdateFriendlyLastUsed(ctx context.Context, discordID int64, at time.Time) error

	// GetAll returns every account in the guild
	GetAll(ctx context.Context) ([]*models.Account, error)

	// GetLeaderboard returns the top accounts ordered by the given account stat
	GetLeaderboard(ctx context.Context, stat models.LeaderboardStat, limit int) ([]*models.Account, error)

	// GetStanding returns an account's place by an account stat, nil when the account is missing
	GetStanding(ctx context.Context, stat models.LeaderboardStat, discordID int64) (*models.Standing, error)

	// GetEconomySummary aggregates balances and escrowed stakes for the guild
	GetEconomySummary(ctx context.Context) (*models.EconomySummary, error)
}

// MatchRepository defines the interface for live match data access
type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int64) (*models.Match, error)

	// GetByIDForUpdate retrieves a match and holds its row lock until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Match, error)

	// GetLiveByParticipant returns the live match an account takes part in, if any
	GetLiveByParticipant(ctx context.Context, discordID int64) (*models.Match, error)

	// Update persists the accepted/active flags
	Update(ctx context.Context, match *models.Match) error

	// Delete removes the match and, through the foreign key, its bets
	Delete(ctx context.Context, id int64) error

	// List returns every live match in the guild
	List(ctx context.Context) ([]*models.Match, error)
}

// BetRepository defines the interface for live bet data access
type BetRepository interface {
	Create(ctx context.Context, bet *models.Bet) error
	GetByMatchAndBettor(ctx context.Context, matchID, bettorID int64) (*models.Bet, error)

	// ListByMatch returns the bets on a match ordered by id
	ListByMatch(ctx context.Context, matchID int64) ([]*models.Bet, error)

	// ListByBettor returns the live bets placed by an account
	ListByBettor(ctx context.Context, bettorID int64) ([]*models.Bet, error)

	// Update persists a changed target and amount
	Update(ctx context.Context, bet *models.Bet) error
	Delete(ctx context.Context, id int64) error

	// DeleteByMatch removes every bet on a match and returns how many were removed
	DeleteByMatch(ctx context.Context, matchID int64) (int64, error)
}

// HistoryRepository defines the interface for the append-only match and bet archive
type HistoryRepository interface {
	RecordMatch(ctx context.Context, history *models.MatchHistory) error
	RecordBets(ctx context.Context, bets []*models.BetHistory) error

	// GetMatch returns an archived match, nil when the id was never resolved
	GetMatch(ctx context.Context, matchID int64) (*models.MatchHistory, error)

	// ListMatchesByAccount returns resolved matches for an account, newest first,
	// optionally restricted to those against a single opponent
	ListMatchesByAccount(ctx context.Context, discordID int64, opponentID *int64, limit int) ([]*models.MatchHistory, error)

	ListBetsByMatch(ctx context.Context, matchID int64) ([]*models.BetHistory, error)
	ListBetsByBettor(ctx context.Context, bettorID int64, limit int) ([]*models.BetHistory, error)

	// GetBetStats aggregates the settled bets of a bettor
	GetBetStats(ctx context.Context, bettorID int64) (*models.BetStats, error)

	// GetStandings ranks accounts by match_count, bet_total or bet_winrate
	GetStandings(ctx context.Context, stat models.LeaderboardStat, limit int) ([]*models.Standing, error)

	// GetStanding returns an account's place by a history stat, nil without a record
	GetStanding(ctx context.Context, stat models.LeaderboardStat, discordID int64) (*models.Standing, error)
}

// SeasonRepository defines the interface for ranked seasons
type SeasonRepository interface {
	// Create opens a season; it fails with InvalidState while another one is open
	Create(ctx context.Context, season *models.Season) error

	// GetActive, GetLatest and GetByNumber return nil when no season matches
	GetActive(ctx context.Context) (*models.Season, error)
	GetLatest(ctx context.Context) (*models.Season, error)
	GetByNumber(ctx context.Context, number int) (*models.Season, error)

	List(ctx context.Context) ([]*models.Season, error)

	// End closes an open season
	End(ctx context.Context, number int, at time.Time) error

	// GetStandings ranks accounts by net marbles won from matches and bets in the season
	GetStandings(ctx context.Context, season *models.Season, limit int) ([]*models.Standing, error)
	GetStanding(ctx context.Context, season *models.Season, discordID int64) (*models.Standing, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific account, newest first
	GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error)

	// GetByRelated returns every balance change tied to a match or bet
	GetByRelated(ctx context.Context, relatedType models.RelatedType, relatedID int64) ([]*models.BalanceHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// AccountService defines the interface for the account store
type AccountService interface {
	// GetOrCreateAccount retrieves an existing account or creates one with the starting balance
	GetOrCreateAccount(ctx context.Context, discordID int64, displayName string) (*models.Account, error)

	// GetAccount retrieves an account, failing with NotFound when missing
	GetAccount(ctx context.Context, discordID int64) (*models.Account, error)

	// Credit increases a balance; amount must not be negative
	Credit(ctx context.Context, discordID int64, amount int64) (*models.Account, error)

	// Debit decreases a balance; it fails with InsufficientFunds rather than going below zero
	Debit(ctx context.Context, discordID int64, amount int64) (*models.Account, error)

	// Transfer moves marbles between two accounts, checking funds before mutating anything
	Transfer(ctx context.Context, fromID, toID int64, amount int64) (*models.Account, *models.Account, error)

	AdjustWins(ctx context.Context, discordID int64, delta int) (*models.Account, error)
	AdjustLosses(ctx context.Context, discordID int64, delta int) (*models.Account, error)

	SetDisplayName(ctx context.Context, discordID int64, displayName string) (*models.Account, error)

	// SetBalance overwrites a balance, recording the difference as an admin adjustment
	SetBalance(ctx context.Context, discordID int64, balance int64) (*models.Account, error)

	// ClaimFriendly rewards both players of a friendly game once per daily window
	ClaimFriendly(ctx context.Context, playerID, opponentID int64, now time.Time) (*models.Account, *models.Account, error)
}

// MatchService defines the interface for the match state machine
type MatchService interface {
	// Propose creates a match between two accounts without debiting either stake
	Propose(ctx context.Context, challengerID, recipientID int64, amount int64, game, format string) (*models.Match, error)

	// Accept debits both stakes and opens the match for betting; only the recipient may accept
	Accept(ctx context.Context, matchID int64, callerID int64) (*models.Match, error)

	// Start closes betting
	Start(ctx context.Context, matchID int64) (*models.Match, error)

	// Resolve pays the winner, settles the bet book and archives the match
	Resolve(ctx context.Context, matchID int64, winnerID int64) (*models.MatchResult, error)

	// Cancel refunds stakes and bets and removes the match without history
	Cancel(ctx context.Context, matchID int64) error

	GetMatch(ctx context.Context, matchID int64) (*models.Match, error)
	GetLiveMatchFor(ctx context.Context, discordID int64) (*models.Match, error)
	ListLiveMatches(ctx context.Context) ([]*models.Match, error)
}

// BetService defines the interface for the bet book
type BetService interface {
	// PlaceBet creates, replaces or (with a zero amount) removes a bet on an accepted match
	PlaceBet(ctx context.Context, matchID, bettorID, targetID int64, amount int64) (*models.BetPlacement, error)

	// ListForMatch returns the live bets on a match
	ListForMatch(ctx context.Context, matchID int64) ([]*models.Bet, error)

	// RefundAndRemove refunds every bet on a match and deletes them, returning the total refunded
	RefundAndRemove(ctx context.Context, match *models.Match) (int64, error)
}

// StatsService defines the interface for read-only statistics
type StatsService interface {
	GetLeaderboard(ctx context.Context, stat models.LeaderboardStat, limit int) ([]*models.LeaderboardEntry, error)

	// GetLeaderboardPosition returns one account's place on a leaderboard
	GetLeaderboardPosition(ctx context.Context, stat models.LeaderboardStat, discordID int64) (*models.LeaderboardEntry, error)

	GetPlayerStats(ctx context.Context, discordID int64) (*models.PlayerStats, error)
	GetEconomySummary(ctx context.Context) (*models.EconomySummary, error)
	GetMatchHistory(ctx context.Context, discordID int64, opponentID *int64, limit int) ([]*models.MatchHistory, error)
	GetBetHistory(ctx context.Context, bettorID int64, limit int) ([]*models.BetHistory, error)
	GetBalanceHistory(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error)
}

// SeasonService defines the interface for ranked seasons
type SeasonService interface {
	// Start opens the next season, planned to end at endsAt
	Start(ctx context.Context, endsAt time.Time, now time.Time) (*models.Season, error)

	// End closes the open season
	End(ctx context.Context, now time.Time) (*models.Season, error)

	// Current returns the open season, failing with InvalidState when there is none
	Current(ctx context.Context) (*models.Season, error)

	List(ctx context.Context) ([]*models.Season, error)

	// Standings ranks a season; number 0 selects the latest season
	Standings(ctx context.Context, number int, limit int) ([]*models.LeaderboardEntry, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	MatchRepository() MatchRepository
	BetRepository() BetRepository
	HistoryRepository() HistoryRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	SeasonRepository() SeasonRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// CreateForGuild creates a new UnitOfWork instance scoped to a specific guild
	CreateForGuild(guildID int64) UnitOfWork
}
