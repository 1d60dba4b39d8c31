package repository

import (
	"context"
	"errors"
	"fmt"

	"marbles/database"
	"marbles/events"
	"marbles/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                 *database.DB
	tx                 pgx.Tx
	ctx                context.Context
	guildID            int64
	transactionalBus   *events.TransactionalBus
	accountRepo        service.AccountRepository
	matchRepo          service.MatchRepository
	betRepo            service.BetRepository
	historyRepo        service.HistoryRepository
	balanceHistoryRepo service.BalanceHistoryRepository
	seasonRepo         service.SeasonRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. Events buffered by a
// unit of work are handed to publisher after a successful commit.
func NewUnitOfWorkFactory(db *database.DB, publisher events.Publisher) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:        db,
		publisher: publisher,
	}
}

type unitOfWorkFactory struct {
	db        *database.DB
	publisher events.Publisher
}

// CreateForGuild creates a new UnitOfWork scoped to a guild
func (f *unitOfWorkFactory) CreateForGuild(guildID int64) service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		guildID:          guildID,
		transactionalBus: events.NewTransactionalBus(f.publisher),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create guild-scoped repositories with the transaction
	u.accountRepo = newAccountRepository(tx, u.guildID)
	u.matchRepo = newMatchRepository(tx, u.guildID)
	u.betRepo = newBetRepository(tx, u.guildID)
	u.historyRepo = newHistoryRepository(tx, u.guildID)
	u.balanceHistoryRepo = newBalanceHistoryRepository(tx, u.guildID)
	u.seasonRepo = newSeasonRepository(tx, u.guildID)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Flush pending events after successful commit
	return u.transactionalBus.Flush(u.ctx)
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil

	// Discard pending events on rollback
	u.transactionalBus.Discard()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// MatchRepository returns the match repository for this unit of work
func (u *unitOfWork) MatchRepository() service.MatchRepository {
	if u.matchRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.matchRepo
}

// BetRepository returns the bet repository for this unit of work
func (u *unitOfWork) BetRepository() service.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

// HistoryRepository returns the history repository for this unit of work
func (u *unitOfWork) HistoryRepository() service.HistoryRepository {
	if u.historyRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.historyRepo
}

// BalanceHistoryRepository returns the balance history repository for this unit of work
func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceHistoryRepo
}

// SeasonRepository returns the season repository for this unit of work
func (u *unitOfWork) SeasonRepository() service.SeasonRepository {
	if u.seasonRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.seasonRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
