package service

import (
	"context"
	"fmt"

	"marbles/events"
	"marbles/models"
)

// betService implements the BetService interface
type betService struct {
	accountRepo    AccountRepository
	matchRepo      MatchRepository
	betRepo        BetRepository
	historyRepo    HistoryRepository
	eventPublisher EventPublisher
	ledger         *balanceLedger
}

// NewBetService creates a new bet service
func NewBetService(
	accountRepo AccountRepository,
	matchRepo MatchRepository,
	betRepo BetRepository,
	historyRepo HistoryRepository,
	balanceHistoryRepo BalanceHistoryRepository,
	eventPublisher EventPublisher,
) BetService {
	return newBetService(accountRepo, matchRepo, betRepo, historyRepo, balanceHistoryRepo, eventPublisher)
}

func newBetService(
	accountRepo AccountRepository,
	matchRepo MatchRepository,
	betRepo BetRepository,
	historyRepo HistoryRepository,
	balanceHistoryRepo BalanceHistoryRepository,
	eventPublisher EventPublisher,
) *betService {
	return &betService{
		accountRepo:    accountRepo,
		matchRepo:      matchRepo,
		betRepo:        betRepo,
		historyRepo:    historyRepo,
		eventPublisher: eventPublisher,
		ledger: &balanceLedger{
			accountRepo:        accountRepo,
			balanceHistoryRepo: balanceHistoryRepo,
			eventPublisher:     eventPublisher,
		},
	}
}

// PlaceBet creates, replaces or removes the bettor's bet on a match.
// The target must be a participant even when removing. A zero amount removes
// an existing bet and refunds it. A positive amount
// replaces any existing bet: the old stake is refunded before the new one is debited.
func (s *betService) PlaceBet(ctx context.Context, matchID, bettorID, targetID int64, amount int64) (*models.BetPlacement, error) {
	if amount < 0 {
		return nil, models.NewInvalidArgument("bet amount must not be negative, got %d", amount)
	}

	// Lock the match first so the bet book cannot change under a concurrent start or resolve
	match, err := lockLiveMatch(ctx, s.matchRepo, s.historyRepo, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsOpenForBetting() {
		return nil, models.NewInvalidState("match %d is %s, bets can only be placed on an accepted match", matchID, match.State())
	}
	if match.IsParticipant(bettorID) {
		return nil, models.NewInvalidArgument("participants cannot bet on their own match")
	}
	if !match.IsParticipant(targetID) {
		return nil, models.NewInvalidArgument("target %d is not a participant in match %d", targetID, matchID)
	}

	existing, err := s.betRepo.GetByMatchAndBettor(ctx, matchID, bettorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get existing bet: %w", err)
	}

	if amount == 0 {
		if existing == nil {
			return nil, models.NewInvalidArgument("no bet by %d on match %d to remove", bettorID, matchID)
		}
		return s.removeBet(ctx, existing)
	}

	locked, err := s.accountRepo.LockAccounts(ctx, bettorID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock bettor account: %w", err)
	}
	bettor := locked[bettorID]
	if bettor == nil {
		return nil, models.NewNotFound("account", bettorID)
	}

	available := bettor.Balance
	if existing != nil {
		available += existing.Amount
	}
	if available < amount {
		return nil, models.NewInsufficientFunds(available, amount)
	}

	if existing != nil {
		return s.replaceBet(ctx, existing, targetID, amount)
	}
	return s.createBet(ctx, match, bettorID, targetID, amount)
}

func (s *betService) createBet(ctx context.Context, match *models.Match, bettorID, targetID, amount int64) (*models.BetPlacement, error) {
	bet := &models.Bet{
		MatchID:  match.ID,
		BettorID: bettorID,
		TargetID: targetID,
		Amount:   amount,
	}
	if err := s.betRepo.Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	if _, err := s.ledger.debit(ctx, betEntry(bet, amount, models.TransactionTypeBetStake)); err != nil {
		return nil, err
	}

	if err := s.publishPlaced(bet, 0); err != nil {
		return nil, err
	}
	return &models.BetPlacement{Bet: bet}, nil
}

func (s *betService) replaceBet(ctx context.Context, bet *models.Bet, targetID, amount int64) (*models.BetPlacement, error) {
	previous := bet.Amount

	if _, err := s.ledger.credit(ctx, betEntry(bet, previous, models.TransactionTypeBetRefund)); err != nil {
		return nil, err
	}

	bet.TargetID = targetID
	bet.Amount = amount
	if _, err := s.ledger.debit(ctx, betEntry(bet, amount, models.TransactionTypeBetStake)); err != nil {
		return nil, err
	}

	if err := s.betRepo.Update(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to update bet: %w", err)
	}

	if err := s.publishPlaced(bet, previous); err != nil {
		return nil, err
	}
	return &models.BetPlacement{Bet: bet, PreviousAmount: previous}, nil
}

func (s *betService) removeBet(ctx context.Context, bet *models.Bet) (*models.BetPlacement, error) {
	if _, err := s.ledger.credit(ctx, betEntry(bet, bet.Amount, models.TransactionTypeBetRefund)); err != nil {
		return nil, err
	}

	if err := s.betRepo.Delete(ctx, bet.ID); err != nil {
		return nil, fmt.Errorf("failed to delete bet: %w", err)
	}

	if err := s.publishRemoved(bet); err != nil {
		return nil, err
	}
	return &models.BetPlacement{PreviousAmount: bet.Amount, Removed: true}, nil
}

// ListForMatch returns the live bets on a match ordered by id
func (s *betService) ListForMatch(ctx context.Context, matchID int64) ([]*models.Bet, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, models.NewNotFound("match", matchID)
	}

	bets, err := s.betRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}
	return bets, nil
}

// RefundAndRemove refunds every bet on the match in full and deletes them.
// The caller holds the match lock.
func (s *betService) RefundAndRemove(ctx context.Context, match *models.Match) (int64, error) {
	bets, err := s.betRepo.ListByMatch(ctx, match.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list bets: %w", err)
	}

	var refunded int64
	for _, bet := range bets {
		if _, err := s.ledger.credit(ctx, betEntry(bet, bet.Amount, models.TransactionTypeBetRefund)); err != nil {
			return 0, err
		}
		refunded += bet.Amount

		if err := s.publishRemoved(bet); err != nil {
			return 0, err
		}
	}

	if _, err := s.betRepo.DeleteByMatch(ctx, match.ID); err != nil {
		return 0, fmt.Errorf("failed to delete bets: %w", err)
	}

	return refunded, nil
}

func (s *betService) publishPlaced(bet *models.Bet, previous int64) error {
	err := s.eventPublisher.Publish(events.BetPlacedEvent{
		BetID:          bet.ID,
		MatchID:        bet.MatchID,
		GuildID:        bet.GuildID,
		BettorID:       bet.BettorID,
		TargetID:       bet.TargetID,
		Amount:         bet.Amount,
		PreviousAmount: previous,
	})
	if err != nil {
		return fmt.Errorf("failed to publish bet placed: %w", err)
	}
	return nil
}

func (s *betService) publishRemoved(bet *models.Bet) error {
	err := s.eventPublisher.Publish(events.BetRemovedEvent{
		BetID:    bet.ID,
		MatchID:  bet.MatchID,
		GuildID:  bet.GuildID,
		BettorID: bet.BettorID,
		Refunded: bet.Amount,
	})
	if err != nil {
		return fmt.Errorf("failed to publish bet removed: %w", err)
	}
	return nil
}

// lockLiveMatch locks a live match row. A match that is no longer live is
// reported as InvalidState when it was resolved and NotFound otherwise.
func lockLiveMatch(ctx context.Context, matchRepo MatchRepository, historyRepo HistoryRepository, matchID int64) (*models.Match, error) {
	match, err := matchRepo.GetByIDForUpdate(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	if match != nil {
		return match, nil
	}

	archived, err := historyRepo.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to check match history: %w", err)
	}
	if archived != nil {
		return nil, models.NewInvalidState("match %d is already resolved", matchID)
	}
	return nil, models.NewNotFound("match", matchID)
}
