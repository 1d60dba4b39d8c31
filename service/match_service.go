package service

import (
	"context"
	"fmt"
	"strings"

	"marbles/events"
	"marbles/models"
)

// matchService implements the MatchService interface
type matchService struct {
	accountRepo    AccountRepository
	matchRepo      MatchRepository
	betRepo        BetRepository
	historyRepo    HistoryRepository
	eventPublisher EventPublisher
	ledger         *balanceLedger
	bets           *betService
	economy        EconomyConfig
}

// NewMatchService creates a new match service
func NewMatchService(
	accountRepo AccountRepository,
	matchRepo MatchRepository,
	betRepo BetRepository,
	historyRepo HistoryRepository,
	balanceHistoryRepo BalanceHistoryRepository,
	eventPublisher EventPublisher,
	economy EconomyConfig,
) MatchService {
	bets := newBetService(accountRepo, matchRepo, betRepo, historyRepo, balanceHistoryRepo, eventPublisher)
	return &matchService{
		accountRepo:    accountRepo,
		matchRepo:      matchRepo,
		betRepo:        betRepo,
		historyRepo:    historyRepo,
		eventPublisher: eventPublisher,
		ledger:         bets.ledger,
		bets:           bets,
		economy:        economy,
	}
}

// Propose creates a match between two accounts. No stake is debited until the recipient accepts.
func (s *matchService) Propose(ctx context.Context, challengerID, recipientID int64, amount int64, game, format string) (*models.Match, error) {
	if challengerID == recipientID {
		return nil, models.NewInvalidArgument("cannot challenge yourself")
	}
	if amount < 1 {
		return nil, models.NewInvalidArgument("stake must be at least 1, got %d", amount)
	}

	game = strings.TrimSpace(game)
	if game == "" {
		game = s.economy.DefaultGame
	}
	format = strings.TrimSpace(format)
	if format == "" {
		format = s.economy.DefaultFormat
	}

	// Holding both account rows serializes proposals that touch either player
	locked, err := s.accountRepo.LockAccounts(ctx, challengerID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	for _, id := range []int64{challengerID, recipientID} {
		account := locked[id]
		if account == nil {
			return nil, models.NewNotFound("account", id)
		}

		live, err := s.matchRepo.GetLiveByParticipant(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check live matches: %w", err)
		}
		if live != nil {
			return nil, models.NewInvalidArgument("account %d already has a live match (%d)", id, live.ID)
		}
	}

	for _, id := range []int64{challengerID, recipientID} {
		if locked[id].Balance < amount {
			return nil, models.NewInvalidArgument("account %d has %d marbles, stake is %d", id, locked[id].Balance, amount)
		}
	}

	match := &models.Match{
		Amount:       amount,
		ChallengerID: challengerID,
		RecipientID:  recipientID,
		Game:         game,
		Format:       format,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	if err := s.publishTransition(match, "", models.MatchStateProposed); err != nil {
		return nil, err
	}
	return match, nil
}

// Accept debits both stakes and opens the match for betting
func (s *matchService) Accept(ctx context.Context, matchID int64, callerID int64) (*models.Match, error) {
	match, err := lockLiveMatch(ctx, s.matchRepo, s.historyRepo, matchID)
	if err != nil {
		return nil, err
	}
	if match.State() != models.MatchStateProposed {
		return nil, models.NewInvalidState("match %d is %s, only a proposed match can be accepted", matchID, match.State())
	}
	if !match.CanBeAccepted(callerID) {
		return nil, models.NewInvalidArgument("only the recipient can accept match %d", matchID)
	}

	locked, err := s.accountRepo.LockAccounts(ctx, match.ChallengerID, match.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	for _, id := range []int64{match.ChallengerID, match.RecipientID} {
		account := locked[id]
		if account == nil {
			return nil, models.NewNotFound("account", id)
		}
		if account.Balance < match.Amount {
			return nil, models.NewInsufficientFunds(account.Balance, match.Amount)
		}
	}

	for _, id := range []int64{match.ChallengerID, match.RecipientID} {
		if _, err := s.ledger.debit(ctx, matchEntry(id, match.Amount, models.TransactionTypeMatchStake, match.ID)); err != nil {
			return nil, err
		}
	}

	match.Accepted = true
	if err := s.matchRepo.Update(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	if err := s.publishTransition(match, models.MatchStateProposed, models.MatchStateAccepted); err != nil {
		return nil, err
	}
	return match, nil
}

// Start closes betting on an accepted match
func (s *matchService) Start(ctx context.Context, matchID int64) (*models.Match, error) {
	match, err := lockLiveMatch(ctx, s.matchRepo, s.historyRepo, matchID)
	if err != nil {
		return nil, err
	}
	if match.State() != models.MatchStateAccepted {
		return nil, models.NewInvalidState("match %d is %s, only an accepted match can be started", matchID, match.State())
	}

	match.Active = true
	if err := s.matchRepo.Update(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	if err := s.publishTransition(match, models.MatchStateAccepted, models.MatchStateActive); err != nil {
		return nil, err
	}
	return match, nil
}

// Resolve pays the winner both stakes, updates records and ratings, settles
// the bet book and moves the match and its bets to history
func (s *matchService) Resolve(ctx context.Context, matchID int64, winnerID int64) (*models.MatchResult, error) {
	match, err := lockLiveMatch(ctx, s.matchRepo, s.historyRepo, matchID)
	if err != nil {
		return nil, err
	}
	if match.State() != models.MatchStateActive {
		return nil, models.NewInvalidState("match %d is %s, only an active match can be resolved", matchID, match.State())
	}
	if !match.IsParticipant(winnerID) {
		return nil, models.NewInvalidArgument("winner %d is not a participant in match %d", winnerID, matchID)
	}
	loserID := match.GetOpponent(winnerID)

	// The bet book is read once, before anything is mutated
	bets, err := s.betRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets: %w", err)
	}

	lockIDs := []int64{winnerID, loserID}
	for _, bet := range bets {
		lockIDs = append(lockIDs, bet.BettorID)
	}
	locked, err := s.accountRepo.LockAccounts(ctx, lockIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	winner, loser := locked[winnerID], locked[loserID]
	if winner == nil {
		return nil, models.NewNotFound("account", winnerID)
	}
	if loser == nil {
		return nil, models.NewNotFound("account", loserID)
	}

	if _, err := s.ledger.credit(ctx, matchEntry(winnerID, match.Amount*2, models.TransactionTypeMatchWin, match.ID)); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.AdjustWins(ctx, winnerID, 1); err != nil {
		return nil, fmt.Errorf("failed to record win: %w", err)
	}
	if _, err := s.accountRepo.AdjustLosses(ctx, loserID, 1); err != nil {
		return nil, fmt.Errorf("failed to record loss: %w", err)
	}

	winnerElo, loserElo := UpdatedRatings(winner.Elo, loser.Elo, s.economy.EloKFactor)
	if err := s.accountRepo.UpdateElo(ctx, winnerID, winnerElo); err != nil {
		return nil, fmt.Errorf("failed to update winner rating: %w", err)
	}
	if err := s.accountRepo.UpdateElo(ctx, loserID, loserElo); err != nil {
		return nil, fmt.Errorf("failed to update loser rating: %w", err)
	}

	settlement, err := s.settle(ctx, match, winnerID, bets)
	if err != nil {
		return nil, err
	}

	history := &models.MatchHistory{
		ID:           match.ID,
		Amount:       match.Amount,
		ChallengerID: match.ChallengerID,
		RecipientID:  match.RecipientID,
		WinnerID:     winnerID,
		Game:         match.Game,
		Format:       match.Format,
	}
	if err := s.historyRepo.RecordMatch(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to archive match: %w", err)
	}

	betHistory := make([]*models.BetHistory, 0, len(settlement.Payouts))
	for _, payout := range settlement.Payouts {
		betHistory = append(betHistory, &models.BetHistory{
			ID:       payout.Bet.ID,
			MatchID:  match.ID,
			BettorID: payout.Bet.BettorID,
			TargetID: payout.Bet.TargetID,
			WinnerID: winnerID,
			Amount:   payout.Bet.Amount,
			Payout:   payout.Payout,
		})
	}
	if err := s.historyRepo.RecordBets(ctx, betHistory); err != nil {
		return nil, fmt.Errorf("failed to archive bets: %w", err)
	}

	// Deleting the live match removes its bets with it
	if err := s.matchRepo.Delete(ctx, match.ID); err != nil {
		return nil, fmt.Errorf("failed to remove resolved match: %w", err)
	}

	if err := s.publishTransition(match, models.MatchStateActive, models.MatchStateResolved); err != nil {
		return nil, err
	}
	resolved := events.MatchResolvedEvent{
		MatchID:     match.ID,
		GuildID:     match.GuildID,
		WinnerID:    winnerID,
		LoserID:     loserID,
		Amount:      match.Amount,
		WinnerPot:   settlement.WinnerPot,
		LoserPot:    settlement.LoserPot,
		WinnerCount: settlement.WinnerCount,
		LoserCount:  settlement.LoserCount,
		TotalPaid:   settlement.TotalPaid(),
	}
	if err := s.eventPublisher.Publish(resolved); err != nil {
		return nil, fmt.Errorf("failed to publish match resolved: %w", err)
	}

	winner, err = s.accountRepo.GetByDiscordID(ctx, winnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload winner: %w", err)
	}
	loser, err = s.accountRepo.GetByDiscordID(ctx, loserID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload loser: %w", err)
	}

	return &models.MatchResult{
		History:    history,
		Settlement: settlement,
		Winner:     winner,
		Loser:      loser,
	}, nil
}

// settle computes the bet book distribution and credits every winning bettor
func (s *matchService) settle(ctx context.Context, match *models.Match, winnerID int64, bets []*models.Bet) (*models.Settlement, error) {
	settlement, err := CalculateSettlement(match, winnerID, bets)
	if err != nil {
		return nil, err
	}

	for _, payout := range settlement.Payouts {
		if payout.Payout == 0 {
			continue
		}
		if _, err := s.ledger.credit(ctx, betEntry(payout.Bet, payout.Payout, models.TransactionTypeBetWin)); err != nil {
			return nil, err
		}
	}

	return settlement, nil
}

// Cancel refunds any debited stakes and every bet, then removes the match without history
func (s *matchService) Cancel(ctx context.Context, matchID int64) error {
	match, err := lockLiveMatch(ctx, s.matchRepo, s.historyRepo, matchID)
	if err != nil {
		return err
	}
	if !match.CanBeCancelled() {
		return models.NewInvalidState("match %d is %s and can no longer be cancelled", matchID, match.State())
	}

	bets, err := s.betRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to list bets: %w", err)
	}
	var lockIDs []int64
	if match.Accepted {
		lockIDs = append(lockIDs, match.ChallengerID, match.RecipientID)
	}
	for _, bet := range bets {
		lockIDs = append(lockIDs, bet.BettorID)
	}
	if len(lockIDs) > 0 {
		if _, err := s.accountRepo.LockAccounts(ctx, lockIDs...); err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}
	}

	if match.Accepted {
		for _, id := range []int64{match.ChallengerID, match.RecipientID} {
			if _, err := s.ledger.credit(ctx, matchEntry(id, match.Amount, models.TransactionTypeMatchRefund, match.ID)); err != nil {
				return err
			}
		}
	}

	if _, err := s.bets.RefundAndRemove(ctx, match); err != nil {
		return err
	}

	if err := s.matchRepo.Delete(ctx, match.ID); err != nil {
		return fmt.Errorf("failed to remove cancelled match: %w", err)
	}

	return s.publishTransition(match, match.State(), models.MatchStateCancelled)
}

// GetMatch returns a live match
func (s *matchService) GetMatch(ctx context.Context, matchID int64) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, models.NewNotFound("match", matchID)
	}
	return match, nil
}

// GetLiveMatchFor returns the live match an account plays in, nil when there is none
func (s *matchService) GetLiveMatchFor(ctx context.Context, discordID int64) (*models.Match, error) {
	match, err := s.matchRepo.GetLiveByParticipant(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get live match: %w", err)
	}
	return match, nil
}

// ListLiveMatches returns every live match in the guild
func (s *matchService) ListLiveMatches(ctx context.Context) ([]*models.Match, error) {
	matches, err := s.matchRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (s *matchService) publishTransition(match *models.Match, from, to models.MatchState) error {
	err := s.eventPublisher.Publish(events.MatchStateChangeEvent{
		MatchID:      match.ID,
		GuildID:      match.GuildID,
		ChallengerID: match.ChallengerID,
		RecipientID:  match.RecipientID,
		Amount:       match.Amount,
		OldState:     from,
		NewState:     to,
	})
	if err != nil {
		return fmt.Errorf("failed to publish match state change: %w", err)
	}
	return nil
}
