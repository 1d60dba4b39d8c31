package service

import (
	"context"
	"fmt"

	"marbles/events"
	"marbles/models"
)

// RecordBalanceChange records a balance history entry and emits appropriate events.
// This is the single entry point for all balance changes in the system.
func RecordBalanceChange(ctx context.Context, balanceHistoryRepo BalanceHistoryRepository, eventPublisher EventPublisher, history *models.BalanceHistory) error {
	if err := balanceHistoryRepo.Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	// Emit balance change event (will be flushed after transaction commits)
	event := events.BalanceChangeEvent{
		UserID:          history.DiscordID,
		GuildID:         history.GuildID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	}
	if err := eventPublisher.Publish(event); err != nil {
		return fmt.Errorf("failed to publish balance change: %w", err)
	}

	// Also emit account created event if this is the initial balance
	if history.TransactionType == models.TransactionTypeInitial {
		displayName, _ := history.TransactionMetadata["display_name"].(string)
		created := events.AccountCreatedEvent{
			DiscordID:      history.DiscordID,
			GuildID:        history.GuildID,
			DisplayName:    displayName,
			InitialBalance: history.BalanceAfter,
		}
		if err := eventPublisher.Publish(created); err != nil {
			return fmt.Errorf("failed to publish account created: %w", err)
		}
	}

	return nil
}

// balanceEntry describes one credit or debit against an account
type balanceEntry struct {
	DiscordID   int64
	Amount      int64
	Type        models.TransactionType
	RelatedID   *int64
	RelatedType *models.RelatedType
	Metadata    map[string]any
}

func matchEntry(discordID, amount int64, txType models.TransactionType, matchID int64) balanceEntry {
	relatedType := models.RelatedTypeMatch
	return balanceEntry{
		DiscordID:   discordID,
		Amount:      amount,
		Type:        txType,
		RelatedID:   &matchID,
		RelatedType: &relatedType,
		Metadata:    map[string]any{"match_id": matchID},
	}
}

func betEntry(bet *models.Bet, amount int64, txType models.TransactionType) balanceEntry {
	relatedType := models.RelatedTypeBet
	betID := bet.ID
	return balanceEntry{
		DiscordID:   bet.BettorID,
		Amount:      amount,
		Type:        txType,
		RelatedID:   &betID,
		RelatedType: &relatedType,
		Metadata: map[string]any{
			"match_id":  bet.MatchID,
			"target_id": bet.TargetID,
		},
	}
}

// balanceLedger applies balance mutations through the account repository and
// records each one. Every balance change in the services goes through it.
type balanceLedger struct {
	accountRepo        AccountRepository
	balanceHistoryRepo BalanceHistoryRepository
	eventPublisher     EventPublisher
}

// credit adds entry.Amount and returns the new balance. A zero amount changes nothing.
func (l *balanceLedger) credit(ctx context.Context, entry balanceEntry) (int64, error) {
	if entry.Amount < 0 {
		return 0, models.NewInvalidArgument("credit amount must not be negative, got %d", entry.Amount)
	}
	if entry.Amount == 0 {
		return l.currentBalance(ctx, entry.DiscordID)
	}

	after, err := l.accountRepo.AddBalance(ctx, entry.DiscordID, entry.Amount)
	if err != nil {
		return 0, err
	}

	if err := l.record(ctx, entry, after-entry.Amount, after); err != nil {
		return 0, err
	}
	return after, nil
}

// debit subtracts entry.Amount and returns the new balance. It fails with
// InsufficientFunds rather than letting the balance go negative.
func (l *balanceLedger) debit(ctx context.Context, entry balanceEntry) (int64, error) {
	if entry.Amount < 0 {
		return 0, models.NewInvalidArgument("debit amount must not be negative, got %d", entry.Amount)
	}
	if entry.Amount == 0 {
		return l.currentBalance(ctx, entry.DiscordID)
	}

	after, err := l.accountRepo.DeductBalance(ctx, entry.DiscordID, entry.Amount)
	if err != nil {
		return 0, err
	}

	negative := entry
	negative.Amount = -entry.Amount
	if err := l.record(ctx, negative, after+entry.Amount, after); err != nil {
		return 0, err
	}
	return after, nil
}

func (l *balanceLedger) currentBalance(ctx context.Context, discordID int64) (int64, error) {
	account, err := l.accountRepo.GetByDiscordID(ctx, discordID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return 0, models.NewNotFound("account", discordID)
	}
	return account.Balance, nil
}

func (l *balanceLedger) record(ctx context.Context, entry balanceEntry, before, after int64) error {
	history := &models.BalanceHistory{
		DiscordID:           entry.DiscordID,
		BalanceBefore:       before,
		BalanceAfter:        after,
		ChangeAmount:        entry.Amount,
		TransactionType:     entry.Type,
		TransactionMetadata: entry.Metadata,
		RelatedID:           entry.RelatedID,
		RelatedType:         entry.RelatedType,
	}
	return RecordBalanceChange(ctx, l.balanceHistoryRepo, l.eventPublisher, history)
}
