package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marbles/models"
)

const maxDisplayNameLength = 255

// accountService implements the AccountService interface
type accountService struct {
	accountRepo AccountRepository
	ledger      *balanceLedger
	economy     EconomyConfig
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo AccountRepository, balanceHistoryRepo BalanceHistoryRepository, eventPublisher EventPublisher, economy EconomyConfig) AccountService {
	return &accountService{
		accountRepo: accountRepo,
		ledger: &balanceLedger{
			accountRepo:        accountRepo,
			balanceHistoryRepo: balanceHistoryRepo,
			eventPublisher:     eventPublisher,
		},
		economy: economy,
	}
}

// GetOrCreateAccount retrieves an existing account or creates a new one with the starting balance
func (s *accountService) GetOrCreateAccount(ctx context.Context, discordID int64, displayName string) (*models.Account, error) {
	displayName = strings.TrimSpace(displayName)
	if len(displayName) > maxDisplayNameLength {
		return nil, models.NewInvalidArgument("display name longer than %d characters", maxDisplayNameLength)
	}

	account, err := s.accountRepo.GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if account != nil {
		return account, nil
	}

	// Database unique constraint on (guild_id, discord_id) prevents duplicate accounts
	account, err = s.accountRepo.Create(ctx, discordID, displayName, s.economy.StartingBalance, s.economy.InitialElo)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	history := &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   0,
		BalanceAfter:    account.Balance,
		ChangeAmount:    account.Balance,
		TransactionType: models.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"display_name": displayName,
		},
	}
	if err := RecordBalanceChange(ctx, s.ledger.balanceHistoryRepo, s.ledger.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record initial balance: %w", err)
	}

	return account, nil
}

// GetAccount retrieves an account, failing with NotFound when missing
func (s *accountService) GetAccount(ctx context.Context, discordID int64) (*models.Account, error) {
	account, err := s.accountRepo.GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, models.NewNotFound("account", discordID)
	}
	return account, nil
}

// Credit increases an account's balance
func (s *accountService) Credit(ctx context.Context, discordID int64, amount int64) (*models.Account, error) {
	if amount < 0 {
		return nil, models.NewInvalidArgument("credit amount must not be negative, got %d", amount)
	}

	account, err := s.GetAccount(ctx, discordID)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.credit(ctx, balanceEntry{
		DiscordID: discordID,
		Amount:    amount,
		Type:      models.TransactionTypeCredit,
	})
	if err != nil {
		return nil, err
	}

	account.Balance = balance
	return account, nil
}

// Debit decreases an account's balance, failing instead of going below zero
func (s *accountService) Debit(ctx context.Context, discordID int64, amount int64) (*models.Account, error) {
	if amount < 0 {
		return nil, models.NewInvalidArgument("debit amount must not be negative, got %d", amount)
	}

	account, err := s.GetAccount(ctx, discordID)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledger.debit(ctx, balanceEntry{
		DiscordID: discordID,
		Amount:    amount,
		Type:      models.TransactionTypeDebit,
	})
	if err != nil {
		return nil, err
	}

	account.Balance = balance
	return account, nil
}

// Transfer moves marbles from one account to another
func (s *accountService) Transfer(ctx context.Context, fromID, toID int64, amount int64) (*models.Account, *models.Account, error) {
	if amount <= 0 {
		return nil, nil, models.NewInvalidArgument("transfer amount must be positive, got %d", amount)
	}
	if fromID == toID {
		return nil, nil, models.NewInvalidArgument("cannot transfer to the same account")
	}

	locked, err := s.accountRepo.LockAccounts(ctx, fromID, toID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	from, to := locked[fromID], locked[toID]
	if from == nil {
		return nil, nil, models.NewNotFound("account", fromID)
	}
	if to == nil {
		return nil, nil, models.NewNotFound("account", toID)
	}
	if from.Balance < amount {
		return nil, nil, models.NewInsufficientFunds(from.Balance, amount)
	}

	from.Balance, err = s.ledger.debit(ctx, balanceEntry{
		DiscordID: fromID,
		Amount:    amount,
		Type:      models.TransactionTypeTransferOut,
		Metadata:  map[string]any{"recipient_id": toID},
	})
	if err != nil {
		return nil, nil, err
	}

	to.Balance, err = s.ledger.credit(ctx, balanceEntry{
		DiscordID: toID,
		Amount:    amount,
		Type:      models.TransactionTypeTransferIn,
		Metadata:  map[string]any{"sender_id": fromID},
	})
	if err != nil {
		return nil, nil, err
	}

	return from, to, nil
}

// AdjustWins changes the win counter by delta
func (s *accountService) AdjustWins(ctx context.Context, discordID int64, delta int) (*models.Account, error) {
	account, err := s.GetAccount(ctx, discordID)
	if err != nil {
		return nil, err
	}

	account.Wins, err = s.accountRepo.AdjustWins(ctx, discordID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust wins: %w", err)
	}
	return account, nil
}

// AdjustLosses changes the loss counter by delta
func (s *accountService) AdjustLosses(ctx context.Context, discordID int64, delta int) (*models.Account, error) {
	account, err := s.GetAccount(ctx, discordID)
	if err != nil {
		return nil, err
	}

	account.Losses, err = s.accountRepo.AdjustLosses(ctx, discordID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust losses: %w", err)
	}
	return account, nil
}

// SetDisplayName renames an account
func (s *accountService) SetDisplayName(ctx context.Context, discordID int64, displayName string) (*models.Account, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, models.NewInvalidArgument("display name must not be empty")
	}
	if len(displayName) > maxDisplayNameLength {
		return nil, models.NewInvalidArgument("display name longer than %d characters", maxDisplayNameLength)
	}

	account, err := s.GetAccount(ctx, discordID)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.UpdateDisplayName(ctx, discordID, displayName); err != nil {
		return nil, fmt.Errorf("failed to update display name: %w", err)
	}

	account.DisplayName = displayName
	return account, nil
}

// SetBalance overwrites an account's balance and records the difference
func (s *accountService) SetBalance(ctx context.Context, discordID int64, balance int64) (*models.Account, error) {
	if balance < 0 {
		return nil, models.NewInvalidArgument("balance must not be negative, got %d", balance)
	}

	locked, err := s.accountRepo.LockAccounts(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	account := locked[discordID]
	if account == nil {
		return nil, models.NewNotFound("account", discordID)
	}
	if account.Balance == balance {
		return account, nil
	}

	if err := s.accountRepo.SetBalance(ctx, discordID, balance); err != nil {
		return nil, fmt.Errorf("failed to set balance: %w", err)
	}

	entry := balanceEntry{DiscordID: discordID, Amount: balance - account.Balance, Type: models.TransactionTypeAdminSet}
	if err := s.ledger.record(ctx, entry, account.Balance, balance); err != nil {
		return nil, err
	}

	account.Balance = balance
	return account, nil
}

// ClaimFriendly rewards both players of a friendly game. Each account may claim
// once per daily window; the window resets at the configured hour UTC.
func (s *accountService) ClaimFriendly(ctx context.Context, playerID, opponentID int64, now time.Time) (*models.Account, *models.Account, error) {
	if playerID == opponentID {
		return nil, nil, models.NewInvalidArgument("cannot play a friendly against yourself")
	}

	locked, err := s.accountRepo.LockAccounts(ctx, playerID, opponentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock accounts: %w", err)
	}

	periodStart := GetCurrentPeriodStart(now, s.economy.FriendlyResetHour)
	players := []*models.Account{locked[playerID], locked[opponentID]}
	for i, id := range []int64{playerID, opponentID} {
		if players[i] == nil {
			return nil, nil, models.NewNotFound("account", id)
		}
		if !players[i].CanClaimFriendly(periodStart) {
			return nil, nil, models.NewInvalidState("account %d already claimed a friendly reward, next reset at %s",
				id, GetNextResetTime(now, s.economy.FriendlyResetHour).Format(time.RFC3339))
		}
	}

	for _, player := range players {
		opponent := playerID
		if player.DiscordID == playerID {
			opponent = opponentID
		}

		player.Balance, err = s.ledger.credit(ctx, balanceEntry{
			DiscordID: player.DiscordID,
			Amount:    s.economy.FriendlyReward,
			Type:      models.TransactionTypeFriendly,
			Metadata:  map[string]any{"opponent_id": opponent},
		})
		if err != nil {
			return nil, nil, err
		}

		if err := s.accountRepo.UpdateFriendlyLastUsed(ctx, player.DiscordID, now); err != nil {
			return nil, nil, fmt.Errorf("failed to update friendly timestamp: %w", err)
		}
		usedAt := now
		player.FriendlyLastUsed = &usedAt
	}

	return players[0], players[1], nil
}
