package testutil

import (
	"time"

	"marbles/models"
)

// CreateTestAccount creates an account with sensible defaults
func CreateTestAccount(discordID int64, displayName string, balance int64) *models.Account {
	now := time.Now()
	return &models.Account{
		DiscordID:   discordID,
		DisplayName: displayName,
		Balance:     balance,
		Elo:         1200,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// CreateTestMatch creates a proposed match
func CreateTestMatch(challengerID, recipientID int64, amount int64) *models.Match {
	return &models.Match{
		ChallengerID: challengerID,
		RecipientID:  recipientID,
		Amount:       amount,
		Game:         "melee",
		Format:       "Bo3",
		CreatedAt:    time.Now(),
	}
}

// CreateTestAcceptedMatch creates a match that is open for betting
func CreateTestAcceptedMatch(challengerID, recipientID int64, amount int64) *models.Match {
	match := CreateTestMatch(challengerID, recipientID, amount)
	match.Accepted = true
	return match
}

// CreateTestActiveMatch creates a started match
func CreateTestActiveMatch(challengerID, recipientID int64, amount int64) *models.Match {
	match := CreateTestAcceptedMatch(challengerID, recipientID, amount)
	match.Active = true
	return match
}

// CreateTestBet creates a bet on a match
func CreateTestBet(matchID, bettorID, targetID int64, amount int64) *models.Bet {
	now := time.Now()
	return &models.Bet{
		MatchID:   matchID,
		BettorID:  bettorID,
		TargetID:  targetID,
		Amount:    amount,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(discordID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		DiscordID:       discordID,
		BalanceBefore:   100,
		BalanceAfter:    90,
		ChangeAmount:    -10,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}

// CreateTestBalanceHistoryWithAmounts creates a test balance history with specific amounts
func CreateTestBalanceHistoryWithAmounts(discordID int64, before, after, change int64, transactionType models.TransactionType) *models.BalanceHistory {
	history := CreateTestBalanceHistory(discordID, transactionType)
	history.BalanceBefore = before
	history.BalanceAfter = after
	history.ChangeAmount = change
	return history
}
