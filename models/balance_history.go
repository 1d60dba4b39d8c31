package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial     TransactionType = "initial"
	TransactionTypeCredit      TransactionType = "credit"
	TransactionTypeDebit       TransactionType = "debit"
	TransactionTypeAdminSet    TransactionType = "admin_set"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeMatchStake  TransactionType = "match_stake"
	TransactionTypeMatchRefund TransactionType = "match_refund"
	TransactionTypeMatchWin    TransactionType = "match_win"
	TransactionTypeBetStake    TransactionType = "bet_stake"
	TransactionTypeBetRefund   TransactionType = "bet_refund"
	TransactionTypeBetWin      TransactionType = "bet_win"
	TransactionTypeFriendly    TransactionType = "friendly"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeMatch RelatedType = "match"
	RelatedTypeBet   RelatedType = "bet"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	DiscordID           int64           `db:"discord_id"`
	GuildID             int64           `db:"guild_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
