package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"marbles/database"
	"marbles/models"
)

const balanceHistoryColumns = `id, discord_id, guild_id, balance_before, balance_after, change_amount,
	transaction_type, transaction_metadata, related_id, related_type, created_at`

// BalanceHistoryRepository implements the BalanceHistoryRepository interface
type BalanceHistoryRepository struct {
	q       queryable
	guildID int64
}

// NewBalanceHistoryRepository creates a new balance history repository scoped to a guild
func NewBalanceHistoryRepository(db *database.DB, guildID int64) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{q: db.Pool, guildID: guildID}
}

// newBalanceHistoryRepository creates a new balance history repository with a transaction and guild scope
func newBalanceHistoryRepository(tx queryable, guildID int64) *BalanceHistoryRepository {
	return &BalanceHistoryRepository{
		q:       tx,
		guildID: guildID,
	}
}

// Record creates a new balance history entry
func (r *BalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	// Convert metadata to JSON
	metadataJSON, err := json.Marshal(history.TransactionMetadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO balance_history
		(discord_id, guild_id, balance_before, balance_after, change_amount, transaction_type, transaction_metadata, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		history.DiscordID,
		r.guildID, // Use repository's guild scope
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.TransactionType,
		metadataJSON,
		history.RelatedID,
		history.RelatedType,
	).Scan(&history.ID, &history.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record balance history for account %d: %w", history.DiscordID, err)
	}

	history.GuildID = r.guildID
	return nil
}

// GetByUser returns balance history for a specific account
func (r *BalanceHistoryRepository) GetByUser(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	query := `
		SELECT ` + balanceHistoryColumns + `
		FROM balance_history
		WHERE discord_id = $1 AND guild_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	histories, err := r.list(ctx, query, discordID, r.guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for account %d: %w", discordID, err)
	}
	return histories, nil
}

// GetByRelated returns the balance changes caused by a match or bet, oldest first
func (r *BalanceHistoryRepository) GetByRelated(ctx context.Context, relatedType models.RelatedType, relatedID int64) ([]*models.BalanceHistory, error) {
	query := `
		SELECT ` + balanceHistoryColumns + `
		FROM balance_history
		WHERE related_type = $1 AND related_id = $2 AND guild_id = $3
		ORDER BY id
	`

	histories, err := r.list(ctx, query, relatedType, relatedID, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history for %s %d: %w", relatedType, relatedID, err)
	}
	return histories, nil
}

func (r *BalanceHistoryRepository) list(ctx context.Context, query string, args ...any) ([]*models.BalanceHistory, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var histories []*models.BalanceHistory
	for rows.Next() {
		var history models.BalanceHistory
		var metadataJSON []byte

		err := rows.Scan(
			&history.ID,
			&history.DiscordID,
			&history.GuildID,
			&history.BalanceBefore,
			&history.BalanceAfter,
			&history.ChangeAmount,
			&history.TransactionType,
			&metadataJSON,
			&history.RelatedID,
			&history.RelatedType,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &history.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}

		histories = append(histories, &history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}

	return histories, nil
}
