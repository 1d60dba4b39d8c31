package repository

import (
	"context"
	"errors"
	"fmt"

	"marbles/database"
	"marbles/models"

	"github.com/jackc/pgx/v5"
)

const betColumns = `id, guild_id, match_id, bettor_id, target_id, amount, created_at, updated_at`

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q       queryable
	guildID int64
}

// NewBetRepository creates a new bet repository scoped to a guild
func NewBetRepository(db *database.DB, guildID int64) *BetRepository {
	return &BetRepository{q: db.Pool, guildID: guildID}
}

// newBetRepository creates a new bet repository with a transaction and guild scope
func newBetRepository(tx queryable, guildID int64) *BetRepository {
	return &BetRepository{
		q:       tx,
		guildID: guildID,
	}
}

func scanBet(row scanner) (*models.Bet, error) {
	var bet models.Bet
	err := row.Scan(
		&bet.ID,
		&bet.GuildID,
		&bet.MatchID,
		&bet.BettorID,
		&bet.TargetID,
		&bet.Amount,
		&bet.CreatedAt,
		&bet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

func (r *BetRepository) list(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}

	return bets, nil
}

// Create inserts a new bet and fills in its id and timestamps
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (guild_id, match_id, bettor_id, target_id, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, r.guildID, bet.MatchID, bet.BettorID, bet.TargetID, bet.Amount).
		Scan(&bet.ID, &bet.CreatedAt, &bet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet by %d on match %d: %w", bet.BettorID, bet.MatchID, err)
	}

	bet.GuildID = r.guildID
	return nil
}

// GetByMatchAndBettor returns the live bet a bettor holds on a match, if any
func (r *BetRepository) GetByMatchAndBettor(ctx context.Context, matchID, bettorID int64) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE match_id = $1 AND bettor_id = $2 AND guild_id = $3`

	bet, err := scanBet(r.q.QueryRow(ctx, query, matchID, bettorID, r.guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet by %d on match %d: %w", bettorID, matchID, err)
	}
	return bet, nil
}

// ListByMatch returns the bets on a match ordered by id
func (r *BetRepository) ListByMatch(ctx context.Context, matchID int64) ([]*models.Bet, error) {
	bets, err := r.list(ctx, `SELECT `+betColumns+` FROM bets WHERE match_id = $1 AND guild_id = $2 ORDER BY id`, matchID, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets for match %d: %w", matchID, err)
	}
	return bets, nil
}

// ListByBettor returns the live bets of an account ordered by id
func (r *BetRepository) ListByBettor(ctx context.Context, bettorID int64) ([]*models.Bet, error) {
	bets, err := r.list(ctx, `SELECT `+betColumns+` FROM bets WHERE bettor_id = $1 AND guild_id = $2 ORDER BY id`, bettorID, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets for bettor %d: %w", bettorID, err)
	}
	return bets, nil
}

// Update persists a changed target and amount
func (r *BetRepository) Update(ctx context.Context, bet *models.Bet) error {
	query := `
		UPDATE bets
		SET target_id = $1, amount = $2, updated_at = NOW()
		WHERE id = $3 AND guild_id = $4
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query, bet.TargetID, bet.Amount, bet.ID, r.guildID).Scan(&bet.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewNotFound("bet", bet.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update bet %d: %w", bet.ID, err)
	}
	return nil
}

// Delete removes a single bet
func (r *BetRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM bets WHERE id = $1 AND guild_id = $2`, id, r.guildID)
	if err != nil {
		return fmt.Errorf("failed to delete bet %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return models.NewNotFound("bet", id)
	}
	return nil
}

// DeleteByMatch removes every bet on a match
func (r *BetRepository) DeleteByMatch(ctx context.Context, matchID int64) (int64, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM bets WHERE match_id = $1 AND guild_id = $2`, matchID, r.guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bets for match %d: %w", matchID, err)
	}
	return result.RowsAffected(), nil
}
