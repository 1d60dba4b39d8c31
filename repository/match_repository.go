package repository

import (
	"context"
	"errors"
	"fmt"

	"marbles/database"
	"marbles/models"

	"github.com/jackc/pgx/v5"
)

const matchColumns = `id, guild_id, amount, challenger_id, recipient_id, accepted, active, game, format, created_at`

// MatchRepository implements the MatchRepository interface
type MatchRepository struct {
	q       queryable
	guildID int64
}

// NewMatchRepository creates a new match repository scoped to a guild
func NewMatchRepository(db *database.DB, guildID int64) *MatchRepository {
	return &MatchRepository{q: db.Pool, guildID: guildID}
}

// newMatchRepository creates a new match repository with a transaction and guild scope
func newMatchRepository(tx queryable, guildID int64) *MatchRepository {
	return &MatchRepository{
		q:       tx,
		guildID: guildID,
	}
}

func scanMatch(row scanner) (*models.Match, error) {
	var match models.Match
	err := row.Scan(
		&match.ID,
		&match.GuildID,
		&match.Amount,
		&match.ChallengerID,
		&match.RecipientID,
		&match.Accepted,
		&match.Active,
		&match.Game,
		&match.Format,
		&match.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// Create inserts a proposed match and fills in its id and creation time
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (guild_id, amount, challenger_id, recipient_id, accepted, active, game, format)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		r.guildID,
		match.Amount,
		match.ChallengerID,
		match.RecipientID,
		match.Accepted,
		match.Active,
		match.Game,
		match.Format,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match between %d and %d: %w", match.ChallengerID, match.RecipientID, err)
	}

	match.GuildID = r.guildID
	return nil
}

// GetByID retrieves a live match by id
func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	return r.get(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 AND guild_id = $2`, id)
}

// GetByIDForUpdate retrieves a live match by id and locks its row
func (r *MatchRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Match, error) {
	return r.get(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1 AND guild_id = $2 FOR UPDATE`, id)
}

func (r *MatchRepository) get(ctx context.Context, query string, id int64) (*models.Match, error) {
	match, err := scanMatch(r.q.QueryRow(ctx, query, id, r.guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return match, nil
}

// GetLiveByParticipant returns the live match the account plays in, if any
func (r *MatchRepository) GetLiveByParticipant(ctx context.Context, discordID int64) (*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE guild_id = $1 AND (challenger_id = $2 OR recipient_id = $2)
		ORDER BY id
		LIMIT 1
	`

	match, err := scanMatch(r.q.QueryRow(ctx, query, r.guildID, discordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get live match for account %d: %w", discordID, err)
	}
	return match, nil
}

// Update persists the accepted and active flags
func (r *MatchRepository) Update(ctx context.Context, match *models.Match) error {
	query := `UPDATE matches SET accepted = $1, active = $2 WHERE id = $3 AND guild_id = $4`

	result, err := r.q.Exec(ctx, query, match.Accepted, match.Active, match.ID, r.guildID)
	if err != nil {
		return fmt.Errorf("failed to update match %d: %w", match.ID, err)
	}
	if result.RowsAffected() == 0 {
		return models.NewNotFound("match", match.ID)
	}
	return nil
}

// Delete removes a live match; its bets are removed by the cascading foreign key
func (r *MatchRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM matches WHERE id = $1 AND guild_id = $2`, id, r.guildID)
	if err != nil {
		return fmt.Errorf("failed to delete match %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return models.NewNotFound("match", id)
	}
	return nil
}

// List returns every live match in the guild, oldest first
func (r *MatchRepository) List(ctx context.Context) ([]*models.Match, error) {
	rows, err := r.q.Query(ctx, `SELECT `+matchColumns+` FROM matches WHERE guild_id = $1 ORDER BY id`, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for guild %d: %w", r.guildID, err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	return matches, nil
}
