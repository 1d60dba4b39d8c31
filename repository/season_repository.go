package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marbles/database"
	"marbles/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const seasonColumns = `id, guild_id, season_number, started_at, ends_at, ended_at`

// seasonChangeAggregate sums the play-related balance changes inside a season
// window: $4 is the start, $5 the end (NULL while open), $6 the counted types
const seasonChangeAggregate = `
	SELECT discord_id, SUM(change_amount)::float8
	FROM balance_history
	WHERE guild_id = $1
	  AND created_at >= $4
	  AND ($5::TIMESTAMPTZ IS NULL OR created_at < $5)
	  AND transaction_type = ANY($6)
	GROUP BY discord_id`

// SeasonRepository implements the SeasonRepository interface
type SeasonRepository struct {
	q       queryable
	guildID int64
}

// NewSeasonRepository creates a new season repository scoped to a guild
func NewSeasonRepository(db *database.DB, guildID int64) *SeasonRepository {
	return &SeasonRepository{q: db.Pool, guildID: guildID}
}

// newSeasonRepository creates a new season repository with a transaction and guild scope
func newSeasonRepository(tx queryable, guildID int64) *SeasonRepository {
	return &SeasonRepository{
		q:       tx,
		guildID: guildID,
	}
}

func scanSeason(row scanner) (*models.Season, error) {
	var season models.Season
	err := row.Scan(
		&season.ID,
		&season.GuildID,
		&season.Number,
		&season.StartedAt,
		&season.EndsAt,
		&season.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	return &season, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create opens a season and fills in its id
func (r *SeasonRepository) Create(ctx context.Context, season *models.Season) error {
	query := `
		INSERT INTO seasons (guild_id, season_number, started_at, ends_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query, r.guildID, season.Number, season.StartedAt, season.EndsAt).Scan(&season.ID)
	if isUniqueViolation(err) {
		return models.NewInvalidState("season %d cannot start while another season is open", season.Number)
	}
	if err != nil {
		return fmt.Errorf("failed to create season %d: %w", season.Number, err)
	}

	season.GuildID = r.guildID
	return nil
}

func (r *SeasonRepository) getOne(ctx context.Context, where string, args ...any) (*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE guild_id = $1 AND ` + where + ` ORDER BY season_number DESC LIMIT 1`

	season, err := scanSeason(r.q.QueryRow(ctx, query, append([]any{r.guildID}, args...)...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return season, err
}

// GetActive returns the open season, nil when there is none
func (r *SeasonRepository) GetActive(ctx context.Context) (*models.Season, error) {
	season, err := r.getOne(ctx, `ended_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active season for guild %d: %w", r.guildID, err)
	}
	return season, nil
}

// GetLatest returns the highest numbered season, open or not, nil before the first one
func (r *SeasonRepository) GetLatest(ctx context.Context) (*models.Season, error) {
	season, err := r.getOne(ctx, `TRUE`)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest season for guild %d: %w", r.guildID, err)
	}
	return season, nil
}

// GetByNumber returns a season by its number, nil when it does not exist
func (r *SeasonRepository) GetByNumber(ctx context.Context, number int) (*models.Season, error) {
	season, err := r.getOne(ctx, `season_number = $2`, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get season %d: %w", number, err)
	}
	return season, nil
}

// List returns every season of the guild by number
func (r *SeasonRepository) List(ctx context.Context) ([]*models.Season, error) {
	query := `SELECT ` + seasonColumns + ` FROM seasons WHERE guild_id = $1 ORDER BY season_number`

	rows, err := r.q.Query(ctx, query, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons for guild %d: %w", r.guildID, err)
	}
	defer rows.Close()

	var seasons []*models.Season
	for rows.Next() {
		season, err := scanSeason(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, season)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seasons: %w", err)
	}

	return seasons, nil
}

// End closes an open season at the given time
func (r *SeasonRepository) End(ctx context.Context, number int, at time.Time) error {
	query := `UPDATE seasons SET ended_at = $3 WHERE guild_id = $1 AND season_number = $2 AND ended_at IS NULL`

	result, err := r.q.Exec(ctx, query, r.guildID, number, at)
	if err != nil {
		return fmt.Errorf("failed to end season %d: %w", number, err)
	}
	if result.RowsAffected() == 0 {
		return models.NewInvalidState("season %d is not open", number)
	}
	return nil
}

func seasonWindow(season *models.Season) []any {
	types := make([]string, len(models.SeasonTransactionTypes))
	for i, t := range models.SeasonTransactionTypes {
		types[i] = string(t)
	}
	return []any{season.StartedAt, season.EndedAt, types}
}

// GetStandings ranks accounts by net marbles won from matches and bets during the season
func (r *SeasonRepository) GetStandings(ctx context.Context, season *models.Season, limit int) ([]*models.Standing, error) {
	standings, err := queryStandings(ctx, r.q, seasonChangeAggregate, r.guildID, nil, limit, seasonWindow(season)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get standings for season %d: %w", season.Number, err)
	}
	return standings, nil
}

// GetStanding returns an account's place in the season, nil when it did not play
func (r *SeasonRepository) GetStanding(ctx context.Context, season *models.Season, discordID int64) (*models.Standing, error) {
	standing, err := queryStanding(ctx, r.q, seasonChangeAggregate, r.guildID, discordID, seasonWindow(season)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get season %d standing for account %d: %w", season.Number, discordID, err)
	}
	return standing, nil
}
