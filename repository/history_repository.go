package repository

import (
	"context"
	"errors"
	"fmt"

	"marbles/database"
	"marbles/models"

	"github.com/jackc/pgx/v5"
)

const (
	matchHistoryColumns = `id, guild_id, amount, challenger_id, recipient_id, winner_id, game, format, resolved_at`
	betHistoryColumns   = `id, guild_id, match_id, bettor_id, target_id, winner_id, amount, payout, resolved_at`
)

// HistoryRepository implements the HistoryRepository interface over
// matches_history and bets_history
type HistoryRepository struct {
	q       queryable
	guildID int64
}

// NewHistoryRepository creates a new history repository scoped to a guild
func NewHistoryRepository(db *database.DB, guildID int64) *HistoryRepository {
	return &HistoryRepository{q: db.Pool, guildID: guildID}
}

// newHistoryRepository creates a new history repository with a transaction and guild scope
func newHistoryRepository(tx queryable, guildID int64) *HistoryRepository {
	return &HistoryRepository{
		q:       tx,
		guildID: guildID,
	}
}

func scanMatchHistory(row scanner) (*models.MatchHistory, error) {
	var h models.MatchHistory
	err := row.Scan(
		&h.ID,
		&h.GuildID,
		&h.Amount,
		&h.ChallengerID,
		&h.RecipientID,
		&h.WinnerID,
		&h.Game,
		&h.Format,
		&h.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func scanBetHistory(row scanner) (*models.BetHistory, error) {
	var h models.BetHistory
	err := row.Scan(
		&h.ID,
		&h.GuildID,
		&h.MatchID,
		&h.BettorID,
		&h.TargetID,
		&h.WinnerID,
		&h.Amount,
		&h.Payout,
		&h.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// RecordMatch archives a resolved match under its live id
func (r *HistoryRepository) RecordMatch(ctx context.Context, history *models.MatchHistory) error {
	query := `
		INSERT INTO matches_history (id, guild_id, amount, challenger_id, recipient_id, winner_id, game, format)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING resolved_at
	`

	err := r.q.QueryRow(ctx, query,
		history.ID,
		r.guildID,
		history.Amount,
		history.ChallengerID,
		history.RecipientID,
		history.WinnerID,
		history.Game,
		history.Format,
	).Scan(&history.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to record match history for match %d: %w", history.ID, err)
	}

	history.GuildID = r.guildID
	return nil
}

// RecordBets archives settled bets in a single round trip
func (r *HistoryRepository) RecordBets(ctx context.Context, bets []*models.BetHistory) error {
	if len(bets) == 0 {
		return nil
	}

	query := `
		INSERT INTO bets_history (id, guild_id, match_id, bettor_id, target_id, winner_id, amount, payout)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING resolved_at
	`

	batch := &pgx.Batch{}
	for _, bet := range bets {
		batch.Queue(query, bet.ID, r.guildID, bet.MatchID, bet.BettorID, bet.TargetID, bet.WinnerID, bet.Amount, bet.Payout)
	}

	results := r.q.SendBatch(ctx, batch)
	for _, bet := range bets {
		if err := results.QueryRow().Scan(&bet.ResolvedAt); err != nil {
			results.Close()
			return fmt.Errorf("failed to record bet history for bet %d: %w", bet.ID, err)
		}
		bet.GuildID = r.guildID
	}

	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to record bet history: %w", err)
	}
	return nil
}

// GetMatch returns an archived match
func (r *HistoryRepository) GetMatch(ctx context.Context, matchID int64) (*models.MatchHistory, error) {
	query := `SELECT ` + matchHistoryColumns + ` FROM matches_history WHERE id = $1 AND guild_id = $2`

	history, err := scanMatchHistory(r.q.QueryRow(ctx, query, matchID, r.guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match history %d: %w", matchID, err)
	}
	return history, nil
}

// ListMatchesByAccount returns the newest resolved matches for an account
func (r *HistoryRepository) ListMatchesByAccount(ctx context.Context, discordID int64, opponentID *int64, limit int) ([]*models.MatchHistory, error) {
	query := `
		SELECT ` + matchHistoryColumns + `
		FROM matches_history
		WHERE guild_id = $1
		  AND (challenger_id = $2 OR recipient_id = $2)
		  AND ($3::BIGINT IS NULL OR challenger_id = $3 OR recipient_id = $3)
		ORDER BY resolved_at DESC, id DESC
		LIMIT $4
	`

	rows, err := r.q.Query(ctx, query, r.guildID, discordID, opponentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list match history for account %d: %w", discordID, err)
	}
	defer rows.Close()

	var histories []*models.MatchHistory
	for rows.Next() {
		history, err := scanMatchHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match history: %w", err)
		}
		histories = append(histories, history)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate match history: %w", err)
	}

	return histories, nil
}

// ListBetsByMatch returns the settled bets of an archived match
func (r *HistoryRepository) ListBetsByMatch(ctx context.Context, matchID int64) ([]*models.BetHistory, error) {
	query := `SELECT ` + betHistoryColumns + ` FROM bets_history WHERE match_id = $1 AND guild_id = $2 ORDER BY id`

	bets, err := r.listBets(ctx, query, matchID, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bet history for match %d: %w", matchID, err)
	}
	return bets, nil
}

// ListBetsByBettor returns the newest settled bets of a bettor
func (r *HistoryRepository) ListBetsByBettor(ctx context.Context, bettorID int64, limit int) ([]*models.BetHistory, error) {
	query := `
		SELECT ` + betHistoryColumns + `
		FROM bets_history
		WHERE bettor_id = $1 AND guild_id = $2
		ORDER BY resolved_at DESC, id DESC
		LIMIT $3
	`

	bets, err := r.listBets(ctx, query, bettorID, r.guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bet history for bettor %d: %w", bettorID, err)
	}
	return bets, nil
}

func (r *HistoryRepository) listBets(ctx context.Context, query string, args ...any) ([]*models.BetHistory, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []*models.BetHistory
	for rows.Next() {
		bet, err := scanBetHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet history: %w", err)
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bet history: %w", err)
	}

	return bets, nil
}

// GetBetStats aggregates the settled bets of a bettor
func (r *HistoryRepository) GetBetStats(ctx context.Context, bettorID int64) (*models.BetStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE target_id = winner_id),
			COUNT(*) FILTER (WHERE target_id <> winner_id),
			COALESCE(SUM(amount), 0)::BIGINT,
			COALESCE(SUM(payout), 0)::BIGINT,
			COALESCE(MAX(payout - amount) FILTER (WHERE target_id = winner_id), 0)::BIGINT,
			COALESCE(MAX(amount) FILTER (WHERE target_id <> winner_id), 0)::BIGINT
		FROM bets_history
		WHERE bettor_id = $1 AND guild_id = $2
	`

	var stats models.BetStats
	err := r.q.QueryRow(ctx, query, bettorID, r.guildID).Scan(
		&stats.TotalBets,
		&stats.TotalWins,
		&stats.TotalLosses,
		&stats.TotalWagered,
		&stats.TotalPayout,
		&stats.BiggestWin,
		&stats.BiggestLoss,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet stats for bettor %d: %w", bettorID, err)
	}

	return &stats, nil
}

var historyStatAggregates = map[models.LeaderboardStat]string{
	models.LeaderboardStatMatchCount: `
		SELECT discord_id, COUNT(*)::float8 FROM (
			SELECT challenger_id AS discord_id FROM matches_history WHERE guild_id = $1
			UNION ALL
			SELECT recipient_id FROM matches_history WHERE guild_id = $1
		) played
		GROUP BY discord_id`,
	models.LeaderboardStatBetTotal: `
		SELECT bettor_id, SUM(amount)::float8
		FROM bets_history WHERE guild_id = $1
		GROUP BY bettor_id`,
	models.LeaderboardStatBetWinRate: `
		SELECT bettor_id, 100 * (COUNT(*) FILTER (WHERE target_id = winner_id))::float8 / COUNT(*)
		FROM bets_history WHERE guild_id = $1
		GROUP BY bettor_id`,
}

// GetStandings ranks the accounts with archived matches or bets by a history stat
func (r *HistoryRepository) GetStandings(ctx context.Context, stat models.LeaderboardStat, limit int) ([]*models.Standing, error) {
	aggregate, ok := historyStatAggregates[stat]
	if !ok {
		return nil, models.NewInvalidArgument("%q is not a history stat", stat)
	}

	standings, err := queryStandings(ctx, r.q, aggregate, r.guildID, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s standings for guild %d: %w", stat, r.guildID, err)
	}
	return standings, nil
}

// GetStanding returns an account's place by a history stat, nil when it has no
// archived record for that stat
func (r *HistoryRepository) GetStanding(ctx context.Context, stat models.LeaderboardStat, discordID int64) (*models.Standing, error) {
	aggregate, ok := historyStatAggregates[stat]
	if !ok {
		return nil, models.NewInvalidArgument("%q is not a history stat", stat)
	}

	standing, err := queryStanding(ctx, r.q, aggregate, r.guildID, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s standing for account %d: %w", stat, discordID, err)
	}
	return standing, nil
}
