package repository

import (
	"context"
	"fmt"

	"marbles/models"
)

// standingsQuery ranks the (discord_id, value) rows of an aggregate. The
// aggregate reads the guild from $1; $2 optionally narrows the result to one
// member, $3 is the limit and any further arguments start at $4.
const standingsQuery = `
	SELECT rank, discord_id, value FROM (
		SELECT discord_id, value, ROW_NUMBER() OVER (ORDER BY value DESC, discord_id) AS rank
		FROM (%s) AS agg (discord_id, value)
	) ranked
	WHERE $2::BIGINT IS NULL OR discord_id = $2
	ORDER BY rank
	LIMIT $3
`

func queryStandings(ctx context.Context, q queryable, aggregate string, guildID int64, memberID *int64, limit int, extra ...any) ([]*models.Standing, error) {
	args := append([]any{guildID, memberID, limit}, extra...)

	rows, err := q.Query(ctx, fmt.Sprintf(standingsQuery, aggregate), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []*models.Standing
	for rows.Next() {
		var s models.Standing
		if err := rows.Scan(&s.Rank, &s.DiscordID, &s.Value); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		standings = append(standings, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate standings: %w", err)
	}

	return standings, nil
}

// queryStanding returns one member's standing, nil when the aggregate has no row for them
func queryStanding(ctx context.Context, q queryable, aggregate string, guildID, discordID int64, extra ...any) (*models.Standing, error) {
	standings, err := queryStandings(ctx, q, aggregate, guildID, &discordID, 1, extra...)
	if err != nil {
		return nil, err
	}
	if len(standings) == 0 {
		return nil, nil
	}
	return standings[0], nil
}
