package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marbles/database"
	"marbles/models"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, discord_id, guild_id, display_name, balance, wins, losses, elo,
	friendly_last_used, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q       queryable
	guildID int64
}

// NewAccountRepository creates a new account repository scoped to a guild
func NewAccountRepository(db *database.DB, guildID int64) *AccountRepository {
	return &AccountRepository{q: db.Pool, guildID: guildID}
}

// newAccountRepository creates a new account repository with a transaction and guild scope
func newAccountRepository(tx queryable, guildID int64) *AccountRepository {
	return &AccountRepository{
		q:       tx,
		guildID: guildID,
	}
}

func scanAccount(row scanner) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.DiscordID,
		&account.GuildID,
		&account.DisplayName,
		&account.Balance,
		&account.Wins,
		&account.Losses,
		&account.Elo,
		&account.FriendlyLastUsed,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func collectAccounts(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	return accounts, nil
}

// GetByDiscordID retrieves an account by its Discord ID in the current guild
func (r *AccountRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE discord_id = $1 AND guild_id = $2`

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID, r.guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d in guild %d: %w", discordID, r.guildID, err)
	}

	return account, nil
}

// LockAccounts selects the accounts FOR UPDATE. Rows are locked in ascending
// discord_id order so concurrent multi-account operations cannot deadlock.
func (r *AccountRepository) LockAccounts(ctx context.Context, discordIDs ...int64) (map[int64]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE guild_id = $1 AND discord_id = ANY($2)
		ORDER BY discord_id
		FOR UPDATE
	`

	rows, err := r.q.Query(ctx, query, r.guildID, discordIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts in guild %d: %w", r.guildID, err)
	}

	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, err
	}

	locked := make(map[int64]*models.Account, len(accounts))
	for _, account := range accounts {
		locked[account.DiscordID] = account
	}
	return locked, nil
}

// Create creates a new account with the initial balance in the current guild
func (r *AccountRepository) Create(ctx context.Context, discordID int64, displayName string, initialBalance int64, initialElo float64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (discord_id, guild_id, display_name, balance, elo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, discordID, r.guildID, displayName, initialBalance, initialElo))
	if err != nil {
		return nil, fmt.Errorf("failed to create account for discord ID %d in guild %d: %w", discordID, r.guildID, err)
	}

	return account, nil
}

// AddBalance adds to an account's balance atomically
func (r *AccountRepository) AddBalance(ctx context.Context, discordID int64, amount int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE discord_id = $2 AND guild_id = $3
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, amount, discordID, r.guildID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.NewNotFound("account", discordID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add balance for account %d: %w", discordID, err)
	}

	return balance, nil
}

// DeductBalance deducts from an account's balance atomically, failing if insufficient funds
func (r *AccountRepository) DeductBalance(ctx context.Context, discordID int64, amount int64) (int64, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE discord_id = $2 AND guild_id = $3 AND balance >= $1
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, amount, discordID, r.guildID).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to deduct balance for account %d: %w", discordID, err)
	}

	// No row updated: either the account is missing or the balance is too low
	account, getErr := r.GetByDiscordID(ctx, discordID)
	if getErr != nil {
		return 0, getErr
	}
	if account == nil {
		return 0, models.NewNotFound("account", discordID)
	}
	return 0, models.NewInsufficientFunds(account.Balance, amount)
}

// SetBalance overwrites an account's balance
func (r *AccountRepository) SetBalance(ctx context.Context, discordID int64, balance int64) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE discord_id = $2 AND guild_id = $3
	`

	result, err := r.q.Exec(ctx, query, balance, discordID, r.guildID)
	if err != nil {
		return fmt.Errorf("failed to set balance for account %d: %w", discordID, err)
	}
	if result.RowsAffected() == 0 {
		return models.NewNotFound("account", discordID)
	}

	return nil
}

// AdjustWins changes the win counter, never below zero
func (r *AccountRepository) AdjustWins(ctx context.Context, discordID int64, delta int) (int, error) {
	return r.adjustCounter(ctx, "wins", discordID, delta)
}

// AdjustLosses changes the loss counter, never below zero
func (r *AccountRepository) AdjustLosses(ctx context.Context, discordID int64, delta int) (int, error) {
	return r.adjustCounter(ctx, "losses", discordID, delta)
}

func (r *AccountRepository) adjustCounter(ctx context.Context, column string, discordID int64, delta int) (int, error) {
	// column is one of two constants above, never caller input
	query := fmt.Sprintf(`
		UPDATE accounts
		SET %[1]s = GREATEST(%[1]s + $1, 0), updated_at = NOW()
		WHERE discord_id = $2 AND guild_id = $3
		RETURNING %[1]s
	`, column)

	var value int
	err := r.q.QueryRow(ctx, query, delta, discordID, r.guildID).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, models.NewNotFound("account", discordID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust %s for account %d: %w", column, discordID, err)
	}

	return value, nil
}

// UpdateElo stores a new rating
func (r *AccountRepository) UpdateElo(ctx context.Context, discordID int64, elo float64) error {
	query := `UPDATE accounts SET elo = $1, updated_at = NOW() WHERE discord_id = $2 AND guild_id = $3`

	result, err := r.q.Exec(ctx, query, elo, discordID, r.guildID)
	if err != nil {
		return fmt.Errorf("failed to update elo for account %d: %w", discordID, err)
	}
	if result.RowsAffected() == 0 {
		return models.NewNotFound("account", discordID)
	}
	return nil
}

// UpdateDisplayName stores a new display name
func (r *AccountRepository) UpdateDisplayName(ctx context.Context, discordID int64, displayName string) error {
	query := `UPDATE accounts SET display_name = $1, updated_at = NOW() WHERE discord_id = $2 AND guild_id = $3`

	result, err := r.q.Exec(ctx, query, displayName, discordID, r.guildID)
	if err != nil {
		return fmt.Errorf("failed to update display name for account %d: %w", discordID, err)
	}
	if result.RowsAffected() == 0 {
		return models.NewNotFound("account", discordID)
	}
	return nil
}

// UpdateFriendlyLastUsed records when the account last claimed the friendly reward
func (r *AccountRepository) UpdateFriendlyLastUsed(ctx context.Context, discordID int64, at time.Time) error {
	query := `UPDATE accounts SET friendly_last_used = $1, updated_at = NOW() WHERE discord_id = $2 AND guild_id = $3`

	result, err := r.q.Exec(ctx, query, at, discordID, r.guildID)
	if err != nil {
		return fmt.Errorf("failed to update friendly timestamp for account %d: %w", discordID, err)
	}
	if result.RowsAffected() == 0 {
		return models.NewNotFound("account", discordID)
	}
	return nil
}

// GetAll returns all accounts in the guild
func (r *AccountRepository) GetAll(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE guild_id = $1 ORDER BY discord_id`

	rows, err := r.q.Query(ctx, query, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts for guild %d: %w", r.guildID, err)
	}

	return collectAccounts(rows)
}

var leaderboardValue = map[models.LeaderboardStat]string{
	models.LeaderboardStatBalance: "balance",
	models.LeaderboardStatWins:    "wins",
	models.LeaderboardStatLosses:  "losses",
	models.LeaderboardStatWinRate: "CASE WHEN wins + losses = 0 THEN 0 ELSE 100 * wins::float8 / (wins + losses) END",
	models.LeaderboardStatElo:     "elo",
}

// GetLeaderboard returns the top accounts by the given stat, ties broken by Discord ID
func (r *AccountRepository) GetLeaderboard(ctx context.Context, stat models.LeaderboardStat, limit int) ([]*models.Account, error) {
	value, ok := leaderboardValue[stat]
	if !ok {
		return nil, models.NewInvalidArgument("unknown leaderboard stat %q", stat)
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE guild_id = $1 ORDER BY ` + value + ` DESC, discord_id LIMIT $2`

	rows, err := r.q.Query(ctx, query, r.guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s leaderboard for guild %d: %w", stat, r.guildID, err)
	}

	return collectAccounts(rows)
}

// GetStanding returns an account's place on the leaderboard of an account stat,
// nil when the account does not exist
func (r *AccountRepository) GetStanding(ctx context.Context, stat models.LeaderboardStat, discordID int64) (*models.Standing, error) {
	value, ok := leaderboardValue[stat]
	if !ok {
		return nil, models.NewInvalidArgument("unknown leaderboard stat %q", stat)
	}

	aggregate := `SELECT discord_id, (` + value + `)::float8 FROM accounts WHERE guild_id = $1`

	standing, err := queryStanding(ctx, r.q, aggregate, r.guildID, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s standing for account %d: %w", stat, discordID, err)
	}
	return standing, nil
}

// GetEconomySummary aggregates the guild's spendable and escrowed marbles
func (r *AccountRepository) GetEconomySummary(ctx context.Context) (*models.EconomySummary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM accounts WHERE guild_id = $1),
			(SELECT COALESCE(SUM(balance), 0)::BIGINT FROM accounts WHERE guild_id = $1),
			(SELECT COALESCE(SUM(amount * 2), 0)::BIGINT FROM matches WHERE guild_id = $1 AND accepted),
			(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM bets WHERE guild_id = $1),
			(SELECT COUNT(*) FROM matches WHERE guild_id = $1),
			(SELECT COUNT(*) FROM bets WHERE guild_id = $1)
	`

	summary := &models.EconomySummary{GuildID: r.guildID}
	err := r.q.QueryRow(ctx, query, r.guildID).Scan(
		&summary.AccountCount,
		&summary.TotalBalance,
		&summary.EscrowedMatches,
		&summary.EscrowedBets,
		&summary.LiveMatches,
		&summary.LiveBets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get economy summary for guild %d: %w", r.guildID, err)
	}

	return summary, nil
}
