package service

import (
	"context"
	"fmt"

	"marbles/models"
)

const maxListLimit = 100

// statsService implements the StatsService interface
type statsService struct {
	accountRepo        AccountRepository
	matchRepo          MatchRepository
	betRepo            BetRepository
	historyRepo        HistoryRepository
	balanceHistoryRepo BalanceHistoryRepository
	seasonRepo         SeasonRepository
}

// NewStatsService creates a new stats service
func NewStatsService(
	accountRepo AccountRepository,
	matchRepo MatchRepository,
	betRepo BetRepository,
	historyRepo HistoryRepository,
	balanceHistoryRepo BalanceHistoryRepository,
	seasonRepo SeasonRepository,
) StatsService {
	return &statsService{
		accountRepo:        accountRepo,
		matchRepo:          matchRepo,
		betRepo:            betRepo,
		historyRepo:        historyRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		seasonRepo:         seasonRepo,
	}
}

func validateLimit(limit int) error {
	if limit < 1 || limit > maxListLimit {
		return models.NewInvalidArgument("limit must be between 1 and %d, got %d", maxListLimit, limit)
	}
	return nil
}

// GetLeaderboard returns the top accounts ranked by stat. Account stats are
// read from the accounts themselves, the others from the archive or the
// latest season.
func (s *statsService) GetLeaderboard(ctx context.Context, stat models.LeaderboardStat, limit int) ([]*models.LeaderboardEntry, error) {
	if !stat.IsValid() {
		return nil, models.NewInvalidArgument("unknown leaderboard stat %q", stat)
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	if stat.IsAccountStat() {
		accounts, err := s.accountRepo.GetLeaderboard(ctx, stat, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to get leaderboard: %w", err)
		}

		entries := make([]*models.LeaderboardEntry, 0, len(accounts))
		for i, account := range accounts {
			entries = append(entries, &models.LeaderboardEntry{Rank: i + 1, Account: account, Value: stat.AccountValue(account)})
		}
		return entries, nil
	}

	var standings []*models.Standing
	var err error
	if stat.IsHistoryStat() {
		standings, err = s.historyRepo.GetStandings(ctx, stat, limit)
	} else {
		var season *models.Season
		season, err = findSeason(ctx, s.seasonRepo, 0)
		if err != nil {
			return nil, err
		}
		standings, err = s.seasonRepo.GetStandings(ctx, season, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s leaderboard: %w", stat, err)
	}
	return rankedEntries(ctx, s.accountRepo, standings)
}

// GetLeaderboardPosition returns where an account stands on the leaderboard of stat
func (s *statsService) GetLeaderboardPosition(ctx context.Context, stat models.LeaderboardStat, discordID int64) (*models.LeaderboardEntry, error) {
	if !stat.IsValid() {
		return nil, models.NewInvalidArgument("unknown leaderboard stat %q", stat)
	}

	account, err := s.accountRepo.GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, models.NewNotFound("account", discordID)
	}

	var standing *models.Standing
	switch {
	case stat.IsAccountStat():
		standing, err = s.accountRepo.GetStanding(ctx, stat, discordID)
	case stat.IsHistoryStat():
		standing, err = s.historyRepo.GetStanding(ctx, stat, discordID)
	default:
		var season *models.Season
		season, err = findSeason(ctx, s.seasonRepo, 0)
		if err != nil {
			return nil, err
		}
		standing, err = s.seasonRepo.GetStanding(ctx, season, discordID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s standing: %w", stat, err)
	}
	if standing == nil {
		return nil, models.NewNotFound(string(stat)+" standing of account", discordID)
	}

	return &models.LeaderboardEntry{Rank: standing.Rank, Account: account, Value: standing.Value}, nil
}

// rankedEntries attaches the account to each standing
func rankedEntries(ctx context.Context, accountRepo AccountRepository, standings []*models.Standing) ([]*models.LeaderboardEntry, error) {
	entries := make([]*models.LeaderboardEntry, 0, len(standings))
	for _, standing := range standings {
		account, err := accountRepo.GetByDiscordID(ctx, standing.DiscordID)
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil {
			return nil, models.NewNotFound("account", standing.DiscordID)
		}
		entries = append(entries, &models.LeaderboardEntry{Rank: standing.Rank, Account: account, Value: standing.Value})
	}
	return entries, nil
}

// GetPlayerStats combines an account's record, ratings and betting statistics
func (s *statsService) GetPlayerStats(ctx context.Context, discordID int64) (*models.PlayerStats, error) {
	account, err := s.accountRepo.GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, models.NewNotFound("account", discordID)
	}

	betStats, err := s.historyRepo.GetBetStats(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet stats: %w", err)
	}

	liveMatch, err := s.matchRepo.GetLiveByParticipant(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get live match: %w", err)
	}

	liveBets, err := s.betRepo.ListByBettor(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get live bets: %w", err)
	}
	var liveBetTotal int64
	for _, bet := range liveBets {
		liveBetTotal += bet.Amount
	}

	return &models.PlayerStats{
		Account:      account,
		MatchCount:   account.MatchesPlayed(),
		WinRate:      account.WinRate(),
		BetStats:     betStats,
		LiveMatch:    liveMatch,
		LiveBetTotal: liveBetTotal,
	}, nil
}

// GetEconomySummary returns the guild's marble supply
func (s *statsService) GetEconomySummary(ctx context.Context) (*models.EconomySummary, error) {
	summary, err := s.accountRepo.GetEconomySummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get economy summary: %w", err)
	}
	return summary, nil
}

// GetMatchHistory returns resolved matches for an account, optionally against one opponent
func (s *statsService) GetMatchHistory(ctx context.Context, discordID int64, opponentID *int64, limit int) ([]*models.MatchHistory, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}
	if opponentID != nil && *opponentID == discordID {
		return nil, models.NewInvalidArgument("opponent must differ from the player")
	}

	history, err := s.historyRepo.ListMatchesByAccount(ctx, discordID, opponentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get match history: %w", err)
	}
	return history, nil
}

// GetBetHistory returns settled bets of a bettor
func (s *statsService) GetBetHistory(ctx context.Context, bettorID int64, limit int) ([]*models.BetHistory, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	history, err := s.historyRepo.ListBetsByBettor(ctx, bettorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet history: %w", err)
	}
	return history, nil
}

// GetBalanceHistory returns recent balance changes of an account
func (s *statsService) GetBalanceHistory(ctx context.Context, discordID int64, limit int) ([]*models.BalanceHistory, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	history, err := s.balanceHistoryRepo.GetByUser(ctx, discordID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	return history, nil
}
