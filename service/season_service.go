package service

import (
	"context"
	"fmt"
	"time"

	"marbles/models"
)

// seasonService implements the SeasonService interface
type seasonService struct {
	accountRepo AccountRepository
	seasonRepo  SeasonRepository
}

// NewSeasonService creates a new season service
func NewSeasonService(accountRepo AccountRepository, seasonRepo SeasonRepository) SeasonService {
	return &seasonService{
		accountRepo: accountRepo,
		seasonRepo:  seasonRepo,
	}
}

// findSeason returns the season with the given number, or the latest one for 0
func findSeason(ctx context.Context, seasonRepo SeasonRepository, number int) (*models.Season, error) {
	if number < 0 {
		return nil, models.NewInvalidArgument("season number must not be negative, got %d", number)
	}

	if number == 0 {
		season, err := seasonRepo.GetLatest(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest season: %w", err)
		}
		if season == nil {
			return nil, models.NewInvalidState("no season has been started")
		}
		return season, nil
	}

	season, err := seasonRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get season: %w", err)
	}
	if season == nil {
		return nil, models.NewNotFound("season", int64(number))
	}
	return season, nil
}

// Start opens the season after the latest one. Only one season can be open.
func (s *seasonService) Start(ctx context.Context, endsAt time.Time, now time.Time) (*models.Season, error) {
	if !endsAt.After(now) {
		return nil, models.NewInvalidArgument("season end %s must be after %s", endsAt.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	}

	active, err := s.seasonRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}
	if active != nil {
		return nil, models.NewInvalidState("season %d is still open, end it before starting another", active.Number)
	}

	latest, err := s.seasonRepo.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest season: %w", err)
	}
	number := 1
	if latest != nil {
		number = latest.Number + 1
	}

	season := &models.Season{
		Number:    number,
		StartedAt: now.UTC(),
		EndsAt:    endsAt.UTC(),
	}
	if err := s.seasonRepo.Create(ctx, season); err != nil {
		return nil, err
	}
	return season, nil
}

// End closes the open season
func (s *seasonService) End(ctx context.Context, now time.Time) (*models.Season, error) {
	season, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	endedAt := now.UTC()
	if err := s.seasonRepo.End(ctx, season.Number, endedAt); err != nil {
		return nil, err
	}
	season.EndedAt = &endedAt
	return season, nil
}

// Current returns the open season, InvalidState when there is none
func (s *seasonService) Current(ctx context.Context) (*models.Season, error) {
	season, err := s.seasonRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active season: %w", err)
	}
	if season == nil {
		return nil, models.NewInvalidState("no season is open")
	}
	return season, nil
}

func (s *seasonService) List(ctx context.Context) ([]*models.Season, error) {
	seasons, err := s.seasonRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	return seasons, nil
}

// Standings ranks the accounts of a season by net marbles won from matches and bets
func (s *seasonService) Standings(ctx context.Context, number int, limit int) ([]*models.LeaderboardEntry, error) {
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	season, err := findSeason(ctx, s.seasonRepo, number)
	if err != nil {
		return nil, err
	}

	standings, err := s.seasonRepo.GetStandings(ctx, season, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get season standings: %w", err)
	}
	return rankedEntries(ctx, s.accountRepo, standings)
}
