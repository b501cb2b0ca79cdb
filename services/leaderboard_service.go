package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arenaforge/esports-platform/cache"
	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
)

// LeaderboardService serves standings from the Redis sorted set when it is
// warm and from the durable table otherwise. The table is the source of
// truth; the cache is reseeded on every miss and never trusted past its TTL.
type LeaderboardService struct {
	leaderboardRepo repositories.LeaderboardRepository
	cache           *cache.LeaderboardCache
	logger          *slog.Logger
}

func NewLeaderboardService(
	leaderboardRepo repositories.LeaderboardRepository,
	leaderboardCache *cache.LeaderboardCache,
	logger *slog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		leaderboardRepo: leaderboardRepo,
		cache:           leaderboardCache,
		logger:          logger,
	}
}

// GetLeaderboard returns the ranked standings for a tournament.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, tournamentID int) ([]models.LeaderboardEntry, error) {
	if s.cache != nil {
		cached, err := s.cache.GetTop(ctx, tournamentID, -1)
		if err != nil {
			s.logger.Warn("leaderboard cache read failed, falling back to database",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		} else if len(cached) > 0 {
			return s.hydrate(ctx, tournamentID, cached)
		}
	}

	entries, err := s.leaderboardRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(entries) > 0 {
		ranked := make([]cache.RankedTeam, 0, len(entries))
		for _, e := range entries {
			ranked = append(ranked, cache.RankedTeam{TeamID: e.TeamID, Points: e.TotalPoints})
		}
		if seedErr := s.cache.Seed(ctx, tournamentID, ranked); seedErr != nil {
			s.logger.Warn("failed to seed leaderboard cache",
				slog.Int("tournament_id", tournamentID), slog.Any("error", seedErr))
		}
	}
	return entries, nil
}

// hydrate resolves cached (teamID, points) pairs into full rows. The cache
// only orders; kills and match counts always come from the table. Any
// inconsistency falls back to the authoritative ranking.
func (s *LeaderboardService) hydrate(ctx context.Context, tournamentID int, ranked []cache.RankedTeam) ([]models.LeaderboardEntry, error) {
	entries, err := s.leaderboardRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(entries) != len(ranked) {
		return entries, nil
	}

	byTeam := make(map[int]models.LeaderboardEntry, len(entries))
	for _, e := range entries {
		byTeam[e.TeamID] = e
	}

	ordered := make([]models.LeaderboardEntry, 0, len(ranked))
	for _, r := range ranked {
		e, ok := byTeam[r.TeamID]
		if !ok {
			return entries, nil
		}
		ordered = append(ordered, e)
	}
	return ordered, nil
}

// GetTeamStanding returns one team's row plus its 1-based rank.
func (s *LeaderboardService) GetTeamStanding(ctx context.Context, tournamentID, teamID int) (*models.LeaderboardEntry, int, error) {
	entry, err := s.leaderboardRepo.GetByTournamentAndTeam(ctx, tournamentID, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeaderboardEntryNotFound) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}

	if s.cache != nil {
		rank, rankErr := s.cache.GetTeamRank(ctx, tournamentID, teamID)
		if rankErr == nil && rank > 0 {
			return entry, rank, nil
		}
		if rankErr != nil {
			s.logger.Warn("leaderboard cache rank lookup failed",
				slog.Int("tournament_id", tournamentID), slog.Any("error", rankErr))
		}
	}

	entries, err := s.leaderboardRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, 0, err
	}
	for i, e := range entries {
		if e.TeamID == teamID {
			return entry, i + 1, nil
		}
	}
	return entry, 0, nil
}
