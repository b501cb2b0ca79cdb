package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenaforge/esports-platform/cache"
	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
)

// minOverrideReasonLen is the shortest acceptable override justification.
const minOverrideReasonLen = 10

// MatchResultInput is one team's reported outcome in a match.
type MatchResultInput struct {
	TeamID    int `json:"team_id"`
	Placement int `json:"placement"`
	Kills     int `json:"kills"`
}

// LiveBroadcaster pushes leaderboard changes to connected spectators.
// Advisory: failures never affect the submitted result.
type LiveBroadcaster interface {
	BroadcastLeaderboard(tournamentID int, entries []models.LeaderboardEntry)
}

// ResultService handles match result submission, the result lock that
// freezes submissions, and the admin override that unfreezes them. The
// durable leaderboard rows update in the same transaction as the match
// participations; the Redis projection and websocket push happen after
// commit and fail soft.
type ResultService struct {
	db             *sql.DB
	matchRepo      repositories.MatchRepository
	lockRepo       repositories.ResultLockRepository
	leaderboard    repositories.LeaderboardRepository
	tournamentRepo repositories.TournamentRepository
	auditRepo      repositories.AuditRepository
	cache          *cache.LeaderboardCache
	broadcaster    LiveBroadcaster
	logger         *slog.Logger
}

func NewResultService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	lockRepo repositories.ResultLockRepository,
	leaderboard repositories.LeaderboardRepository,
	tournamentRepo repositories.TournamentRepository,
	auditRepo repositories.AuditRepository,
	leaderboardCache *cache.LeaderboardCache,
	broadcaster LiveBroadcaster,
	logger *slog.Logger,
) *ResultService {
	return &ResultService{
		db:             db,
		matchRepo:      matchRepo,
		lockRepo:       lockRepo,
		leaderboard:    leaderboard,
		tournamentRepo: tournamentRepo,
		auditRepo:      auditRepo,
		cache:          leaderboardCache,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

// SubmitMatchResults records every team's outcome for a match, scores it,
// folds the points into the durable leaderboard and marks the match
// completed, all in one transaction. Blocked while an active result lock
// exists; after an override the match may be re-submitted.
func (s *ResultService) SubmitMatchResults(ctx context.Context, matchID, actorID int, results []MatchResultInput) error {
	if len(results) == 0 {
		return fmt.Errorf("%w: no results submitted", ErrValidationFailed)
	}
	for _, r := range results {
		if r.Placement <= 0 || r.Kills < 0 {
			return fmt.Errorf("%w: team %d has invalid placement or kills", ErrValidationFailed, r.TeamID)
		}
	}

	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	err = runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		// Checked inside the transaction so a lock committed after the
		// match load still blocks this submission.
		if _, lockErr := s.lockRepo.GetActiveByMatch(ctx, tx, matchID); lockErr == nil {
			return fmt.Errorf("%w: match %d", ErrResultLocked, matchID)
		} else if !errors.Is(lockErr, repositories.ErrResultLockNotFound) {
			return lockErr
		}

		for _, r := range results {
			points := Score(r.Placement, r.Kills, tournament.ScoreRules)
			participation := &models.MatchParticipation{
				MatchID:   matchID,
				TeamID:    r.TeamID,
				Placement: r.Placement,
				Kills:     r.Kills,
				Score:     points,
			}
			if upsertErr := s.matchRepo.UpsertParticipation(ctx, tx, participation); upsertErr != nil {
				return fmt.Errorf("failed to record result for team %d: %w", r.TeamID, upsertErr)
			}
			if incErr := s.leaderboard.IncrementScore(ctx, tx, match.TournamentID, r.TeamID, points, r.Kills); incErr != nil {
				return fmt.Errorf("failed to update leaderboard for team %d: %w", r.TeamID, incErr)
			}
		}
		return s.matchRepo.UpdateStatus(ctx, tx, matchID, models.MatchCompleted)
	})
	if err != nil {
		return err
	}

	s.logger.Info("match results submitted",
		slog.Int("match_id", matchID),
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("teams", len(results)),
		slog.Int("actor_id", actorID),
	)

	s.refreshProjection(ctx, match.TournamentID)
	return nil
}

// refreshProjection reseeds the cached sorted set from the durable rows and
// broadcasts the new standings. Purely advisory.
func (s *ResultService) refreshProjection(ctx context.Context, tournamentID int) {
	entries, err := s.leaderboard.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		s.logger.Warn("failed to reload leaderboard after submission",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}

	if s.cache != nil {
		ranked := make([]cache.RankedTeam, 0, len(entries))
		for _, e := range entries {
			ranked = append(ranked, cache.RankedTeam{TeamID: e.TeamID, Points: e.TotalPoints})
		}
		if err := s.cache.Seed(ctx, tournamentID, ranked); err != nil {
			s.logger.Warn("failed to reseed leaderboard cache",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastLeaderboard(tournamentID, entries)
	}
}

// LockResult freezes a match's submitted results. Fails when an active
// (non-overridden) lock already exists.
func (s *ResultService) LockResult(ctx context.Context, matchID, actorID int) (*models.ResultLock, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	lock := &models.ResultLock{MatchID: matchID, LockedBy: actorID}
	err = runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if _, activeErr := s.lockRepo.GetActiveByMatch(ctx, tx, matchID); activeErr == nil {
			return fmt.Errorf("%w: match %d", ErrAlreadyLocked, matchID)
		} else if !errors.Is(activeErr, repositories.ErrResultLockNotFound) {
			return activeErr
		}

		if createErr := s.lockRepo.Create(ctx, tx, lock); createErr != nil {
			return createErr
		}
		return s.auditRepo.Create(ctx, tx, &models.AuditEntry{
			EventType:    models.AuditResultLocked,
			TournamentID: &match.TournamentID,
			MatchID:      &matchID,
			ActorID:      actorID,
			Details: models.AuditDetails{
				"lock_id": lock.ID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match results locked",
		slog.Int("match_id", matchID), slog.Int("actor_id", actorID))
	return lock, nil
}

// OverrideResult lifts an active lock so the match can be re-submitted.
// The override is permanent in the audit log even if the match is locked
// again afterwards.
func (s *ResultService) OverrideResult(ctx context.Context, matchID, actorID int, reason string) error {
	if len(reason) < minOverrideReasonLen {
		return fmt.Errorf("%w: need at least %d characters", ErrOverrideReasonTooShort, minOverrideReasonLen)
	}

	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}

	err = runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		active, lookupErr := s.lockRepo.GetActiveByMatch(ctx, tx, matchID)
		if lookupErr != nil {
			if errors.Is(lookupErr, repositories.ErrResultLockNotFound) {
				return fmt.Errorf("%w: match %d", ErrNoLockFound, matchID)
			}
			return lookupErr
		}

		if overrideErr := s.lockRepo.Override(ctx, tx, active.ID, actorID, reason); overrideErr != nil {
			if errors.Is(overrideErr, repositories.ErrResultLockNotFound) {
				return fmt.Errorf("%w: match %d", ErrNoLockFound, matchID)
			}
			return overrideErr
		}
		return s.auditRepo.Create(ctx, tx, &models.AuditEntry{
			EventType:    models.AuditResultOverridden,
			TournamentID: &match.TournamentID,
			MatchID:      &matchID,
			ActorID:      actorID,
			Details: models.AuditDetails{
				"lock_id":              active.ID,
				"originally_locked_by": active.LockedBy,
				"reason":               reason,
			},
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("result lock overridden",
		slog.Int("match_id", matchID), slog.Int("actor_id", actorID))
	return nil
}

// GetMatch returns a match with its participations and latest lock row.
func (s *ResultService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	participations, err := s.matchRepo.ListParticipations(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	match.Participations = participations

	lock, err := s.lockRepo.GetLatestByMatch(ctx, nil, matchID)
	if err != nil && !errors.Is(err, repositories.ErrResultLockNotFound) {
		return nil, err
	}
	match.Lock = lock

	return match, nil
}

// CreateMatch schedules a match within a tournament.
func (s *ResultService) CreateMatch(ctx context.Context, match *models.Match) error {
	if match.Status == "" {
		match.Status = models.MatchScheduled
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchTournamentInvalid) {
			return ErrTournamentNotFound
		}
		return err
	}
	return nil
}

// ListMatches returns a tournament's matches in schedule order.
func (s *ResultService) ListMatches(ctx context.Context, tournamentID int) ([]models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}
