package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arenaforge/esports-platform/config"
	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
)

// SettlementPublisher dispatches settlement work that must happen after a
// lifecycle transition commits. Implementations are best-effort: the
// lifecycle service logs publish failures and never rolls the transition
// back, and manual trigger endpoints cover the gap.
type SettlementPublisher interface {
	PublishDistribute(ctx context.Context, tournamentID int) error
	PublishRefund(ctx context.Context, tournamentID int) error
	PublishNotify(ctx context.Context, tournamentID int, event string) error
}

// lifecycleTransitions is the full transition table. A status missing from
// the map or an empty slice means terminal.
var lifecycleTransitions = map[models.TournamentStatus][]models.TournamentStatus{
	models.StatusDraft: {models.StatusOpen},
	models.StatusOpen:  {models.StatusLive, models.StatusCancelled},
	models.StatusLive:  {models.StatusCompleted, models.StatusCancelled},
}

// startDateGracePeriod is how far past its scheduled start a tournament may
// be and still open for registration. Beyond this the operator has to fix
// the schedule first.
const startDateGracePeriod = time.Hour

// LifecycleService drives tournament status through the transition table.
// The status flip and its audit entry commit together; settlement side
// effects run after commit and fail soft.
type LifecycleService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	auditRepo       repositories.AuditRepository
	escrow          *EscrowService
	publisher       SettlementPublisher
	cfg             config.SettlementConfig
	logger          *slog.Logger

	// now is swapped out in tests.
	now func() time.Time
}

func NewLifecycleService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	auditRepo repositories.AuditRepository,
	escrow *EscrowService,
	publisher SettlementPublisher,
	cfg config.SettlementConfig,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		auditRepo:       auditRepo,
		escrow:          escrow,
		publisher:       publisher,
		cfg:             cfg,
		logger:          logger,
		now:             time.Now,
	}
}

func allowedTransition(from, to models.TournamentStatus) bool {
	for _, next := range lifecycleTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves a tournament from its current status to `to`, enforcing
// the transition table and guards, writing the audit entry in the same
// transaction, then dispatching side effects.
func (s *LifecycleService) Transition(ctx context.Context, tournamentID int, to models.TournamentStatus, actorID int, reason string) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	from := tournament.Status
	if !allowedTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s (allowed next: %v)", ErrInvalidTransition, from, to, lifecycleTransitions[from])
	}

	if err := s.checkGuards(ctx, tournament, to); err != nil {
		return err
	}

	err = runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if flipErr := s.tournamentRepo.UpdateStatusConditional(ctx, tx, tournamentID, from, to); flipErr != nil {
			// The tournament exists (we just loaded it); zero affected rows
			// means another caller advanced the status first.
			if errors.Is(flipErr, repositories.ErrTournamentNotFound) {
				return fmt.Errorf("%w: tournament %d left %s concurrently", ErrInvalidTransition, tournamentID, from)
			}
			return flipErr
		}
		return s.auditRepo.Create(ctx, tx, &models.AuditEntry{
			EventType:    models.AuditStatusChanged,
			TournamentID: &tournamentID,
			ActorID:      actorID,
			Details: models.AuditDetails{
				"from":   string(from),
				"to":     string(to),
				"reason": reason,
			},
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", tournamentID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.Int("actor_id", actorID),
	)

	s.dispatchSideEffects(ctx, tournamentID, to, actorID)
	return nil
}

func (s *LifecycleService) checkGuards(ctx context.Context, tournament *models.Tournament, to models.TournamentStatus) error {
	switch {
	case tournament.Status == models.StatusDraft && to == models.StatusOpen:
		if s.now().Sub(tournament.StartDate) > startDateGracePeriod {
			return fmt.Errorf("%w: start date %s is more than %s in the past",
				ErrStartDateExpired, tournament.StartDate.Format(time.RFC3339), startDateGracePeriod)
		}
	case tournament.Status == models.StatusOpen && to == models.StatusLive:
		teams, err := s.participantRepo.CountDistinctTeams(ctx, nil, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to count registered teams for tournament %d: %w", tournament.ID, err)
		}
		if teams < s.cfg.MinTeamsToStart {
			return fmt.Errorf("%w: %d registered, %d required", ErrInsufficientTeams, teams, s.cfg.MinTeamsToStart)
		}
	}
	return nil
}

// dispatchSideEffects runs the post-commit work for a transition. Each
// effect is independent and fails soft: the status change already holds.
func (s *LifecycleService) dispatchSideEffects(ctx context.Context, tournamentID int, to models.TournamentStatus, actorID int) {
	switch to {
	case models.StatusOpen:
		if err := s.escrow.InitializePool(ctx, tournamentID); err != nil {
			s.logger.Error("failed to initialize escrow pool after open",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	case models.StatusLive:
		if err := s.escrow.LockPool(ctx, tournamentID, actorID); err != nil {
			s.logger.Error("failed to lock escrow pool after go-live",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	case models.StatusCompleted:
		if s.publisher == nil {
			return
		}
		if err := s.publisher.PublishDistribute(ctx, tournamentID); err != nil {
			s.logger.Error("failed to publish distribute job",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	case models.StatusCancelled:
		if s.publisher == nil {
			return
		}
		if err := s.publisher.PublishRefund(ctx, tournamentID); err != nil {
			s.logger.Error("failed to publish refund job",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	}

	if s.publisher != nil && (to == models.StatusCompleted || to == models.StatusCancelled) {
		if err := s.publisher.PublishNotify(ctx, tournamentID, string(to)); err != nil {
			s.logger.Warn("failed to publish notification job",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	}
}

// SweepResult reports one go-live sweep pass.
type SweepResult struct {
	Started int `json:"started"`
	Failed  int `json:"failed"`
}

// SweepDueTournaments attempts OPEN→LIVE for every open tournament whose
// start time has passed. One tournament's failure never aborts the batch.
func (s *LifecycleService) SweepDueTournaments(ctx context.Context) (SweepResult, error) {
	due, err := s.tournamentRepo.ListOpenDueToStart(ctx, s.now())
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list tournaments due to start: %w", err)
	}

	var result SweepResult
	for _, t := range due {
		if err := s.Transition(ctx, t.ID, models.StatusLive, 0, "scheduled start time reached"); err != nil {
			result.Failed++
			s.logger.Warn("sweep could not start tournament",
				slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		result.Started++
	}

	if len(due) > 0 {
		s.logger.Info("go-live sweep finished",
			slog.Int("due", len(due)),
			slog.Int("started", result.Started),
			slog.Int("failed", result.Failed),
		)
	}
	return result, nil
}
