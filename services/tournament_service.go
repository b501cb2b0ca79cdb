package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
)

// TournamentService handles tournament CRUD and participant registration.
// Prize rules are validated once here, at create/update time; the payout
// engine can then trust every rule set it reads.
type TournamentService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	escrow          *EscrowService
	wallets         *WalletService
	logger          *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	escrow *EscrowService,
	wallets *WalletService,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		escrow:          escrow,
		wallets:         wallets,
		logger:          logger,
	}
}

func (s *TournamentService) Create(ctx context.Context, t *models.Tournament) error {
	if err := s.validate(t); err != nil {
		return err
	}
	t.Status = models.StatusDraft

	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return ErrTournamentNameConflict
		case errors.Is(err, repositories.ErrTournamentInvalidOrg):
			return fmt.Errorf("%w: organizer %d", ErrUserNotFound, t.OrganizerID)
		}
		return err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID), slog.Int("organizer_id", t.OrganizerID))
	return nil
}

func (s *TournamentService) validate(t *models.Tournament) error {
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	if t.EntryFeePerPerson.IsNegative() {
		return fmt.Errorf("%w: entry fee cannot be negative", ErrValidationFailed)
	}
	if t.MinTeams < 2 || t.MaxTeams < t.MinTeams {
		return fmt.Errorf("%w: need min_teams >= 2 and max_teams >= min_teams", ErrValidationFailed)
	}
	if err := t.PrizeDistribution.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

func (s *TournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

// Update rewrites the editable fields. Only DRAFT tournaments may change
// their fee or prize rules; money has not moved yet.
func (s *TournamentService) Update(ctx context.Context, actorID int, t *models.Tournament) error {
	current, err := s.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	if current.OrganizerID != actorID {
		return ErrForbiddenOperation
	}
	if current.Status != models.StatusDraft &&
		(!current.EntryFeePerPerson.Equal(t.EntryFeePerPerson) || !samePrizeRules(current.PrizeDistribution, t.PrizeDistribution)) {
		return fmt.Errorf("%w: fee and prize rules are frozen after draft", ErrForbiddenOperation)
	}
	if err := s.validate(t); err != nil {
		return err
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	return nil
}

func samePrizeRules(a, b models.PrizeRules) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Rank != b[i].Rank || !a[i].Percent.Equal(b[i].Percent) {
			return false
		}
	}
	return true
}

// Delete removes a DRAFT tournament. Anything later holds money or
// results and must be cancelled through the lifecycle instead.
func (s *TournamentService) Delete(ctx context.Context, actorID, id int) error {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if t.OrganizerID != actorID {
		return ErrForbiddenOperation
	}
	if t.Status != models.StatusDraft {
		return fmt.Errorf("%w: only draft tournaments can be deleted", ErrForbiddenOperation)
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	return nil
}

// Register enrolls a user (with their team) into an OPEN tournament. The
// entry-fee debit, the participant row and the escrow credit commit as one
// transaction: either the player is in and the pool holds the money, or
// nothing happened.
func (s *TournamentService) Register(ctx context.Context, tournamentID, userID int, teamID *int) (*models.TournamentParticipant, error) {
	tournament, err := s.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusOpen {
		return nil, fmt.Errorf("%w: tournament %d is %s", ErrRegistrationNotOpen, tournamentID, tournament.Status)
	}

	if _, err := s.participantRepo.FindByUserAndTournament(ctx, userID, tournamentID); err == nil {
		return nil, ErrRegistrationConflict
	} else if !errors.Is(err, repositories.ErrParticipantNotFound) {
		return nil, err
	}

	teams, err := s.participantRepo.CountDistinctTeams(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if teams >= tournament.MaxTeams {
		return nil, fmt.Errorf("%w: %d of %d team slots taken", ErrTournamentFull, teams, tournament.MaxTeams)
	}

	participant := &models.TournamentParticipant{
		TournamentID:  tournamentID,
		UserID:        userID,
		TeamID:        teamID,
		Status:        models.ParticipantApproved,
		PaymentStatus: models.PaymentPaid,
	}

	err = runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if tournament.EntryFeePerPerson.IsPositive() {
			if _, debitErr := s.wallets.debitTx(ctx, tx, userID, tournament.EntryFeePerPerson, models.TransactionEntryFee, models.TransactionMetadata{
				"tournament_id": tournamentID,
			}); debitErr != nil {
				return debitErr
			}
		}

		if createErr := s.participantRepo.Create(ctx, tx, participant); createErr != nil {
			if errors.Is(createErr, repositories.ErrRegistrationConflict) {
				return ErrRegistrationConflict
			}
			return createErr
		}

		if tournament.EntryFeePerPerson.IsPositive() {
			if feeErr := s.escrow.creditEntryFeeTx(ctx, tx, tournamentID, tournament.EntryFeePerPerson); feeErr != nil {
				return feeErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("participant registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("user_id", userID),
		slog.String("entry_fee", tournament.EntryFeePerPerson.String()),
	)
	return participant, nil
}

// ListParticipants returns a tournament's registrations.
func (s *TournamentService) ListParticipants(ctx context.Context, tournamentID int) ([]models.TournamentParticipant, error) {
	if _, err := s.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.participantRepo.ListByTournament(ctx, nil, tournamentID, nil)
}
