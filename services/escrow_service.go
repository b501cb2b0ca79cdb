package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arenaforge/esports-platform/config"
	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
	"github.com/shopspring/decimal"
)

// EscrowService custodies entry fees per tournament and terminally settles
// each pool by either full distribution or full refund. The pool status
// column doubles as an application-level mutex: every settlement path
// starts with a conditional status flip, so two concurrent distributions
// cannot both succeed.
type EscrowService struct {
	db              *sql.DB
	escrowRepo      repositories.EscrowRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	teamRepo        repositories.TeamRepository
	leaderboardRepo repositories.LeaderboardRepository
	auditRepo       repositories.AuditRepository
	wallets         *WalletService
	cfg             config.SettlementConfig
	logger          *slog.Logger
}

func NewEscrowService(
	db *sql.DB,
	escrowRepo repositories.EscrowRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	teamRepo repositories.TeamRepository,
	leaderboardRepo repositories.LeaderboardRepository,
	auditRepo repositories.AuditRepository,
	wallets *WalletService,
	cfg config.SettlementConfig,
	logger *slog.Logger,
) *EscrowService {
	return &EscrowService{
		db:              db,
		escrowRepo:      escrowRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		teamRepo:        teamRepo,
		leaderboardRepo: leaderboardRepo,
		auditRepo:       auditRepo,
		wallets:         wallets,
		cfg:             cfg,
		logger:          logger,
	}
}

// InitializePool creates the tournament's OPEN pool with zero balances.
// Idempotent: calling it again is a no-op.
func (s *EscrowService) InitializePool(ctx context.Context, tournamentID int) error {
	return s.escrowRepo.EnsureExists(ctx, nil, tournamentID)
}

func (s *EscrowService) GetPool(ctx context.Context, tournamentID int) (*models.EscrowPool, error) {
	pool, err := s.escrowRepo.GetByTournamentID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrPoolNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	return pool, nil
}

// creditEntryFeeTx adds a collected entry fee to the OPEN pool inside the
// caller's transaction. A non-OPEN pool is a hard failure: fee collection
// after lock means a guard upstream is broken, and the money must not be
// silently absorbed.
func (s *EscrowService) creditEntryFeeTx(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, amount decimal.Decimal) error {
	if err := s.escrowRepo.EnsureExists(ctx, exec, tournamentID); err != nil {
		return err
	}
	if err := s.escrowRepo.CreditEntryFee(ctx, exec, tournamentID, amount); err != nil {
		if errors.Is(err, repositories.ErrPoolStatusConflict) {
			return fmt.Errorf("%w: entry fee credited after pool lock for tournament %d", ErrPoolAlreadyLocked, tournamentID)
		}
		return err
	}
	return nil
}

// LockPool fixes the platform fee and net prize pool and flips the pool to
// LOCKED, together with its audit entry, in one transaction.
func (s *EscrowService) LockPool(ctx context.Context, tournamentID, actorID int) error {
	pool, err := s.GetPool(ctx, tournamentID)
	if err != nil {
		return err
	}
	if pool.Status != models.PoolOpen {
		return fmt.Errorf("%w: pool for tournament %d is %s", ErrPoolAlreadyLocked, tournamentID, pool.Status)
	}

	platformFee := PlatformFee(pool.TotalCollected, s.cfg.PlatformFeePercent)
	netPrizePool := pool.TotalCollected.Sub(platformFee)

	err = runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if lockErr := s.escrowRepo.Lock(ctx, tx, tournamentID, platformFee, netPrizePool); lockErr != nil {
			if errors.Is(lockErr, repositories.ErrPoolStatusConflict) {
				return fmt.Errorf("%w: pool for tournament %d", ErrPoolAlreadyLocked, tournamentID)
			}
			return lockErr
		}
		return s.auditRepo.Create(ctx, tx, &models.AuditEntry{
			EventType:    models.AuditPoolLocked,
			TournamentID: &tournamentID,
			ActorID:      actorID,
			Details: models.AuditDetails{
				"total_collected": pool.TotalCollected.String(),
				"platform_fee":    platformFee.String(),
				"net_prize_pool":  netPrizePool.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("escrow pool locked",
		slog.Int("tournament_id", tournamentID),
		slog.String("platform_fee", platformFee.String()),
		slog.String("net_prize_pool", netPrizePool.String()),
	)
	return nil
}

// DistributePool pays the ranked teams out of a LOCKED pool. Every member
// credit, the WINNINGS transaction rows, the DISTRIBUTED flip and the
// audit entry commit as one batch; a failure anywhere commits nothing.
func (s *EscrowService) DistributePool(ctx context.Context, tournamentID, actorID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	pool, err := s.GetPool(ctx, tournamentID)
	if err != nil {
		return err
	}
	switch pool.Status {
	case models.PoolLocked:
	case models.PoolDistributed, models.PoolRefunded:
		return fmt.Errorf("%w: pool for tournament %d is %s", ErrAlreadyDistributed, tournamentID, pool.Status)
	default:
		return fmt.Errorf("%w: pool for tournament %d is %s", ErrPoolNotLocked, tournamentID, pool.Status)
	}

	ranking, err := s.leaderboardRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to load leaderboard for tournament %d: %w", tournamentID, err)
	}

	rosters := make(map[int][]models.TeamMember)
	for _, rule := range tournament.PrizeDistribution {
		if rule.Rank > len(ranking) {
			continue
		}
		teamID := ranking[rule.Rank-1].TeamID
		if _, ok := rosters[teamID]; ok {
			continue
		}
		members, listErr := s.teamRepo.ListMembers(ctx, teamID)
		if listErr != nil {
			return fmt.Errorf("failed to load roster for team %d: %w", teamID, listErr)
		}
		rosters[teamID] = members
	}

	payouts, totals, err := ComputePayouts(pool.NetPrizePool, tournament.PrizeDistribution, ranking, rosters, s.cfg)
	if err != nil {
		return err
	}

	err = runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		// Conditional flip first: if another caller got here already this
		// matches zero rows and the whole batch aborts before any credit.
		if flipErr := s.escrowRepo.UpdateStatusConditional(ctx, tx, tournamentID, models.PoolLocked, models.PoolDistributed); flipErr != nil {
			if errors.Is(flipErr, repositories.ErrPoolStatusConflict) {
				return fmt.Errorf("%w: pool for tournament %d", ErrAlreadyDistributed, tournamentID)
			}
			return flipErr
		}

		auditPayouts := make([]interface{}, 0, len(payouts))
		for _, p := range payouts {
			// A share that floors to zero (free tournament, tiny pool) gets
			// no wallet credit and no ledger row. It still appears in the
			// audit entry so the split stays reconcilable.
			if p.Net.IsPositive() {
				if _, creditErr := s.wallets.creditTx(ctx, tx, p.UserID, p.Net, models.TransactionWinnings, nil, models.TransactionMetadata{
					"tournament_id": tournamentID,
					"organizer_id":  tournament.OrganizerID,
					"team_id":       p.TeamID,
					"rank":          p.Rank,
					"gross_amount":  p.Gross.String(),
					"tds_amount":    p.TDS.String(),
					"net_amount":    p.Net.String(),
				}); creditErr != nil {
					return fmt.Errorf("failed to credit winnings to user %d: %w", p.UserID, creditErr)
				}
			}
			auditPayouts = append(auditPayouts, map[string]interface{}{
				"user_id": p.UserID,
				"team_id": p.TeamID,
				"rank":    p.Rank,
				"gross":   p.Gross.String(),
				"tds":     p.TDS.String(),
				"net":     p.Net.String(),
			})
		}

		return s.auditRepo.Create(ctx, tx, &models.AuditEntry{
			EventType:    models.AuditPrizeDistributed,
			TournamentID: &tournamentID,
			ActorID:      actorID,
			Details: models.AuditDetails{
				"net_prize_pool": pool.NetPrizePool.String(),
				"total_gross":    totals.TotalGross.String(),
				"total_tds":      totals.TotalTDS.String(),
				"total_net":      totals.TotalNet.String(),
				"payouts":        auditPayouts,
			},
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("prize pool distributed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("winners", len(payouts)),
		slog.String("total_net", totals.TotalNet.String()),
		slog.String("total_tds", totals.TotalTDS.String()),
	)
	return nil
}

// RefundPool returns every PAID participant's entry fee and terminally
// flips the pool to REFUNDED in one batch. A settled pool (distributed or
// already refunded) cannot be refunded again.
func (s *EscrowService) RefundPool(ctx context.Context, tournamentID, actorID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}

	pool, err := s.GetPool(ctx, tournamentID)
	if err != nil {
		return err
	}
	if pool.Status == models.PoolDistributed || pool.Status == models.PoolRefunded {
		return fmt.Errorf("%w: pool for tournament %d is %s", ErrAlreadyDistributed, tournamentID, pool.Status)
	}

	paid := models.PaymentPaid
	participants, err := s.participantRepo.ListByTournament(ctx, nil, tournamentID, &paid)
	if err != nil {
		return fmt.Errorf("failed to list paid participants for tournament %d: %w", tournamentID, err)
	}

	err = runInTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if flipErr := s.escrowRepo.UpdateStatusConditional(ctx, tx, tournamentID, pool.Status, models.PoolRefunded); flipErr != nil {
			if errors.Is(flipErr, repositories.ErrPoolStatusConflict) {
				return fmt.Errorf("%w: pool for tournament %d", ErrAlreadyDistributed, tournamentID)
			}
			return flipErr
		}

		refunded := make([]interface{}, 0, len(participants))
		for _, p := range participants {
			// A free tournament has nothing to return; participants still
			// flip to REFUNDED and the pool still settles terminally.
			if tournament.EntryFeePerPerson.IsPositive() {
				if _, creditErr := s.wallets.creditTx(ctx, tx, p.UserID, tournament.EntryFeePerPerson, models.TransactionRefund, nil, models.TransactionMetadata{
					"tournament_id": tournamentID,
				}); creditErr != nil {
					return fmt.Errorf("failed to refund participant %d: %w", p.ID, creditErr)
				}
			}
			if markErr := s.participantRepo.MarkRefunded(ctx, tx, p.ID); markErr != nil {
				return fmt.Errorf("failed to mark participant %d refunded: %w", p.ID, markErr)
			}
			refunded = append(refunded, map[string]interface{}{
				"participant_id": p.ID,
				"user_id":        p.UserID,
				"amount":         tournament.EntryFeePerPerson.String(),
			})
		}

		return s.auditRepo.Create(ctx, tx, &models.AuditEntry{
			EventType:    models.AuditRefundIssued,
			TournamentID: &tournamentID,
			ActorID:      actorID,
			Details: models.AuditDetails{
				"entry_fee_per_person": tournament.EntryFeePerPerson.String(),
				"refund_count":         len(participants),
				"refunds":              refunded,
			},
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("escrow pool refunded",
		slog.Int("tournament_id", tournamentID),
		slog.Int("participants", len(participants)),
	)
	return nil
}
