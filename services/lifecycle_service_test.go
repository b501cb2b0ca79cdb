package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arenaforge/esports-platform/models"
)

type fakePublisher struct {
	mu          sync.Mutex
	distributes []int
	refunds     []int
	notifies    []string
}

func (p *fakePublisher) PublishDistribute(_ context.Context, tournamentID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.distributes = append(p.distributes, tournamentID)
	return nil
}

func (p *fakePublisher) PublishRefund(_ context.Context, tournamentID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunds = append(p.refunds, tournamentID)
	return nil
}

func (p *fakePublisher) PublishNotify(_ context.Context, _ int, event string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifies = append(p.notifies, event)
	return nil
}

type lifecycleFixture struct {
	svc          *LifecycleService
	tournaments  *memTournamentRepo
	participants *memParticipantRepo
	escrowPools  *memEscrowRepo
	audits       *memAuditRepo
	publisher    *fakePublisher
	now          time.Time
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	db := newTestDB(t)
	logger := newTestLogger()
	cfg := testSettlement()

	tournaments := newMemTournamentRepo()
	participants := newMemParticipantRepo()
	escrowPools := newMemEscrowRepo()
	audits := newMemAuditRepo()
	publisher := &fakePublisher{}

	wallets := NewWalletService(db, newMemWalletRepo(), newMemTransactionRepo())
	escrow := NewEscrowService(db, escrowPools, tournaments, participants, newMemTeamRepo(), newMemLeaderboardRepo(), audits, wallets, cfg, logger)
	svc := NewLifecycleService(db, tournaments, participants, audits, escrow, publisher, cfg, logger)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &lifecycleFixture{
		svc:          svc,
		tournaments:  tournaments,
		participants: participants,
		escrowPools:  escrowPools,
		audits:       audits,
		publisher:    publisher,
		now:          now,
	}
}

func (f *lifecycleFixture) addTournament(status models.TournamentStatus, start time.Time) *models.Tournament {
	return f.tournaments.add(&models.Tournament{
		Name:      "spring cup",
		Status:    status,
		StartDate: start,
	})
}

func (f *lifecycleFixture) registerTeams(tournamentID int, teamIDs ...int) {
	for _, teamID := range teamIDs {
		id := teamID
		_ = f.participants.Create(context.Background(), nil, &models.TournamentParticipant{
			TournamentID:  tournamentID,
			UserID:        100 + teamID,
			TeamID:        &id,
			Status:        models.ParticipantApproved,
			PaymentStatus: models.PaymentPaid,
		})
	}
}

func TestTransitionTable(t *testing.T) {
	all := []models.TournamentStatus{
		models.StatusDraft, models.StatusOpen, models.StatusLive,
		models.StatusCompleted, models.StatusCancelled,
	}
	allowed := map[models.TournamentStatus]map[models.TournamentStatus]bool{
		models.StatusDraft: {models.StatusOpen: true},
		models.StatusOpen:  {models.StatusLive: true, models.StatusCancelled: true},
		models.StatusLive:  {models.StatusCompleted: true, models.StatusCancelled: true},
	}

	for _, from := range all {
		for _, to := range all {
			if from == to {
				continue
			}
			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				f := newLifecycleFixture(t)
				tournament := f.addTournament(from, f.now.Add(30*time.Minute))
				f.registerTeams(tournament.ID, 1, 2)

				err := f.svc.Transition(context.Background(), tournament.ID, to, 1, "test")
				if allowed[from][to] {
					if err != nil {
						t.Fatalf("expected %s -> %s to succeed, got %v", from, to, err)
					}
					if got := f.tournaments.status(tournament.ID); got != to {
						t.Errorf("status = %s, want %s", got, to)
					}
				} else {
					if !errors.Is(err, ErrInvalidTransition) {
						t.Fatalf("expected ErrInvalidTransition for %s -> %s, got %v", from, to, err)
					}
					if got := f.tournaments.status(tournament.ID); got != from {
						t.Errorf("status changed to %s on a rejected transition", got)
					}
				}
			})
		}
	}
}

func TestTransitionUnknownTournament(t *testing.T) {
	f := newLifecycleFixture(t)
	err := f.svc.Transition(context.Background(), 999, models.StatusOpen, 1, "")
	if !errors.Is(err, ErrTournamentNotFound) {
		t.Fatalf("expected ErrTournamentNotFound, got %v", err)
	}
}

func TestOpenGuardRejectsExpiredStartDate(t *testing.T) {
	f := newLifecycleFixture(t)
	tournament := f.addTournament(models.StatusDraft, f.now.Add(-2*time.Hour))

	err := f.svc.Transition(context.Background(), tournament.ID, models.StatusOpen, 1, "")
	if !errors.Is(err, ErrStartDateExpired) {
		t.Fatalf("expected ErrStartDateExpired, got %v", err)
	}

	// Within the grace period the transition goes through.
	late := f.addTournament(models.StatusDraft, f.now.Add(-30*time.Minute))
	if err := f.svc.Transition(context.Background(), late.ID, models.StatusOpen, 1, ""); err != nil {
		t.Fatalf("expected open within grace period to succeed, got %v", err)
	}
}

func TestGoLiveGuardRequiresMinimumTeams(t *testing.T) {
	f := newLifecycleFixture(t)
	tournament := f.addTournament(models.StatusOpen, f.now)
	f.registerTeams(tournament.ID, 1)

	err := f.svc.Transition(context.Background(), tournament.ID, models.StatusLive, 1, "")
	if !errors.Is(err, ErrInsufficientTeams) {
		t.Fatalf("expected ErrInsufficientTeams, got %v", err)
	}

	f.registerTeams(tournament.ID, 2)
	if err := f.svc.Transition(context.Background(), tournament.ID, models.StatusLive, 1, ""); err != nil {
		t.Fatalf("expected go-live with two teams to succeed, got %v", err)
	}
}

func TestTransitionWritesAuditEntry(t *testing.T) {
	f := newLifecycleFixture(t)
	tournament := f.addTournament(models.StatusDraft, f.now)

	if err := f.svc.Transition(context.Background(), tournament.ID, models.StatusOpen, 42, "registration opens"); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	entries := f.audits.byEvent(models.AuditStatusChanged)
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.ActorID != 42 {
		t.Errorf("actor_id = %d, want 42", entry.ActorID)
	}
	if entry.Details["from"] != "draft" || entry.Details["to"] != "open" {
		t.Errorf("audit details = %v, want from=draft to=open", entry.Details)
	}
	if entry.Details["reason"] != "registration opens" {
		t.Errorf("audit reason = %v", entry.Details["reason"])
	}
}

func TestTransitionSideEffects(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	tournament := f.addTournament(models.StatusDraft, f.now.Add(10*time.Minute))
	f.registerTeams(tournament.ID, 1, 2)

	// draft -> open initializes the escrow pool.
	if err := f.svc.Transition(ctx, tournament.ID, models.StatusOpen, 1, ""); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	pool, err := f.escrowPools.GetByTournamentID(ctx, nil, tournament.ID)
	if err != nil {
		t.Fatalf("expected pool after open: %v", err)
	}
	if pool.Status != models.PoolOpen {
		t.Errorf("pool status = %s, want OPEN", pool.Status)
	}

	// open -> live locks the pool.
	if err := f.svc.Transition(ctx, tournament.ID, models.StatusLive, 1, ""); err != nil {
		t.Fatalf("go-live failed: %v", err)
	}
	pool, _ = f.escrowPools.GetByTournamentID(ctx, nil, tournament.ID)
	if pool.Status != models.PoolLocked {
		t.Errorf("pool status = %s, want LOCKED", pool.Status)
	}

	// live -> completed enqueues distribution and the notification.
	if err := f.svc.Transition(ctx, tournament.ID, models.StatusCompleted, 1, ""); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if len(f.publisher.distributes) != 1 || f.publisher.distributes[0] != tournament.ID {
		t.Errorf("distributes = %v, want [%d]", f.publisher.distributes, tournament.ID)
	}
	if len(f.publisher.notifies) != 1 || f.publisher.notifies[0] != "completed" {
		t.Errorf("notifies = %v, want [completed]", f.publisher.notifies)
	}
}

func TestCancellationEnqueuesRefund(t *testing.T) {
	f := newLifecycleFixture(t)
	tournament := f.addTournament(models.StatusOpen, f.now)

	if err := f.svc.Transition(context.Background(), tournament.ID, models.StatusCancelled, 1, "venue lost"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if len(f.publisher.refunds) != 1 || f.publisher.refunds[0] != tournament.ID {
		t.Errorf("refunds = %v, want [%d]", f.publisher.refunds, tournament.ID)
	}
	if len(f.publisher.notifies) != 1 || f.publisher.notifies[0] != "cancelled" {
		t.Errorf("notifies = %v, want [cancelled]", f.publisher.notifies)
	}
}

func TestTransitionWithNilPublisher(t *testing.T) {
	f := newLifecycleFixture(t)
	f.svc.publisher = nil
	tournament := f.addTournament(models.StatusOpen, f.now)

	if err := f.svc.Transition(context.Background(), tournament.ID, models.StatusCancelled, 1, ""); err != nil {
		t.Fatalf("cancel without a publisher failed: %v", err)
	}
}

func TestSweepDueTournaments(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	ready := f.addTournament(models.StatusOpen, f.now.Add(-5*time.Minute))
	f.registerTeams(ready.ID, 1, 2)
	// Due but under the team minimum: counted as failed, does not abort the sweep.
	short := f.addTournament(models.StatusOpen, f.now.Add(-5*time.Minute))
	f.registerTeams(short.ID, 3)
	// Not due yet.
	future := f.addTournament(models.StatusOpen, f.now.Add(time.Hour))
	f.registerTeams(future.ID, 4, 5)

	result, err := f.svc.SweepDueTournaments(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Started != 1 || result.Failed != 1 {
		t.Errorf("sweep result = %+v, want Started=1 Failed=1", result)
	}
	if got := f.tournaments.status(ready.ID); got != models.StatusLive {
		t.Errorf("ready tournament status = %s, want live", got)
	}
	if got := f.tournaments.status(short.ID); got != models.StatusOpen {
		t.Errorf("short tournament status = %s, want open", got)
	}
	if got := f.tournaments.status(future.ID); got != models.StatusOpen {
		t.Errorf("future tournament status = %s, want open", got)
	}
}
