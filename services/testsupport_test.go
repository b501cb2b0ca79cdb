package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
	"github.com/shopspring/decimal"
)

// The services only use *sql.DB to open and commit transactions; all reads
// and writes go through the repository interfaces, which the tests replace
// with in-memory fakes. This driver supplies transactions that do nothing.

type noopDriver struct{}

type noopConn struct{}

type noopTx struct{}

func (noopDriver) Open(string) (driver.Conn, error) { return noopConn{}, nil }

func (noopConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (noopConn) Close() error                        { return nil }
func (noopConn) Begin() (driver.Tx, error)           { return noopTx{}, nil }

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

func init() {
	sql.Register("noop", noopDriver{})
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("noop", "")
	if err != nil {
		t.Fatalf("failed to open noop database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

// --- wallets ---

type memWalletRepo struct {
	mu       sync.Mutex
	balances map[int]decimal.Decimal
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{balances: make(map[int]decimal.Decimal)}
}

func (r *memWalletRepo) GetByUserID(_ context.Context, _ repositories.SQLExecutor, userID int) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[userID]
	if !ok {
		return nil, repositories.ErrWalletNotFound
	}
	return &models.Wallet{UserID: userID, Balance: balance}, nil
}

func (r *memWalletRepo) EnsureExists(_ context.Context, _ repositories.SQLExecutor, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.balances[userID]; !ok {
		r.balances[userID] = decimal.Zero
	}
	return nil
}

func (r *memWalletRepo) Debit(_ context.Context, _ repositories.SQLExecutor, userID int, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[userID]
	if !ok {
		return repositories.ErrWalletNotFound
	}
	if balance.LessThan(amount) {
		return repositories.ErrInsufficientBalance
	}
	r.balances[userID] = balance.Sub(amount)
	return nil
}

func (r *memWalletRepo) Credit(_ context.Context, _ repositories.SQLExecutor, userID int, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	balance, ok := r.balances[userID]
	if !ok {
		return repositories.ErrWalletNotFound
	}
	r.balances[userID] = balance.Add(amount)
	return nil
}

func (r *memWalletRepo) balance(userID int) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID]
}

// --- transactions ---

type memTransactionRepo struct {
	mu     sync.Mutex
	nextID int
	rows   []models.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{nextID: 1}
}

func (r *memTransactionRepo) Create(_ context.Context, _ repositories.SQLExecutor, txn *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn.ID = r.nextID
	r.nextID++
	txn.CreatedAt = time.Now()
	r.rows = append(r.rows, *txn)
	return nil
}

func (r *memTransactionRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			row := r.rows[i]
			return &row, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *memTransactionRepo) UpdateStatusConditional(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].Status == from {
			r.rows[i].Status = to
			return nil
		}
	}
	return repositories.ErrTransactionNotFound
}

func (r *memTransactionRepo) ListByUser(_ context.Context, userID, limit, offset int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, row := range r.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	if offset > len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTransactionRepo) ListWinningsBetween(_ context.Context, from, to time.Time, organizerID *int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, row := range r.rows {
		if row.Type != models.TransactionWinnings || row.Status != models.TransactionCompleted {
			continue
		}
		if row.CreatedAt.Before(from) || !row.CreatedAt.Before(to) {
			continue
		}
		if organizerID != nil {
			v, ok := row.Metadata["organizer_id"].(int)
			if !ok || v != *organizerID {
				continue
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memTransactionRepo) byType(txType models.TransactionType) []models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, row := range r.rows {
		if row.Type == txType {
			out = append(out, row)
		}
	}
	return out
}

// --- escrow pools ---

type memEscrowRepo struct {
	mu    sync.Mutex
	pools map[int]*models.EscrowPool
}

func newMemEscrowRepo() *memEscrowRepo {
	return &memEscrowRepo{pools: make(map[int]*models.EscrowPool)}
}

func (r *memEscrowRepo) EnsureExists(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[tournamentID]; !ok {
		r.pools[tournamentID] = &models.EscrowPool{
			ID:             tournamentID,
			TournamentID:   tournamentID,
			TotalCollected: decimal.Zero,
			PlatformFee:    decimal.Zero,
			NetPrizePool:   decimal.Zero,
			Status:         models.PoolOpen,
		}
	}
	return nil
}

func (r *memEscrowRepo) GetByTournamentID(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (*models.EscrowPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[tournamentID]
	if !ok {
		return nil, repositories.ErrPoolNotFound
	}
	copied := *pool
	return &copied, nil
}

func (r *memEscrowRepo) CreditEntryFee(_ context.Context, _ repositories.SQLExecutor, tournamentID int, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[tournamentID]
	if !ok || pool.Status != models.PoolOpen {
		return repositories.ErrPoolStatusConflict
	}
	pool.TotalCollected = pool.TotalCollected.Add(amount)
	return nil
}

func (r *memEscrowRepo) Lock(_ context.Context, _ repositories.SQLExecutor, tournamentID int, platformFee, netPrizePool decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[tournamentID]
	if !ok || pool.Status != models.PoolOpen {
		return repositories.ErrPoolStatusConflict
	}
	pool.PlatformFee = platformFee
	pool.NetPrizePool = netPrizePool
	pool.Status = models.PoolLocked
	return nil
}

func (r *memEscrowRepo) UpdateStatusConditional(_ context.Context, _ repositories.SQLExecutor, tournamentID int, from, to models.EscrowPoolStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pool, ok := r.pools[tournamentID]
	if !ok || pool.Status != from {
		return repositories.ErrPoolStatusConflict
	}
	pool.Status = to
	return nil
}

// --- tournaments ---

type memTournamentRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.Tournament
}

func newMemTournamentRepo() *memTournamentRepo {
	return &memTournamentRepo{nextID: 1, rows: make(map[int]*models.Tournament)}
}

func (r *memTournamentRepo) add(t *models.Tournament) *models.Tournament {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == 0 {
		t.ID = r.nextID
		r.nextID++
	}
	r.rows[t.ID] = t
	return t
}

func (r *memTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.add(t)
	return nil
}

func (r *memTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *memTournamentRepo) List(_ context.Context, _ repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Tournament, 0, len(r.rows))
	for _, t := range r.rows {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTournamentRepo) Update(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	copied := *t
	r.rows[t.ID] = &copied
	return nil
}

func (r *memTournamentRepo) UpdateStatusConditional(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.Status != from {
		return repositories.ErrTournamentNotFound
	}
	t.Status = to
	return nil
}

func (r *memTournamentRepo) ListOpenDueToStart(_ context.Context, now time.Time) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.rows {
		if t.Status == models.StatusOpen && !t.StartDate.After(now) {
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTournamentRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memTournamentRepo) status(id int) models.TournamentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id].Status
}

// --- participants ---

type memParticipantRepo struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.TournamentParticipant
}

func newMemParticipantRepo() *memParticipantRepo {
	return &memParticipantRepo{nextID: 1}
}

func (r *memParticipantRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.TournamentParticipant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == p.UserID && row.TournamentID == p.TournamentID {
			return repositories.ErrRegistrationConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	copied := *p
	r.rows = append(r.rows, &copied)
	return nil
}

func (r *memParticipantRepo) GetByID(_ context.Context, id int) (*models.TournamentParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *memParticipantRepo) FindByUserAndTournament(_ context.Context, userID, tournamentID int) (*models.TournamentParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.UserID == userID && row.TournamentID == tournamentID {
			copied := *row
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *memParticipantRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, paymentStatus *models.PaymentStatus) ([]models.TournamentParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TournamentParticipant
	for _, row := range r.rows {
		if row.TournamentID != tournamentID {
			continue
		}
		if paymentStatus != nil && row.PaymentStatus != *paymentStatus {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (r *memParticipantRepo) CountDistinctTeams(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	teams := make(map[int]bool)
	for _, row := range r.rows {
		if row.TournamentID != tournamentID || row.Status != models.ParticipantApproved {
			continue
		}
		if row.TeamID != nil {
			teams[*row.TeamID] = true
		} else {
			// Solo entrants count as single-member teams.
			teams[-row.UserID] = true
		}
	}
	return len(teams), nil
}

func (r *memParticipantRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.ParticipantStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			row.Status = status
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (r *memParticipantRepo) MarkRefunded(_ context.Context, _ repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			if row.PaymentStatus != models.PaymentPaid {
				return repositories.ErrParticipantNotRefundable
			}
			row.PaymentStatus = models.PaymentRefunded
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

// --- users ---

type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	rows   map[int]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, rows: make(map[int]*models.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	u.ID = r.nextID
	r.nextID++
	copied := *u
	r.rows[u.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.rows {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

// --- teams ---

type memTeamRepo struct {
	mu      sync.Mutex
	nextID  int
	teams   map[int]*models.Team
	members map[int][]models.TeamMember
}

func newMemTeamRepo() *memTeamRepo {
	return &memTeamRepo{nextID: 1, teams: make(map[int]*models.Team), members: make(map[int][]models.TeamMember)}
}

func (r *memTeamRepo) Create(_ context.Context, t *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	r.nextID++
	copied := *t
	r.teams[t.ID] = &copied
	return nil
}

func (r *memTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *memTeamRepo) ListMembers(_ context.Context, teamID int) ([]models.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TeamMember, len(r.members[teamID]))
	copy(out, r.members[teamID])
	// Captain first, the ordering the payout split relies on.
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsCaptain && !out[j].IsCaptain })
	return out, nil
}

func (r *memTeamRepo) AddMember(_ context.Context, m *models.TeamMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = len(r.members[m.TeamID]) + 1
	r.members[m.TeamID] = append(r.members[m.TeamID], *m)
	return nil
}

// --- leaderboard ---

type memLeaderboardRepo struct {
	mu   sync.Mutex
	rows map[int]map[int]*models.LeaderboardEntry
}

func newMemLeaderboardRepo() *memLeaderboardRepo {
	return &memLeaderboardRepo{rows: make(map[int]map[int]*models.LeaderboardEntry)}
}

func (r *memLeaderboardRepo) IncrementScore(_ context.Context, _ repositories.SQLExecutor, tournamentID, teamID, points, kills int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows[tournamentID] == nil {
		r.rows[tournamentID] = make(map[int]*models.LeaderboardEntry)
	}
	entry, ok := r.rows[tournamentID][teamID]
	if !ok {
		entry = &models.LeaderboardEntry{TournamentID: tournamentID, TeamID: teamID}
		r.rows[tournamentID][teamID] = entry
	}
	entry.TotalPoints += points
	entry.TotalKills += kills
	entry.MatchesPlayed++
	return nil
}

func (r *memLeaderboardRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LeaderboardEntry
	for _, entry := range r.rows[tournamentID] {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].TotalKills > out[j].TotalKills
	})
	return out, nil
}

func (r *memLeaderboardRepo) GetByTournamentAndTeam(_ context.Context, tournamentID, teamID int) (*models.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.rows[tournamentID][teamID]
	if !ok {
		return nil, repositories.ErrLeaderboardEntryNotFound
	}
	copied := *entry
	return &copied, nil
}

// --- matches ---

type memMatchRepo struct {
	mu             sync.Mutex
	nextID         int
	matches        map[int]*models.Match
	participations map[int][]models.MatchParticipation
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{nextID: 1, matches: make(map[int]*models.Match), participations: make(map[int][]models.MatchParticipation)}
}

func (r *memMatchRepo) Create(_ context.Context, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.nextID
	r.nextID++
	copied := *m
	r.matches[m.ID] = &copied
	return nil
}

func (r *memMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *memMatchRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Match
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memMatchRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (r *memMatchRepo) UpsertParticipation(_ context.Context, _ repositories.SQLExecutor, p *models.MatchParticipation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.participations[p.MatchID]
	for i := range rows {
		if rows[i].TeamID == p.TeamID {
			p.ID = rows[i].ID
			rows[i] = *p
			return nil
		}
	}
	p.ID = len(rows) + 1
	r.participations[p.MatchID] = append(rows, *p)
	return nil
}

func (r *memMatchRepo) ListParticipations(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]models.MatchParticipation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.MatchParticipation, len(r.participations[matchID]))
	copy(out, r.participations[matchID])
	return out, nil
}

// --- result locks ---

type memResultLockRepo struct {
	mu     sync.Mutex
	nextID int
	rows   []*models.ResultLock
}

func newMemResultLockRepo() *memResultLockRepo {
	return &memResultLockRepo{nextID: 1}
}

func (r *memResultLockRepo) GetActiveByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) (*models.ResultLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].MatchID == matchID && !r.rows[i].IsOverridden {
			copied := *r.rows[i]
			return &copied, nil
		}
	}
	return nil, repositories.ErrResultLockNotFound
}

func (r *memResultLockRepo) GetLatestByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) (*models.ResultLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].MatchID == matchID {
			copied := *r.rows[i]
			return &copied, nil
		}
	}
	return nil, repositories.ErrResultLockNotFound
}

func (r *memResultLockRepo) Create(_ context.Context, _ repositories.SQLExecutor, lock *models.ResultLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock.ID = r.nextID
	r.nextID++
	lock.LockedAt = time.Now()
	copied := *lock
	r.rows = append(r.rows, &copied)
	return nil
}

func (r *memResultLockRepo) Override(_ context.Context, _ repositories.SQLExecutor, lockID, actorID int, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == lockID && !row.IsOverridden {
			now := time.Now()
			row.IsOverridden = true
			row.OverrideBy = &actorID
			row.OverrideAt = &now
			row.OverrideReason = &reason
			return nil
		}
	}
	return repositories.ErrResultLockNotFound
}

// --- audit ---

type memAuditRepo struct {
	mu     sync.Mutex
	nextID int
	rows   []models.AuditEntry
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{nextID: 1}
}

func (r *memAuditRepo) Create(_ context.Context, _ repositories.SQLExecutor, entry *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = r.nextID
	r.nextID++
	entry.CreatedAt = time.Now()
	r.rows = append(r.rows, *entry)
	return nil
}

func (r *memAuditRepo) ListBetween(_ context.Context, from, to time.Time, eventType *models.AuditEventType) ([]models.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditEntry
	for _, row := range r.rows {
		if row.CreatedAt.Before(from) || !row.CreatedAt.Before(to) {
			continue
		}
		if eventType != nil && row.EventType != *eventType {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *memAuditRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditEntry
	for _, row := range r.rows {
		if row.TournamentID != nil && *row.TournamentID == tournamentID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *memAuditRepo) byEvent(eventType models.AuditEventType) []models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditEntry
	for _, row := range r.rows {
		if row.EventType == eventType {
			out = append(out, row)
		}
	}
	return out
}
