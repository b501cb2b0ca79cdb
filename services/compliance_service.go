package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
	"github.com/arenaforge/esports-platform/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// userFetchConcurrency bounds the parallel user lookups when a report
// spans many winners.
const userFetchConcurrency = 8

// TDSReportRow is one winnings payout in a compliance report, carrying the
// gross/tds/net triple recorded at distribution time.
type TDSReportRow struct {
	TransactionID int             `json:"transaction_id"`
	UserID        int             `json:"user_id"`
	UserEmail     string          `json:"user_email"`
	UserName      string          `json:"user_name"`
	TournamentID  int             `json:"tournament_id"`
	Rank          int             `json:"rank"`
	Gross         decimal.Decimal `json:"gross"`
	TDS           decimal.Decimal `json:"tds"`
	Net           decimal.Decimal `json:"net"`
	PaidAt        time.Time       `json:"paid_at"`
}

type TDSReport struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Rows       []TDSReportRow  `json:"rows"`
	TotalGross decimal.Decimal `json:"total_gross"`
	TotalTDS   decimal.Decimal `json:"total_tds"`
	TotalNet   decimal.Decimal `json:"total_net"`
	ExportURL  string          `json:"export_url,omitempty"`
}

// ComplianceService produces tax reports from WINNINGS transactions and
// exposes the append-only audit log. The payout metadata, not the wallet
// amount, is the authoritative gross/tds/net source: the wallet only ever
// saw the net credit.
type ComplianceService struct {
	txRepo    repositories.TransactionRepository
	auditRepo repositories.AuditRepository
	userRepo  repositories.UserRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewComplianceService(
	txRepo repositories.TransactionRepository,
	auditRepo repositories.AuditRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *ComplianceService {
	return &ComplianceService{
		txRepo:    txRepo,
		auditRepo: auditRepo,
		userRepo:  userRepo,
		uploader:  uploader,
		logger:    logger,
	}
}

// BuildTDSReport aggregates every winnings payout in [from, to), optionally
// restricted to one organizer's tournaments.
func (s *ComplianceService) BuildTDSReport(ctx context.Context, from, to time.Time, organizerID *int) (*TDSReport, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: report range end must be after start", ErrValidationFailed)
	}

	transactions, err := s.txRepo.ListWinningsBetween(ctx, from, to, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list winnings transactions: %w", err)
	}

	report := &TDSReport{
		From:       from,
		To:         to,
		Rows:       make([]TDSReportRow, 0, len(transactions)),
		TotalGross: decimal.Zero,
		TotalTDS:   decimal.Zero,
		TotalNet:   decimal.Zero,
	}

	for _, txn := range transactions {
		row := TDSReportRow{
			TransactionID: txn.ID,
			UserID:        txn.UserID,
			TournamentID:  metadataInt(txn.Metadata, "tournament_id"),
			Rank:          metadataInt(txn.Metadata, "rank"),
			Gross:         metadataDecimal(txn.Metadata, "gross_amount"),
			TDS:           metadataDecimal(txn.Metadata, "tds_amount"),
			Net:           metadataDecimal(txn.Metadata, "net_amount"),
			PaidAt:        txn.CreatedAt,
		}
		if row.Net.IsZero() {
			// Payouts written before metadata carried the triple: the
			// transaction amount is the net credit.
			row.Net = txn.Amount
		}
		report.Rows = append(report.Rows, row)
		report.TotalGross = report.TotalGross.Add(row.Gross)
		report.TotalTDS = report.TotalTDS.Add(row.TDS)
		report.TotalNet = report.TotalNet.Add(row.Net)
	}

	if err := s.resolveUsers(ctx, report.Rows); err != nil {
		return nil, err
	}
	return report, nil
}

// resolveUsers fills in name and email for each row, deduplicating user IDs
// and fetching with bounded parallelism.
func (s *ComplianceService) resolveUsers(ctx context.Context, rows []TDSReportRow) error {
	ids := make(map[int]struct{}, len(rows))
	for _, row := range rows {
		ids[row.UserID] = struct{}{}
	}

	var mu sync.Mutex
	users := make(map[int]*models.User, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(userFetchConcurrency)
	for id := range ids {
		id := id
		g.Go(func() error {
			user, err := s.userRepo.GetByID(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to load user %d for report: %w", id, err)
			}
			mu.Lock()
			users[id] = user
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range rows {
		if user, ok := users[rows[i].UserID]; ok {
			rows[i].UserEmail = user.Email
			rows[i].UserName = fmt.Sprintf("%s %s", user.FirstName, user.LastName)
		}
	}
	return nil
}

// ExportTDSReportCSV renders the report as CSV and archives it in object
// storage, returning the public URL.
func (s *ComplianceService) ExportTDSReportCSV(ctx context.Context, report *TDSReport) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("report archive storage is not configured")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"transaction_id", "user_id", "user_name", "user_email", "tournament_id", "rank", "gross", "tds", "net", "paid_at"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, row := range report.Rows {
		record := []string{
			fmt.Sprintf("%d", row.TransactionID),
			fmt.Sprintf("%d", row.UserID),
			row.UserName,
			row.UserEmail,
			fmt.Sprintf("%d", row.TournamentID),
			fmt.Sprintf("%d", row.Rank),
			row.Gross.StringFixed(2),
			row.TDS.StringFixed(2),
			row.Net.StringFixed(2),
			row.PaidAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	totals := []string{"", "", "", "", "", "totals", report.TotalGross.StringFixed(2), report.TotalTDS.StringFixed(2), report.TotalNet.StringFixed(2), ""}
	if err := w.Write(totals); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("reports/tds/%s_%s.csv", report.From.Format("2006-01-02"), uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, "text/csv", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to archive TDS report: %w", err)
	}

	report.ExportURL = result.Location
	s.logger.Info("TDS report exported",
		slog.String("key", key),
		slog.Int("rows", len(report.Rows)),
		slog.String("total_tds", report.TotalTDS.StringFixed(2)),
	)
	return result.Location, nil
}

// ListAuditEntries returns audit-log rows in a time range, optionally
// filtered by event type.
func (s *ComplianceService) ListAuditEntries(ctx context.Context, from, to time.Time, eventType *models.AuditEventType) ([]models.AuditEntry, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: range end must be after start", ErrValidationFailed)
	}
	return s.auditRepo.ListBetween(ctx, from, to, eventType)
}

// ListTournamentAudit returns a tournament's full audit trail in order.
func (s *ComplianceService) ListTournamentAudit(ctx context.Context, tournamentID int) ([]models.AuditEntry, error) {
	return s.auditRepo.ListByTournament(ctx, tournamentID)
}

// metadataDecimal reads a decimal recorded as a string in JSONB metadata.
func metadataDecimal(m models.TransactionMetadata, key string) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	raw, ok := m[key].(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// metadataInt reads an integer from JSONB metadata; numbers come back from
// the driver as float64.
func metadataInt(m models.TransactionMetadata, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
