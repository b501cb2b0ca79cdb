package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/storage"
)

type fakeUploader struct {
	key     string
	content string
}

func (u *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	u.key = key
	u.content = string(data)
	return &storage.UploadResult{Key: key, Location: "https://cdn.example.com/" + key}, nil
}

func (u *fakeUploader) Delete(context.Context, string) error { return nil }

func (u *fakeUploader) GetPublicURL(key string) string { return "https://cdn.example.com/" + key }

type complianceFixture struct {
	svc      *ComplianceService
	txRepo   *memTransactionRepo
	users    *memUserRepo
	uploader *fakeUploader
}

func newComplianceFixture(t *testing.T) *complianceFixture {
	t.Helper()
	f := &complianceFixture{
		txRepo:   newMemTransactionRepo(),
		users:    newMemUserRepo(),
		uploader: &fakeUploader{},
	}
	f.svc = NewComplianceService(f.txRepo, newMemAuditRepo(), f.users, f.uploader, newTestLogger())
	return f
}

func (f *complianceFixture) addWinning(t *testing.T, userID, tournamentID, organizerID, rank int, gross, tds, net string) {
	t.Helper()
	err := f.txRepo.Create(context.Background(), nil, &models.Transaction{
		UserID: userID,
		Type:   models.TransactionWinnings,
		Amount: mustDecimal(t, net),
		Status: models.TransactionCompleted,
		Metadata: models.TransactionMetadata{
			"tournament_id": tournamentID,
			"organizer_id":  organizerID,
			"rank":          rank,
			"gross_amount":  gross,
			"tds_amount":    tds,
			"net_amount":    net,
		},
	})
	if err != nil {
		t.Fatalf("failed to seed winnings: %v", err)
	}
}

func TestBuildTDSReport(t *testing.T) {
	f := newComplianceFixture(t)
	ctx := context.Background()

	winner := &models.User{FirstName: "Arjun", LastName: "Rao", Email: "arjun@example.com"}
	if err := f.users.Create(ctx, winner); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	f.addWinning(t, winner.ID, 1, 500, 1, "15000", "4500", "10500")
	f.addWinning(t, winner.ID, 2, 500, 2, "8000", "0", "8000")
	// A deposit in the same window must not appear in the report.
	_ = f.txRepo.Create(ctx, nil, &models.Transaction{
		UserID: winner.ID,
		Type:   models.TransactionDeposit,
		Amount: mustDecimal(t, "100"),
		Status: models.TransactionCompleted,
	})

	now := time.Now()
	report, err := f.svc.BuildTDSReport(ctx, now.Add(-time.Hour), now.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.Rows))
	}
	if !report.TotalGross.Equal(mustDecimal(t, "23000")) {
		t.Errorf("total gross = %s, want 23000", report.TotalGross)
	}
	if !report.TotalTDS.Equal(mustDecimal(t, "4500")) {
		t.Errorf("total tds = %s, want 4500", report.TotalTDS)
	}
	if !report.TotalNet.Equal(mustDecimal(t, "18500")) {
		t.Errorf("total net = %s, want 18500", report.TotalNet)
	}

	row := report.Rows[0]
	if row.UserEmail != "arjun@example.com" || row.UserName != "Arjun Rao" {
		t.Errorf("row user fields = %q / %q", row.UserName, row.UserEmail)
	}
	if row.TournamentID != 1 || row.Rank != 1 {
		t.Errorf("row = %+v, want tournament 1, rank 1", row)
	}
}

func TestBuildTDSReportFiltersOrganizer(t *testing.T) {
	f := newComplianceFixture(t)
	ctx := context.Background()

	winner := &models.User{FirstName: "Mira", Email: "mira@example.com"}
	_ = f.users.Create(ctx, winner)
	f.addWinning(t, winner.ID, 1, 500, 1, "1000", "0", "1000")
	f.addWinning(t, winner.ID, 2, 600, 1, "2000", "0", "2000")

	now := time.Now()
	organizerID := 600
	report, err := f.svc.BuildTDSReport(ctx, now.Add(-time.Hour), now.Add(time.Hour), &organizerID)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(report.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(report.Rows))
	}
	if report.Rows[0].TournamentID != 2 {
		t.Errorf("row tournament = %d, want 2", report.Rows[0].TournamentID)
	}
}

func TestBuildTDSReportRejectsInvertedRange(t *testing.T) {
	f := newComplianceFixture(t)
	now := time.Now()
	if _, err := f.svc.BuildTDSReport(context.Background(), now, now.Add(-time.Hour), nil); !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestExportTDSReportCSV(t *testing.T) {
	f := newComplianceFixture(t)
	ctx := context.Background()

	winner := &models.User{FirstName: "Arjun", LastName: "Rao", Email: "arjun@example.com"}
	_ = f.users.Create(ctx, winner)
	f.addWinning(t, winner.ID, 1, 500, 1, "15000", "4500", "10500")

	now := time.Now()
	report, err := f.svc.BuildTDSReport(ctx, now.Add(-time.Hour), now.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}

	url, err := f.svc.ExportTDSReportCSV(ctx, report)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if url == "" || report.ExportURL != url {
		t.Errorf("export url = %q, report url = %q", url, report.ExportURL)
	}
	if !strings.HasPrefix(f.uploader.key, "reports/tds/") || !strings.HasSuffix(f.uploader.key, ".csv") {
		t.Errorf("unexpected object key %q", f.uploader.key)
	}

	lines := strings.Split(strings.TrimSpace(f.uploader.content), "\n")
	// Header, one row, totals.
	if len(lines) != 3 {
		t.Fatalf("expected 3 CSV lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "4500.00") {
		t.Errorf("row line missing TDS amount: %q", lines[1])
	}
	if !strings.Contains(lines[2], "totals") {
		t.Errorf("expected a totals line, got %q", lines[2])
	}
}

func TestExportWithoutStorageConfigured(t *testing.T) {
	svc := NewComplianceService(newMemTransactionRepo(), newMemAuditRepo(), newMemUserRepo(), nil, newTestLogger())
	if _, err := svc.ExportTDSReportCSV(context.Background(), &TDSReport{}); err == nil {
		t.Fatal("expected an error with no uploader configured")
	}
}
