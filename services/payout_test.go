package services

import (
	"testing"

	"github.com/arenaforge/esports-platform/config"
	"github.com/arenaforge/esports-platform/models"
	"github.com/shopspring/decimal"
)

func testSettlement() config.SettlementConfig {
	return config.DefaultSettlement()
}

func TestPlatformFee(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		percent string
		want    string
	}{
		{"round total", "1000", "10", "100"},
		{"fractional fee rounds", "333.33", "10", "33.33"},
		{"half cent rounds up", "100.05", "10", "10.01"},
		{"zero pool", "0", "10", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlatformFee(mustDecimal(t, tt.total), mustDecimal(t, tt.percent))
			if !got.Equal(mustDecimal(t, tt.want)) {
				t.Errorf("PlatformFee(%s, %s%%) = %s, want %s", tt.total, tt.percent, got, tt.want)
			}
		})
	}
}

func TestTeamPrizeFloors(t *testing.T) {
	// 1000 * 33.33% = 333.30 exactly; 1000 * 1/3-like percents floor.
	got := TeamPrize(mustDecimal(t, "1000"), mustDecimal(t, "33.33"))
	if !got.Equal(mustDecimal(t, "333.30")) {
		t.Errorf("TeamPrize = %s, want 333.30", got)
	}

	// 100 * 33.335% = 33.335 -> floors to 33.33, never rounds up.
	got = TeamPrize(mustDecimal(t, "100"), mustDecimal(t, "33.335"))
	if !got.Equal(mustDecimal(t, "33.33")) {
		t.Errorf("TeamPrize = %s, want 33.33", got)
	}
}

func TestSplitTeamPrizeRemainderGoesToFirstShare(t *testing.T) {
	shares := SplitTeamPrize(mustDecimal(t, "400"), 3)
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}
	if !shares[0].Equal(mustDecimal(t, "133.34")) {
		t.Errorf("first share = %s, want 133.34", shares[0])
	}
	for i := 1; i < 3; i++ {
		if !shares[i].Equal(mustDecimal(t, "133.33")) {
			t.Errorf("share[%d] = %s, want 133.33", i, shares[i])
		}
	}
}

func TestSplitTeamPrizeSumsExactly(t *testing.T) {
	totals := []string{"400", "1000", "0.01", "99.97", "12345.67"}
	for _, total := range totals {
		prize := mustDecimal(t, total)
		for n := 1; n <= 10; n++ {
			shares := SplitTeamPrize(prize, n)
			sum := decimal.Zero
			for _, s := range shares {
				sum = sum.Add(s)
			}
			if !sum.Equal(prize) {
				t.Errorf("SplitTeamPrize(%s, %d): shares sum to %s", total, n, sum)
			}
		}
	}
}

func TestSplitTeamPrizeZeroMembers(t *testing.T) {
	if shares := SplitTeamPrize(mustDecimal(t, "100"), 0); shares != nil {
		t.Errorf("expected nil shares for zero members, got %v", shares)
	}
}

func TestWithhold(t *testing.T) {
	cfg := testSettlement()

	tests := []struct {
		name    string
		gross   string
		wantTDS string
		wantNet string
	}{
		{"above threshold", "15000", "4500", "10500"},
		{"at threshold is exempt", "10000", "0", "10000"},
		{"below threshold", "9999.99", "0", "9999.99"},
		{"just above threshold", "10000.01", "3000", "7000.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tds, net := Withhold(mustDecimal(t, tt.gross), cfg)
			if !tds.Equal(mustDecimal(t, tt.wantTDS)) {
				t.Errorf("tds = %s, want %s", tds, tt.wantTDS)
			}
			if !net.Equal(mustDecimal(t, tt.wantNet)) {
				t.Errorf("net = %s, want %s", net, tt.wantNet)
			}
			if !tds.Add(net).Equal(mustDecimal(t, tt.gross)) {
				t.Errorf("tds + net = %s, want gross %s", tds.Add(net), tt.gross)
			}
		})
	}
}

func TestComputePayoutsTwoRankSplit(t *testing.T) {
	cfg := testSettlement()

	// Net pool 900 (1000 collected minus 10% fee), 60/40 over two ranks.
	netPool := mustDecimal(t, "900")
	rules := models.PrizeRules{
		{Rank: 1, Percent: mustDecimal(t, "60")},
		{Rank: 2, Percent: mustDecimal(t, "40")},
	}
	ranking := []models.LeaderboardEntry{
		{TeamID: 11, TotalPoints: 50},
		{TeamID: 22, TotalPoints: 30},
	}
	rosters := map[int][]models.TeamMember{
		11: {{UserID: 1, TeamID: 11, IsCaptain: true}, {UserID: 2, TeamID: 11}},
		22: {{UserID: 3, TeamID: 22, IsCaptain: true}, {UserID: 4, TeamID: 22}, {UserID: 5, TeamID: 22}},
	}

	payouts, totals, err := ComputePayouts(netPool, rules, ranking, rosters, cfg)
	if err != nil {
		t.Fatalf("ComputePayouts failed: %v", err)
	}
	if len(payouts) != 5 {
		t.Fatalf("expected 5 payouts, got %d", len(payouts))
	}

	// Rank 1: 540 across two members, 270 each.
	for _, p := range payouts[:2] {
		if !p.Gross.Equal(mustDecimal(t, "270")) {
			t.Errorf("rank 1 member %d gross = %s, want 270", p.UserID, p.Gross)
		}
	}
	// Rank 2: 360 across three members; captain takes the remainder cent.
	if payouts[2].UserID != 3 || !payouts[2].IsCaptain {
		t.Fatalf("expected captain first in rank 2 payouts, got user %d", payouts[2].UserID)
	}
	if !payouts[2].Gross.Equal(mustDecimal(t, "120")) {
		t.Errorf("rank 2 captain gross = %s, want 120", payouts[2].Gross)
	}

	if !totals.TotalGross.Equal(mustDecimal(t, "900")) {
		t.Errorf("total gross = %s, want 900", totals.TotalGross)
	}
	// Every share is below the TDS threshold.
	if !totals.TotalTDS.IsZero() {
		t.Errorf("total tds = %s, want 0", totals.TotalTDS)
	}
}

func TestComputePayoutsWithholdsAboveThreshold(t *testing.T) {
	cfg := testSettlement()

	netPool := mustDecimal(t, "30000")
	rules := models.PrizeRules{{Rank: 1, Percent: mustDecimal(t, "50")}}
	ranking := []models.LeaderboardEntry{{TeamID: 7}}
	rosters := map[int][]models.TeamMember{
		7: {{UserID: 9, TeamID: 7, IsCaptain: true}},
	}

	payouts, totals, err := ComputePayouts(netPool, rules, ranking, rosters, cfg)
	if err != nil {
		t.Fatalf("ComputePayouts failed: %v", err)
	}
	if len(payouts) != 1 {
		t.Fatalf("expected 1 payout, got %d", len(payouts))
	}
	p := payouts[0]
	if !p.Gross.Equal(mustDecimal(t, "15000")) {
		t.Errorf("gross = %s, want 15000", p.Gross)
	}
	if !p.TDS.Equal(mustDecimal(t, "4500")) {
		t.Errorf("tds = %s, want 4500", p.TDS)
	}
	if !p.Net.Equal(mustDecimal(t, "10500")) {
		t.Errorf("net = %s, want 10500", p.Net)
	}
	if !totals.TotalGross.Equal(totals.TotalTDS.Add(totals.TotalNet)) {
		t.Errorf("totals do not balance: gross %s, tds %s, net %s",
			totals.TotalGross, totals.TotalTDS, totals.TotalNet)
	}
}

func TestComputePayoutsSkipsUnrankedRules(t *testing.T) {
	cfg := testSettlement()

	rules := models.PrizeRules{
		{Rank: 1, Percent: mustDecimal(t, "60")},
		{Rank: 2, Percent: mustDecimal(t, "40")},
	}
	// Only one team ever scored; the rank 2 rule has nobody to pay.
	ranking := []models.LeaderboardEntry{{TeamID: 5}}
	rosters := map[int][]models.TeamMember{
		5: {{UserID: 1, TeamID: 5, IsCaptain: true}},
	}

	payouts, _, err := ComputePayouts(mustDecimal(t, "100"), rules, ranking, rosters, cfg)
	if err != nil {
		t.Fatalf("ComputePayouts failed: %v", err)
	}
	if len(payouts) != 1 {
		t.Fatalf("expected 1 payout, got %d", len(payouts))
	}
	if payouts[0].Rank != 1 {
		t.Errorf("payout rank = %d, want 1", payouts[0].Rank)
	}
}

func TestComputePayoutsEmptyRosterFails(t *testing.T) {
	cfg := testSettlement()

	rules := models.PrizeRules{{Rank: 1, Percent: mustDecimal(t, "100")}}
	ranking := []models.LeaderboardEntry{{TeamID: 3}}

	_, _, err := ComputePayouts(mustDecimal(t, "100"), rules, ranking, map[int][]models.TeamMember{}, cfg)
	if err == nil {
		t.Fatal("expected an error for a ranked team with no roster")
	}
}
