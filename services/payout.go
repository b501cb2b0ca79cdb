package services

import (
	"fmt"

	"github.com/arenaforge/esports-platform/config"
	"github.com/arenaforge/esports-platform/models"
	"github.com/shopspring/decimal"
)

// MemberPayout is one winner's computed share: what the team earned at its
// rank, this member's gross cut, the tax withheld at source and the net
// amount actually credited.
type MemberPayout struct {
	UserID    int             `json:"user_id"`
	TeamID    int             `json:"team_id"`
	Rank      int             `json:"rank"`
	Gross     decimal.Decimal `json:"gross"`
	TDS       decimal.Decimal `json:"tds"`
	Net       decimal.Decimal `json:"net"`
	IsCaptain bool            `json:"is_captain"`
}

// PayoutTotals aggregates a full distribution for the audit record.
type PayoutTotals struct {
	TotalGross decimal.Decimal `json:"total_gross"`
	TotalTDS   decimal.Decimal `json:"total_tds"`
	TotalNet   decimal.Decimal `json:"total_net"`
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func floor2(d decimal.Decimal) decimal.Decimal {
	return d.RoundFloor(2)
}

// PlatformFee returns round2(total × feePercent/100).
func PlatformFee(total, feePercent decimal.Decimal) decimal.Decimal {
	return round2(total.Mul(feePercent).Div(hundred))
}

var hundred = decimal.NewFromInt(100)

// TeamPrize returns floor2(netPrizePool × percent/100), the amount a team
// earns for finishing at a given rank.
func TeamPrize(netPrizePool, percent decimal.Decimal) decimal.Decimal {
	return floor2(netPrizePool.Mul(percent).Div(hundred))
}

// SplitTeamPrize divides a team prize across n members: floor2 per member,
// with the rounding remainder added entirely to the first share so the
// shares always sum to teamPrizeTotal exactly.
func SplitTeamPrize(teamPrizeTotal decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	perMember := floor2(teamPrizeTotal.Div(decimal.NewFromInt(int64(n))))
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = perMember
	}
	remainder := teamPrizeTotal.Sub(perMember.Mul(decimal.NewFromInt(int64(n))))
	shares[0] = shares[0].Add(remainder)
	return shares
}

// Withhold applies TDS to a gross share: above the threshold,
// round2(gross × rate) is withheld; at or below it nothing is.
func Withhold(gross decimal.Decimal, cfg config.SettlementConfig) (tds, net decimal.Decimal) {
	if gross.GreaterThan(cfg.TDSThreshold) {
		tds = round2(gross.Mul(cfg.TDSRate))
	} else {
		tds = decimal.Zero
	}
	return tds, gross.Sub(tds)
}

// ComputePayouts resolves the full distribution for a locked pool: for each
// prize rule with a team at that rank, the team prize is split across the
// roster (captain first) and TDS is withheld per member. Rules beyond the
// number of ranked teams are skipped. Pure function over its inputs.
func ComputePayouts(
	netPrizePool decimal.Decimal,
	rules models.PrizeRules,
	ranking []models.LeaderboardEntry,
	rosters map[int][]models.TeamMember,
	cfg config.SettlementConfig,
) ([]MemberPayout, PayoutTotals, error) {
	payouts := make([]MemberPayout, 0)
	totals := PayoutTotals{
		TotalGross: decimal.Zero,
		TotalTDS:   decimal.Zero,
		TotalNet:   decimal.Zero,
	}

	for _, rule := range rules {
		if rule.Rank > len(ranking) {
			continue
		}
		entry := ranking[rule.Rank-1]

		members := rosters[entry.TeamID]
		if len(members) == 0 {
			return nil, PayoutTotals{}, fmt.Errorf("team %d ranked %d has no members to pay", entry.TeamID, rule.Rank)
		}

		teamPrize := TeamPrize(netPrizePool, rule.Percent)
		shares := SplitTeamPrize(teamPrize, len(members))

		for i, member := range members {
			tds, net := Withhold(shares[i], cfg)
			payouts = append(payouts, MemberPayout{
				UserID:    member.UserID,
				TeamID:    entry.TeamID,
				Rank:      rule.Rank,
				Gross:     shares[i],
				TDS:       tds,
				Net:       net,
				IsCaptain: member.IsCaptain,
			})
			totals.TotalGross = totals.TotalGross.Add(shares[i])
			totals.TotalTDS = totals.TotalTDS.Add(tds)
			totals.TotalNet = totals.TotalNet.Add(net)
		}
	}

	return payouts, totals, nil
}
