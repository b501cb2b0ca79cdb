package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	ErrPrizeRulesEmpty      = errors.New("prize distribution must contain at least one rule")
	ErrPrizeRuleRankInvalid = errors.New("prize rule rank must be a positive integer")
	ErrPrizeRuleRankDup     = errors.New("prize rule ranks must be unique")
	ErrPrizeRulePercent     = errors.New("prize rule percent must be greater than zero")
	ErrPrizeRulesOverflow   = errors.New("prize rule percents must not exceed 100 in total")
)

// PrizeRule assigns a percentage of the net prize pool to a final rank.
// Rules are validated once at tournament creation; no raw rule JSON ever
// reaches the escrow pool.
type PrizeRule struct {
	Rank    int             `json:"rank"`
	Percent decimal.Decimal `json:"percent"`
}

// PrizeRules is stored as a JSONB column, ordered by rank.
type PrizeRules []PrizeRule

var hundred = decimal.NewFromInt(100)

// Validate checks ranks are unique positive integers and percents are
// positive and sum to at most 100. It also sorts the rules by rank so the
// distribution order is canonical.
func (pr PrizeRules) Validate() error {
	if len(pr) == 0 {
		return ErrPrizeRulesEmpty
	}
	seen := make(map[int]bool, len(pr))
	total := decimal.Zero
	for _, rule := range pr {
		if rule.Rank <= 0 {
			return fmt.Errorf("%w: got %d", ErrPrizeRuleRankInvalid, rule.Rank)
		}
		if seen[rule.Rank] {
			return fmt.Errorf("%w: rank %d appears more than once", ErrPrizeRuleRankDup, rule.Rank)
		}
		seen[rule.Rank] = true
		if !rule.Percent.IsPositive() {
			return fmt.Errorf("%w: rank %d has percent %s", ErrPrizeRulePercent, rule.Rank, rule.Percent)
		}
		total = total.Add(rule.Percent)
	}
	if total.GreaterThan(hundred) {
		return fmt.Errorf("%w: total is %s", ErrPrizeRulesOverflow, total)
	}
	sort.Slice(pr, func(i, j int) bool { return pr[i].Rank < pr[j].Rank })
	return nil
}

func (pr PrizeRules) Value() (driver.Value, error) {
	return json.Marshal(pr)
}

func (pr *PrizeRules) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*pr = nil
		return nil
	case []byte:
		return json.Unmarshal(v, pr)
	case string:
		return json.Unmarshal([]byte(v), pr)
	default:
		return fmt.Errorf("unsupported type %T for PrizeRules", src)
	}
}

// ScoreRules maps placement ranks (as decimal strings) to point values.
// The special key "kill" holds the per-kill multiplier.
type ScoreRules map[string]int

// DefaultScoreRules applies when a tournament carries no rule-set.
func DefaultScoreRules() ScoreRules {
	return ScoreRules{"1": 10, "kill": 1}
}

// PlacementPoints returns the points awarded for finishing at the given
// placement; unknown placements score zero.
func (sr ScoreRules) PlacementPoints(placement int) int {
	return sr[strconv.Itoa(placement)]
}

// KillMultiplier returns the per-kill point value.
func (sr ScoreRules) KillMultiplier() int {
	return sr["kill"]
}

func (sr ScoreRules) Value() (driver.Value, error) {
	if sr == nil {
		return nil, nil
	}
	return json.Marshal(sr)
}

func (sr *ScoreRules) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*sr = nil
		return nil
	case []byte:
		return json.Unmarshal(v, sr)
	case string:
		return json.Unmarshal([]byte(v), sr)
	default:
		return fmt.Errorf("unsupported type %T for ScoreRules", src)
	}
}
