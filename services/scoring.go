package services

import "github.com/arenaforge/esports-platform/models"

// Score computes the points for one team's match outcome:
// placement points plus the kill multiplier times kills. Unknown
// placements score only kills. A nil rule-set falls back to the default
// {"1": 10, "kill": 1}. Pure function, safe for concurrent use.
func Score(placement, kills int, rules models.ScoreRules) int {
	if rules == nil {
		rules = models.DefaultScoreRules()
	}
	return rules.PlacementPoints(placement) + rules.KillMultiplier()*kills
}
