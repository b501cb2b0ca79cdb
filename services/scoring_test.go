package services

import (
	"testing"

	"github.com/arenaforge/esports-platform/models"
)

func TestScore(t *testing.T) {
	rules := models.ScoreRules{"1": 10, "2": 6, "3": 4, "kill": 2}

	tests := []struct {
		name      string
		placement int
		kills     int
		rules     models.ScoreRules
		want      int
	}{
		{"first place with kills", 1, 5, rules, 20},
		{"third place", 3, 0, rules, 4},
		{"unknown placement scores kills only", 9, 3, rules, 6},
		{"nil rules fall back to defaults", 1, 4, nil, 14},
		{"nil rules unknown placement", 2, 4, nil, 4},
		{"zero everything", 5, 0, rules, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.placement, tt.kills, tt.rules); got != tt.want {
				t.Errorf("Score(%d, %d) = %d, want %d", tt.placement, tt.kills, got, tt.want)
			}
		})
	}
}
