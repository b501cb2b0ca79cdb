package handlers

import (
	"net/http"

	"github.com/arenaforge/esports-platform/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GetHandler handles GET /tournaments/{tournamentID}/leaderboard.
func (h *LeaderboardHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entries, err := h.leaderboardService.GetLeaderboard(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TeamStandingHandler handles GET /tournaments/{tournamentID}/leaderboard/{teamID}.
func (h *LeaderboardHandler) TeamStandingHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entry, rank, err := h.leaderboardService.GetTeamStanding(r.Context(), tournamentID, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"entry": entry, "rank": rank}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
