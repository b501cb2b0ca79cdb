package handlers

import (
	"net/http"
	"time"

	"github.com/arenaforge/esports-platform/middleware"
	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/services"
)

type MatchHandler struct {
	resultService *services.ResultService
}

func NewMatchHandler(resultService *services.ResultService) *MatchHandler {
	return &MatchHandler{resultService: resultService}
}

type createMatchInput struct {
	Name      string    `json:"name"`
	MatchTime time.Time `json:"match_time"`
}

// CreateHandler handles POST /tournaments/{tournamentID}/matches.
func (h *MatchHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input createMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match := &models.Match{
		TournamentID: tournamentID,
		Name:         input.Name,
		MatchTime:    input.MatchTime,
	}
	if err := h.resultService.CreateMatch(r.Context(), match); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments/{tournamentID}/matches.
func (h *MatchHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.resultService.ListMatches(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /matches/{matchID}.
func (h *MatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.resultService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type submitResultsInput struct {
	Results []services.MatchResultInput `json:"results"`
}

// SubmitResultsHandler handles POST /matches/{matchID}/results.
func (h *MatchHandler) SubmitResultsHandler(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input submitResultsInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.resultService.SubmitMatchResults(r.Context(), matchID, actorID, input.Results); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "submitted"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LockHandler handles POST /matches/{matchID}/lock.
func (h *MatchHandler) LockHandler(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	lock, err := h.resultService.LockResult(r.Context(), matchID, actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"lock": lock}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type overrideInput struct {
	Reason string `json:"reason"`
}

// OverrideHandler handles POST /matches/{matchID}/override.
func (h *MatchHandler) OverrideHandler(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input overrideInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.resultService.OverrideResult(r.Context(), matchID, actorID, input.Reason); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": "overridden"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
