package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/arenaforge/esports-platform/middleware"
	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/repositories"
	"github.com/arenaforge/esports-platform/services"
	"github.com/shopspring/decimal"
)

type TournamentHandler struct {
	tournamentService *services.TournamentService
	lifecycleService  *services.LifecycleService
}

func NewTournamentHandler(tournamentService *services.TournamentService, lifecycleService *services.LifecycleService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		lifecycleService:  lifecycleService,
	}
}

type tournamentInput struct {
	Name              string            `json:"name"`
	Description       *string           `json:"description,omitempty"`
	EntryFeePerPerson decimal.Decimal   `json:"entry_fee_per_person"`
	PrizeDistribution models.PrizeRules `json:"prize_distribution"`
	ScoreRules        models.ScoreRules `json:"score_rules,omitempty"`
	MinTeams          int               `json:"min_teams"`
	MaxTeams          int               `json:"max_teams"`
	StartDate         time.Time         `json:"start_date"`
}

// CreateHandler handles POST /tournaments.
func (h *TournamentHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	organizerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input tournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament := &models.Tournament{
		Name:              input.Name,
		Description:       input.Description,
		OrganizerID:       organizerID,
		EntryFeePerPerson: input.EntryFeePerPerson,
		PrizeDistribution: input.PrizeDistribution,
		ScoreRules:        input.ScoreRules,
		MinTeams:          input.MinTeams,
		MaxTeams:          input.MaxTeams,
		StartDate:         input.StartDate,
	}
	if err := h.tournamentService.Create(r.Context(), tournament); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /tournaments/{tournamentID}.
func (h *TournamentHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments.
func (h *TournamentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ListTournamentsFilter
	query := r.URL.Query()

	if organizerIDStr := query.Get("organizer_id"); organizerIDStr != "" {
		id, err := strconv.Atoi(organizerIDStr)
		if err != nil || id <= 0 {
			badRequestResponse(w, r, errors.New("invalid organizer_id query parameter"))
			return
		}
		filter.OrganizerID = &id
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	filter.Limit = 20
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
		filter.Limit = limit
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
		filter.Offset = offset
	}

	tournaments, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler handles PUT /tournaments/{tournamentID}.
func (h *TournamentHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input tournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament := &models.Tournament{
		ID:                id,
		Name:              input.Name,
		Description:       input.Description,
		EntryFeePerPerson: input.EntryFeePerPerson,
		PrizeDistribution: input.PrizeDistribution,
		ScoreRules:        input.ScoreRules,
		MinTeams:          input.MinTeams,
		MaxTeams:          input.MaxTeams,
		StartDate:         input.StartDate,
	}
	if err := h.tournamentService.Update(r.Context(), actorID, tournament); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler handles DELETE /tournaments/{tournamentID}.
func (h *TournamentHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.Delete(r.Context(), actorID, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionInput struct {
	Status models.TournamentStatus `json:"status"`
	Reason string                  `json:"reason,omitempty"`
}

// TransitionHandler handles POST /tournaments/{tournamentID}/transition.
func (h *TournamentHandler) TransitionHandler(w http.ResponseWriter, r *http.Request) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input transitionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.lifecycleService.Transition(r.Context(), id, input.Status, actorID, input.Reason); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": input.Status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type registrationInput struct {
	TeamID *int `json:"team_id,omitempty"`
}

// RegisterParticipantHandler handles POST /tournaments/{tournamentID}/registrations.
func (h *TournamentHandler) RegisterParticipantHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input registrationInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.tournamentService.Register(r.Context(), id, userID, input.TeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListParticipantsHandler handles GET /tournaments/{tournamentID}/participants.
func (h *TournamentHandler) ListParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.tournamentService.ListParticipants(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
