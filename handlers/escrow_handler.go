package handlers

import (
	"context"
	"net/http"

	"github.com/arenaforge/esports-platform/middleware"
	"github.com/arenaforge/esports-platform/services"
)

// EscrowHandler exposes the pool state plus manual settlement triggers.
// The triggers exist for when the queued settlement path failed and an
// operator needs to drive the pool by hand; the conditional status flips
// make double-triggering harmless.
type EscrowHandler struct {
	escrowService *services.EscrowService
}

func NewEscrowHandler(escrowService *services.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrowService: escrowService}
}

// GetPoolHandler handles GET /tournaments/{tournamentID}/pool.
func (h *EscrowHandler) GetPoolHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pool, err := h.escrowService.GetPool(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"pool": pool}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LockHandler handles POST /tournaments/{tournamentID}/pool/lock.
func (h *EscrowHandler) LockHandler(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, h.escrowService.LockPool, "locked")
}

// DistributeHandler handles POST /tournaments/{tournamentID}/pool/distribute.
func (h *EscrowHandler) DistributeHandler(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, h.escrowService.DistributePool, "distributed")
}

// RefundHandler handles POST /tournaments/{tournamentID}/pool/refund.
func (h *EscrowHandler) RefundHandler(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, h.escrowService.RefundPool, "refunded")
}

func (h *EscrowHandler) trigger(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, tournamentID, actorID int) error, status string) {
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := op(r.Context(), tournamentID, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
