package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/arenaforge/esports-platform/models"
	"github.com/arenaforge/esports-platform/services"
)

type ComplianceHandler struct {
	complianceService *services.ComplianceService
}

func NewComplianceHandler(complianceService *services.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{complianceService: complianceService}
}

// TDSReportHandler handles GET /admin/reports/tds?from=...&to=...
// Optional: organizer_id restricts the report, export=csv archives the
// report in object storage and returns its URL.
func (h *ComplianceHandler) TDSReportHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, err := time.Parse(time.RFC3339, query.Get("from"))
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid or missing 'from' query parameter (RFC3339)"))
		return
	}
	to, err := time.Parse(time.RFC3339, query.Get("to"))
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid or missing 'to' query parameter (RFC3339)"))
		return
	}

	var organizerID *int
	if v := query.Get("organizer_id"); v != "" {
		id, convErr := strconv.Atoi(v)
		if convErr != nil || id <= 0 {
			badRequestResponse(w, r, errors.New("invalid organizer_id query parameter"))
			return
		}
		organizerID = &id
	}

	report, err := h.complianceService.BuildTDSReport(r.Context(), from, to, organizerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if query.Get("export") == "csv" {
		if _, err := h.complianceService.ExportTDSReportCSV(r.Context(), report); err != nil {
			serverErrorResponse(w, r, err)
			return
		}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AuditLogHandler handles GET /admin/audit?from=...&to=...&event_type=...
func (h *ComplianceHandler) AuditLogHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, err := time.Parse(time.RFC3339, query.Get("from"))
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid or missing 'from' query parameter (RFC3339)"))
		return
	}
	to, err := time.Parse(time.RFC3339, query.Get("to"))
	if err != nil {
		badRequestResponse(w, r, errors.New("invalid or missing 'to' query parameter (RFC3339)"))
		return
	}

	var eventType *models.AuditEventType
	if v := query.Get("event_type"); v != "" {
		et := models.AuditEventType(v)
		eventType = &et
	}

	entries, err := h.complianceService.ListAuditEntries(r.Context(), from, to, eventType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"entries": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TournamentAuditHandler handles GET /tournaments/{tournamentID}/audit.
func (h *ComplianceHandler) TournamentAuditHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entries, err := h.complianceService.ListTournamentAudit(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"entries": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
