package handlers

import (
	"net/http"

	"github.com/fitclash/tournament-core/services"
)

type RewardHandler struct {
	rewards services.RewardService
	reports services.ReportService
}

func NewRewardHandler(rs services.RewardService, reports services.ReportService) *RewardHandler {
	return &RewardHandler{rewards: rs, reports: reports}
}

// DistributeHandler handles POST /tournaments/{tournamentID}/rewards/distribute.
// Safe to call repeatedly: already-applied legs no-op on their keys.
func (h *RewardHandler) DistributeHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	records, err := h.rewards.DistributeForTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"rewards": records}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments/{tournamentID}/rewards.
func (h *RewardHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	records, err := h.rewards.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"rewards": records}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ArchiveReportHandler handles POST /tournaments/{tournamentID}/report,
// pushing the finalized tournament snapshot to object storage.
func (h *RewardHandler) ArchiveReportHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.reports.Archive(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
