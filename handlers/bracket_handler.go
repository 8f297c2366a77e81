package handlers

import (
	"net/http"

	"github.com/fitclash/tournament-core/services"
)

type BracketHandler struct {
	brackets services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{brackets: bs}
}

// FinalizeGroupsHandler handles POST /tournaments/{tournamentID}/groups/finalize.
func (h *BracketHandler) FinalizeGroupsHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	created, err := h.brackets.FinalizeGroupStage(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"knockout_sessions_created": created}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceRoundHandler handles POST /tournaments/{tournamentID}/rounds/advance.
func (h *BracketHandler) AdvanceRoundHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	created, err := h.brackets.AdvanceKnockoutRound(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"sessions_created": created}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
