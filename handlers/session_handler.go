package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fitclash/tournament-core/middleware"
	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/repositories"
	"github.com/fitclash/tournament-core/services"
)

type SessionHandler struct {
	sessions services.SessionService
	results  services.ResultService
}

func NewSessionHandler(ss services.SessionService, rs services.ResultService) *SessionHandler {
	return &SessionHandler{sessions: ss, results: rs}
}

// ListByTournamentHandler handles GET /tournaments/{tournamentID}/sessions
// with optional stage and round filters.
func (h *SessionHandler) ListByTournamentHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var filter repositories.ListSessionsFilter
	query := r.URL.Query()
	if stageStr := query.Get("stage"); stageStr != "" {
		stage := models.SessionStage(stageStr)
		filter.Stage = &stage
	}
	if roundStr := query.Get("round"); roundStr != "" {
		round, err := strconv.Atoi(roundStr)
		if err != nil || round <= 0 {
			badRequestResponse(w, r, errors.New("invalid round query parameter"))
			return
		}
		filter.Round = &round
	}

	sessions, err := h.sessions.ListByTournament(r.Context(), tournamentID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"sessions": sessions}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetHandler handles GET /sessions/{sessionID}.
func (h *SessionHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	session, err := h.sessions.GetByID(r.Context(), sessionID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResultHandler handles POST /sessions/{sessionID}/result. Admins and
// instructors get the override path: they may resubmit and submit for
// sessions they do not play in.
func (h *SessionHandler) SubmitResultHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := getIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.SubmitResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.ActorID = actorID
	if role, err := middleware.GetUserRoleFromContext(r.Context()); err == nil {
		input.Override = role == models.RoleAdmin || role == models.RoleInstructor
	}

	session, err := h.results.SubmitResult(r.Context(), sessionID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"session": session}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
