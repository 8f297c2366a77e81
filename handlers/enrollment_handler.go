package handlers

import (
	"net/http"

	"github.com/fitclash/tournament-core/middleware"
	"github.com/fitclash/tournament-core/models"
	"github.com/fitclash/tournament-core/services"
)

type EnrollmentHandler struct {
	enrollments services.EnrollmentService
}

func NewEnrollmentHandler(es services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: es}
}

// EnrollHandler handles POST /tournaments/{tournamentID}/enrollments. Users
// enroll themselves; the id comes from the token, not the body.
func (h *EnrollmentHandler) EnrollHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	enrollment, err := h.enrollments.Enroll(r.Context(), tournamentID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"enrollment": enrollment}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CheckInHandler handles
// POST /tournaments/{tournamentID}/enrollments/{userID}/check-in.
// Participants check themselves in; admins and instructors may check in
// anyone.
func (h *EnrollmentHandler) CheckInHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	targetUserID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	if actorID != targetUserID {
		role, err := middleware.GetUserRoleFromContext(r.Context())
		if err != nil || (role != models.RoleAdmin && role != models.RoleInstructor) {
			forbiddenResponse(w, r, "cannot check in another participant")
			return
		}
	}

	enrollment, err := h.enrollments.CheckIn(r.Context(), tournamentID, targetUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"enrollment": enrollment}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /tournaments/{tournamentID}/enrollments.
func (h *EnrollmentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	enrollments, err := h.enrollments.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"enrollments": enrollments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
