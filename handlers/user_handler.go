package handlers

import (
	"net/http"

	"github.com/fitclash/tournament-core/services"
)

type UserHandler struct {
	profiles services.ProfileService
}

func NewUserHandler(ps services.ProfileService) *UserHandler {
	return &UserHandler{profiles: ps}
}

// SkillsHandler handles GET /users/{userID}/skills.
func (h *UserHandler) SkillsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	skills, err := h.profiles.Skills(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"skills": skills}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// WalletHandler handles GET /users/{userID}/wallet.
func (h *UserHandler) WalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	wallet, err := h.profiles.Wallet(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"wallet": wallet}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RewardsHandler handles GET /users/{userID}/rewards.
func (h *UserHandler) RewardsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rewards, err := h.profiles.Rewards(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"rewards": rewards}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
