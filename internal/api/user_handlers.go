package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rebuttal-io/rebuttal/internal/store"
)

type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=32"`
	Bio      *string `json:"bio" validate:"omitempty,max=500"`
}

// GetProfileHandler returns the caller's profile.
func (api *Api) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

// UpdateProfileHandler applies a partial profile update.
func (api *Api) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid profile fields")
		return
	}
	if req.Username == nil && req.Bio == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	updated, err := api.Store.UpdateUser(r.Context(), user.ID, store.UserUpdate{
		Username: req.Username,
		Bio:      req.Bio,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "Username already taken")
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		api.Log.Error("failed to update profile", zap.String("userId", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    updated,
	})
}
