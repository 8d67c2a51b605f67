package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type WaitlistRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// WaitlistHandler captures a marketing-page email. A repeat signup is
// acknowledged without creating a duplicate row.
func (api *Api) WaitlistHandler(w http.ResponseWriter, r *http.Request) {
	var req WaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	created, err := api.Store.AddWaitlistEntry(r.Context(), req.Email)
	if err != nil {
		api.Log.Error("failed to add waitlist entry", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{"success": true})
}
