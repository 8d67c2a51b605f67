package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/rebuttal-io/rebuttal/internal/auth"
	"github.com/rebuttal-io/rebuttal/internal/models"
	"github.com/rebuttal-io/rebuttal/internal/store"
)

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupHandler creates an account and returns it with a bearer token.
func (api *Api) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email, username or password")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		api.Log.Error("failed to hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := &models.User{
		Email:        strings.ToLower(req.Email),
		Username:     req.Username,
		PasswordHash: hash,
		Rating:       1000,
	}
	if err := api.Store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "Email or username already taken")
			return
		}
		api.Log.Error("failed to create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := api.Auth.Issue(r.Context(), user)
	if err != nil {
		api.Log.Error("failed to issue token", zap.String("userId", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

// LoginHandler verifies credentials and returns a bearer token. Unknown
// email and wrong password produce the same response.
func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := api.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		api.Log.Error("failed to look up user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		api.Log.Error("failed to verify password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := api.Auth.Issue(r.Context(), user)
	if err != nil {
		api.Log.Error("failed to issue token", zap.String("userId", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

// LogoutHandler revokes the presented credential where the mechanism
// supports it. For signed tokens this is an acknowledgement only.
func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearerToken(r); ok {
		if err := api.Auth.Revoke(r.Context(), token); err != nil {
			api.Log.Error("failed to revoke token", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// MeHandler returns the authenticated user.
func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
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
