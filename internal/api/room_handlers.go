package api

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rebuttal-io/rebuttal/internal/models"
	"github.com/rebuttal-io/rebuttal/internal/store"
)

type CreateRoomRequest struct {
	Topic string `json:"topic" validate:"omitempty,max=500"`
}

// newRoomCode returns a short, shareable join code.
func newRoomCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(fmt.Sprintf("%x", b)), nil
}

// CreateRoomHandler creates a room and seats the host in it.
func (api *Api) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req CreateRoomRequest
	// An empty body is fine; the topic is optional.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room fields")
		return
	}

	var room *models.Room
	// Codes are random; retry a couple of times on the unlikely collision.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := newRoomCode()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		candidate := &models.Room{Code: code, HostID: user.ID, Topic: req.Topic}
		err = api.Store.CreateRoom(r.Context(), candidate)
		if err == nil {
			room = candidate
			break
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			api.Log.Error("failed to create room", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}
	if room == nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := api.Store.AddParticipant(r.Context(), room.ID, user.ID); err != nil {
		api.Log.Error("failed to seat host", zap.String("roomId", room.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"room":    room,
	})
}

// GetRoomHandler returns room state. It runs under optional auth: anonymous
// viewers see the same bookkeeping, authenticated callers additionally learn
// whether they hold a seat.
func (api *Api) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := api.Store.GetRoomByCode(r.Context(), strings.ToUpper(chi.URLParam(r, "code")))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		api.Log.Error("failed to load room", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	participants, err := api.Store.ListParticipants(r.Context(), room.ID)
	if err != nil {
		api.Log.Error("failed to list participants", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := map[string]interface{}{
		"success":      true,
		"room":         room,
		"participants": participants,
		"seatsLeft":    store.RoomCapacity - len(participants),
	}
	if user, ok := UserFromContext(r.Context()); ok {
		joined := false
		for _, p := range participants {
			if p.UserID == user.ID {
				joined = true
				break
			}
		}
		resp["joined"] = joined
	}

	writeJSON(w, http.StatusOK, resp)
}

// JoinRoomHandler claims a seat. Joining a room you already sit in is
// idempotent.
func (api *Api) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	room, err := api.Store.GetRoomByCode(r.Context(), strings.ToUpper(chi.URLParam(r, "code")))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		api.Log.Error("failed to load room", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	err = api.Store.AddParticipant(r.Context(), room.ID, user.ID)
	switch {
	case err == nil, errors.Is(err, store.ErrAlreadyExists):
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"room":    room,
		})
	case errors.Is(err, store.ErrRoomFull):
		writeError(w, http.StatusConflict, "Room is full")
	default:
		api.Log.Error("failed to join room", zap.String("roomId", room.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// LeaveRoomHandler gives up a seat; leaving a room you are not in is a
// no-op.
func (api *Api) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	room, err := api.Store.GetRoomByCode(r.Context(), strings.ToUpper(chi.URLParam(r, "code")))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		api.Log.Error("failed to load room", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := api.Store.RemoveParticipant(r.Context(), room.ID, user.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		api.Log.Error("failed to leave room", zap.String("roomId", room.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
