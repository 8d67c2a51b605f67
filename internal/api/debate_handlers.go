package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rebuttal-io/rebuttal/internal/ai"
	"github.com/rebuttal-io/rebuttal/internal/models"
	"github.com/rebuttal-io/rebuttal/internal/store"
)

type CreateDebateRequest struct {
	Topic  string `json:"topic" validate:"required,min=3,max=500"`
	Stance string `json:"stance" validate:"required,oneof=pro con"`
}

type UpdateDebateRequest struct {
	Topic  *string `json:"topic" validate:"omitempty,min=3,max=500"`
	Status *string `json:"status" validate:"omitempty,oneof=active completed archived"`
}

type CreateMessageRequest struct {
	Role    string `json:"role" validate:"required,oneof=user opponent ai"`
	Content string `json:"content" validate:"required,max=4000"`
}

// ownedDebate loads the debate in the URL and checks ownership. Debates
// belonging to other users look exactly like missing ones.
func (api *Api) ownedDebate(w http.ResponseWriter, r *http.Request) (*models.Debate, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}

	debate, err := api.Store.GetDebate(r.Context(), chi.URLParam(r, "debateID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Debate not found")
			return nil, false
		}
		api.Log.Error("failed to load debate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}
	if debate.UserID != user.ID {
		writeError(w, http.StatusNotFound, "Debate not found")
		return nil, false
	}
	return debate, true
}

func (api *Api) CreateDebateHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req CreateDebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid debate fields")
		return
	}

	debate := &models.Debate{
		UserID: user.ID,
		Topic:  req.Topic,
		Stance: req.Stance,
		Status: models.DebateActive,
	}
	if err := api.Store.CreateDebate(r.Context(), debate); err != nil {
		api.Log.Error("failed to create debate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"debate":  debate,
	})
}

func (api *Api) ListDebatesHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	debates, err := api.Store.ListDebatesByUser(r.Context(), user.ID)
	if err != nil {
		api.Log.Error("failed to list debates", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if debates == nil {
		debates = []*models.Debate{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"debates": debates,
	})
}

func (api *Api) GetDebateHandler(w http.ResponseWriter, r *http.Request) {
	debate, ok := api.ownedDebate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"debate":  debate,
	})
}

func (api *Api) UpdateDebateHandler(w http.ResponseWriter, r *http.Request) {
	debate, ok := api.ownedDebate(w, r)
	if !ok {
		return
	}

	var req UpdateDebateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid debate fields")
		return
	}

	updated, err := api.Store.UpdateDebate(r.Context(), debate.ID, store.DebateUpdate{
		Topic:  req.Topic,
		Status: req.Status,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Debate not found")
			return
		}
		api.Log.Error("failed to update debate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if req.Status != nil && *req.Status == models.DebateCompleted {
		api.archiveDebate(r.Context(), updated)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"debate":  updated,
	})
}

func (api *Api) DeleteDebateHandler(w http.ResponseWriter, r *http.Request) {
	debate, ok := api.ownedDebate(w, r)
	if !ok {
		return
	}

	if err := api.Store.DeleteDebate(r.Context(), debate.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		api.Log.Error("failed to delete debate", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *Api) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	debate, ok := api.ownedDebate(w, r)
	if !ok {
		return
	}

	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message fields")
		return
	}

	msg := &models.Message{
		DebateID: debate.ID,
		Role:     req.Role,
		Content:  req.Content,
	}
	if err := api.Store.CreateMessage(r.Context(), msg); err != nil {
		api.Log.Error("failed to create message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}

func (api *Api) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	debate, ok := api.ownedDebate(w, r)
	if !ok {
		return
	}

	messages, err := api.Store.ListMessages(r.Context(), debate.ID)
	if err != nil {
		api.Log.Error("failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"messages": messages,
	})
}

// ScoreDebateHandler submits the transcript to the AI backend, stores the
// returned score and verdict, and marks the debate completed.
func (api *Api) ScoreDebateHandler(w http.ResponseWriter, r *http.Request) {
	debate, ok := api.ownedDebate(w, r)
	if !ok {
		return
	}
	if api.AI == nil {
		writeError(w, http.StatusServiceUnavailable, "Scoring is not configured")
		return
	}

	messages, err := api.Store.ListMessages(r.Context(), debate.ID)
	if err != nil {
		api.Log.Error("failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(messages) == 0 {
		writeError(w, http.StatusBadRequest, "Cannot score an empty debate")
		return
	}

	scoreReq := ai.ScoreRequest{Topic: debate.Topic, Stance: debate.Stance}
	for _, msg := range messages {
		scoreReq.Messages = append(scoreReq.Messages, ai.ScoreMessage{Role: msg.Role, Content: msg.Content})
	}

	result, err := api.AI.ScoreDebate(r.Context(), scoreReq)
	if err != nil {
		api.Log.Error("scoring backend failed", zap.String("debateId", debate.ID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "Scoring backend unavailable")
		return
	}

	status := models.DebateCompleted
	updated, err := api.Store.UpdateDebate(r.Context(), debate.ID, store.DebateUpdate{
		Status:  &status,
		Score:   &result.Score,
		Verdict: &result.Verdict,
	})
	if err != nil {
		api.Log.Error("failed to store score", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.archiveDebate(r.Context(), updated)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"debate":  updated,
	})
}

// archiveDebate uploads the transcript to object storage. Best effort: a
// failed upload is logged, never surfaced to the caller.
func (api *Api) archiveDebate(ctx context.Context, debate *models.Debate) {
	if api.Archive == nil {
		return
	}

	messages, err := api.Store.ListMessages(ctx, debate.ID)
	if err != nil {
		api.Log.Error("failed to load transcript for archive", zap.String("debateId", debate.ID), zap.Error(err))
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"debate":   debate,
		"messages": messages,
	})
	if err != nil {
		api.Log.Error("failed to marshal transcript", zap.String("debateId", debate.ID), zap.Error(err))
		return
	}

	key := "transcripts/" + debate.ID + ".json"
	if err := api.Archive.Upload(ctx, key, payload, "application/json"); err != nil {
		api.Log.Error("failed to archive transcript", zap.String("debateId", debate.ID), zap.Error(err))
		return
	}
	api.Log.Info("archived transcript", zap.String("debateId", debate.ID), zap.String("key", key))
}
