// Package api exposes the chat over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Kirana/core"
	"Kirana/lib/sl"
	"Kirana/storage"
)

// maxRequestBodySize caps chat request bodies (1MB).
const maxRequestBodySize = 1 << 20

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"message": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"message": message})
}

type chatRequest struct {
	Message *string `json:"message"`
}

type chatResponse struct {
	Response string         `json:"response"`
	Options  []string       `json:"options,omitempty"`
	History  []storage.Turn `json:"history"`
}

// ChatHandler serves the chat routes for the authenticated caller.
type ChatHandler struct {
	chat core.ChatService
	log  *slog.Logger
}

func NewChatHandler(chat core.ChatService, log *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chat: chat,
		log:  log.With(sl.Module("chat-api")),
	}
}

// RegisterRoutes mounts the chat endpoints on r.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/", h.HandleMessage)
		r.Get("/history", h.HandleHistory)
		r.Delete("/history", h.HandleReset)
		r.Post("/reset", h.HandleReset)
	})
}

func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	userId := UserIDFromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == nil {
		Error(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, history, err := h.chat.HandleMessage(r.Context(), userId, *req.Message)
	if errors.Is(err, core.ErrEmptyMessage) {
		Error(w, http.StatusBadRequest, "message cannot be empty")
		return
	}
	if err != nil {
		h.internalError(w, userId, "handling message", err)
		return
	}

	JSON(w, http.StatusOK, chatResponse{
		Response: reply.Text,
		Options:  reply.Options,
		History:  history,
	})
}

func (h *ChatHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userId := UserIDFromContext(r.Context())

	history, err := h.chat.GetHistory(r.Context(), userId)
	if err != nil {
		h.internalError(w, userId, "reading history", err)
		return
	}
	JSON(w, http.StatusOK, history)
}

func (h *ChatHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userId := UserIDFromContext(r.Context())

	history, err := h.chat.ResetSession(r.Context(), userId)
	if err != nil {
		h.internalError(w, userId, "resetting session", err)
		return
	}
	JSON(w, http.StatusOK, history)
}

func (h *ChatHandler) internalError(w http.ResponseWriter, userId, op string, err error) {
	h.log.With(sl.User(userId)).Error(op, sl.Err(err))
	JSON(w, http.StatusInternalServerError, map[string]string{
		"message": "Server error while " + op,
		"error":   err.Error(),
	})
}
