package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/webinarhub/internal/middleware"
)

type SessionHandler struct {
	validator middleware.SessionValidator
	logger    *slog.Logger
}

func NewSessionHandler(v middleware.SessionValidator, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{validator: v, logger: logger.With("component", "session_handler")}
}

type validateSessionRequest struct {
	SessionToken string `json:"sessionToken"`
}

// Validate checks the token in the body and returns the owning user.
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateSessionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	id, err := h.validator.Validate(r.Context(), req.SessionToken)
	if err != nil {
		status, msg := middleware.SessionErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("validate session", "error", err)
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": id.User})
}
