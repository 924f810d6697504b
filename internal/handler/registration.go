package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/webinarhub/internal/auth"
	"github.com/dukerupert/webinarhub/internal/model"
	"github.com/dukerupert/webinarhub/internal/registration"
	"github.com/dukerupert/webinarhub/internal/websocket"
)

type RegistrationLedger interface {
	Register(ctx context.Context, userID, webinarID string) (*model.Registration, error)
	Unregister(ctx context.Context, userID, webinarID string) error
	Status(ctx context.Context, userID, webinarID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]model.Registration, error)
	Count(ctx context.Context, webinarID string) (int, error)
}

// Broadcaster publishes registration changes to live clients.
type Broadcaster interface {
	Broadcast(ev websocket.Event)
}

// ConfirmationSender emails a user after they register.
type ConfirmationSender interface {
	SendRegistrationConfirmation(ctx context.Context, toEmail, name string, w *model.Webinar) error
}

type RegistrationHandler struct {
	ledger   RegistrationLedger
	events   Broadcaster
	confirm  ConfirmationSender
	webinars WebinarReader
	logger   *slog.Logger
}

func NewRegistrationHandler(ledger RegistrationLedger, events Broadcaster, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		ledger: ledger,
		events: events,
		logger: logger.With("component", "registration_handler"),
	}
}

type registerRequest struct {
	UserID    string `json:"userId" validate:"required"`
	WebinarID string `json:"webinarId" validate:"required"`
}

// SendConfirmations enables confirmation emails for new registrations.
func (h *RegistrationHandler) SendConfirmations(sender ConfirmationSender, webinars WebinarReader) {
	h.confirm = sender
	h.webinars = webinars
}

func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.UserID != auth.UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot register another user")
		return
	}

	reg, err := h.ledger.Register(r.Context(), req.UserID, req.WebinarID)
	if err != nil {
		h.writeLedgerError(w, "register", err)
		return
	}

	h.publish(r.Context(), websocket.ActionCreated, req.WebinarID)
	if h.confirm != nil {
		if id, ok := auth.FromContext(r.Context()); ok {
			go h.sendConfirmation(context.WithoutCancel(r.Context()), id.User, req.WebinarID)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":    reg,
		"message": "Successfully registered for webinar",
	})
}

// Unregister removes the caller's registration. A registration that does not
// exist is reported as success.
func (h *RegistrationHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, webinarID := q.Get("userId"), q.Get("webinarId")
	if userID == "" || webinarID == "" {
		writeError(w, http.StatusBadRequest, registration.ErrInvalidArgs.Error())
		return
	}
	if userID != auth.UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot unregister another user")
		return
	}

	if err := h.ledger.Unregister(r.Context(), userID, webinarID); err != nil {
		h.writeLedgerError(w, "unregister", err)
		return
	}

	h.publish(r.Context(), websocket.ActionDeleted, webinarID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully unregistered from webinar"})
}

func (h *RegistrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	webinarID := r.URL.Query().Get("webinarId")
	if webinarID == "" {
		writeError(w, http.StatusBadRequest, "webinarId is required")
		return
	}

	ok, err := h.ledger.Status(r.Context(), auth.UserID(r.Context()), webinarID)
	if err != nil {
		h.writeLedgerError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"registered": ok})
}

// Mine lists the caller's registrations, newest first.
func (h *RegistrationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	regs, err := h.ledger.ListForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeLedgerError(w, "list", err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

func (h *RegistrationHandler) sendConfirmation(ctx context.Context, user *model.User, webinarID string) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	webinar, err := h.webinars.GetByID(ctx, webinarID)
	if err != nil || webinar == nil {
		h.logger.Warn("load webinar for confirmation", "webinar_id", webinarID, "error", err)
		return
	}
	if err := h.confirm.SendRegistrationConfirmation(ctx, user.Email, user.Name, webinar); err != nil {
		h.logger.Error("send registration confirmation", "user_id", user.ID, "webinar_id", webinarID, "error", err)
	}
}

func (h *RegistrationHandler) publish(ctx context.Context, action, webinarID string) {
	n, err := h.ledger.Count(ctx, webinarID)
	if err != nil {
		h.logger.Warn("count registrations for broadcast", "webinar_id", webinarID, "error", err)
		return
	}
	h.events.Broadcast(websocket.NewRegistrationEvent(action, webinarID, n))
}

func (h *RegistrationHandler) writeLedgerError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, registration.ErrInvalidArgs):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registration.ErrAlreadyRegistered):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registration.ErrUnknownWebinar):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
