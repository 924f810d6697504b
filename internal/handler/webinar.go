package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/webinarhub/internal/model"
)

const (
	defaultWebinarLimit = 50
	maxWebinarLimit     = 100
)

type WebinarReader interface {
	GetByID(ctx context.Context, id string) (*model.Webinar, error)
	List(ctx context.Context, f model.WebinarFilter) ([]model.Webinar, error)
}

type CategoryLister interface {
	List(ctx context.Context) ([]model.Category, error)
}

type WebinarHandler struct {
	webinars   WebinarReader
	categories CategoryLister
	ledger     RegistrationLedger
	now        func() time.Time
	logger     *slog.Logger
}

func NewWebinarHandler(webinars WebinarReader, categories CategoryLister, ledger RegistrationLedger, logger *slog.Logger) *WebinarHandler {
	return &WebinarHandler{
		webinars:   webinars,
		categories: categories,
		ledger:     ledger,
		now:        time.Now,
		logger:     logger.With("component", "webinar_handler"),
	}
}

// List handles GET /api/webinars?category=&limit=&upcoming=.
func (h *WebinarHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.WebinarFilter{CategorySlug: q.Get("category"), Limit: defaultWebinarLimit}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxWebinarLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		f.Limit = n
	}
	if s := q.Get("upcoming"); s != "" {
		upcoming, err := strconv.ParseBool(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "upcoming must be a boolean")
			return
		}
		if upcoming {
			now := h.now()
			f.After = &now
		}
	}

	webinars, err := h.webinars.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list webinars", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if webinars == nil {
		webinars = []model.Webinar{}
	}
	writeJSON(w, http.StatusOK, webinars)
}

func (h *WebinarHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	webinar, err := h.webinars.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get webinar", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if webinar == nil {
		writeError(w, http.StatusNotFound, "webinar not found")
		return
	}

	count, err := h.ledger.Count(r.Context(), id)
	if err != nil {
		h.logger.Error("count registrations", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"webinar": webinar, "registeredCount": count})
}

func (h *WebinarHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.logger.Error("list categories", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}
