package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/upb/realm-guard/models"
	"github.com/upb/realm-guard/repositories"
	"github.com/upb/realm-guard/utils"
	"go.uber.org/zap"
)

const defaultEventLimit = 50

// EventListResponse is the body of GET /api/admin/events
type EventListResponse struct {
	Events []*models.AuthEvent `json:"events"`
	Count  int                 `json:"count"`
}

// EventHandler exposes recorded authorization decisions
type EventHandler struct {
	events repositories.AuthEventRepository
	logger *zap.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(events repositories.AuthEventRepository, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		logger: logger,
	}
}

// HandleList handles GET /api/admin/events?limit=N
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid query", map[string]string{"limit": "limit must be an integer"})
			return
		}
		if err := utils.ValidateVar(n, "limit", "min=1,max=500"); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid query", utils.GetValidationFields(err))
			return
		}
		limit = n
	}

	events, err := h.events.ListRecent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, repositories.ErrStoreDisabled) {
			_ = utils.WriteServiceUnavailable(w, "Auth event recording is disabled")
			return
		}
		h.logger.Error("failed to list auth events", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteOK(w, EventListResponse{
		Events: events,
		Count:  len(events),
	})
}
