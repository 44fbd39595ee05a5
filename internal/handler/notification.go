package handler

import (
	"log/slog"
	"net/http"

	"github.com/sinkapp/sink/internal/handler/dto"
	"github.com/sinkapp/sink/internal/service"
)

// NotificationHandler handles the caller's notifications.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(svc *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/apartment/notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}
	items, err := h.svc.List(r.Context(), apt.Code, principal.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(items))
}

// MarkAllRead handles POST /api/v1/apartment/notifications/read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MarkAllRead(r.Context(), apt.Code, principal.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &dto.MarkReadResponse{Updated: n})
}
