package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sinkapp/sink/internal/handler/dto"
	"github.com/sinkapp/sink/internal/service"
)

// CalendarHandler handles shared calendar events.
type CalendarHandler struct {
	svc    *service.CalendarService
	logger *slog.Logger
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(svc *service.CalendarService, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/apartment/events.
func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	_, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}
	events, err := h.svc.ListEvents(r.Context(), apt.Code)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(events))
}

// Create handles POST /api/v1/apartment/events.
func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}

	var req dto.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), apt.Code, principal.UserID, service.CreateEventInput{
		Title:    req.Title,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Location: req.Location,
		Details:  req.Details,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// Delete handles DELETE /api/v1/apartment/events/{id}.
func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteEvent(r.Context(), apt.Code, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
