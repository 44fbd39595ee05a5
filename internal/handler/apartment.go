package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/handler/dto"
	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/middleware"
	"github.com/sinkapp/sink/internal/service"
)

// ApartmentHandler handles apartment membership.
type ApartmentHandler struct {
	manager    *membership.Manager
	apartments service.ApartmentFinder
	maxMembers int
	logger     *slog.Logger
}

// NewApartmentHandler creates a new ApartmentHandler.
func NewApartmentHandler(manager *membership.Manager, apartments service.ApartmentFinder, maxMembers int, logger *slog.Logger) *ApartmentHandler {
	return &ApartmentHandler{
		manager:    manager,
		apartments: apartments,
		maxMembers: maxMembers,
		logger:     logger,
	}
}

// Get handles GET /api/v1/apartment.
func (h *ApartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	apt, err := h.apartments.FindForUser(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, http.StatusNotFound, "APARTMENT_NOT_FOUND", "You do not belong to an apartment")
			return
		}
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToApartmentResponse(apt, principal.UserID, h.maxMembers))
}

// Create handles POST /api/v1/apartments.
func (h *ApartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	apt, err := h.manager.CreateApartment(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToApartmentResponse(apt, principal.UserID, h.maxMembers))
}

// Join handles POST /api/v1/apartments/{code}/join.
func (h *ApartmentHandler) Join(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	code, err := middleware.ValidateApartmentCode(chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	res, err := h.manager.JoinApartment(r.Context(), code, principal.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &dto.JoinResponse{
		Apartment:     dto.ToApartmentResponse(res.Apartment, principal.UserID, h.maxMembers),
		AlreadyMember: res.AlreadyMember,
	})
}

// Leave handles POST /api/v1/apartment/leave.
func (h *ApartmentHandler) Leave(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}

	out, err := h.manager.LeaveApartment(r.Context(), apt.Code, principal.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToLeaveResponse(out))
}

// Delete handles DELETE /api/v1/apartment. Only the owner may delete.
func (h *ApartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}

	report, err := h.manager.DeleteApartment(r.Context(), apt.Code, principal.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &dto.DeleteApartmentResponse{
		Code:            apt.Code,
		CleanupComplete: report.OK(),
	})
}
