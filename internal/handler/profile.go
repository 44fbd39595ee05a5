package handler

import (
	"log/slog"
	"net/http"

	"github.com/sinkapp/sink/internal/handler/dto"
	"github.com/sinkapp/sink/internal/service"
)

// ProfileHandler handles per-apartment member profiles.
type ProfileHandler struct {
	svc    *service.ProfileService
	logger *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/apartment/profiles.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	_, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}
	profiles, err := h.svc.ListForApartment(r.Context(), apt)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &dto.ProfilesResponse{Data: profiles})
}

// Get handles GET /api/v1/apartment/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}
	profile, err := h.svc.Get(r.Context(), apt.Code, principal.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Update handles PUT /api/v1/apartment/profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, apt, ok := requireApartment(w, r)
	if !ok {
		return
	}

	var req dto.ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}

	profile, err := h.svc.Save(r.Context(), apt.Code, principal.UserID, req.ToUpdate())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
