package handler

import (
	"log/slog"
	"net/http"

	"github.com/sinkapp/sink/internal/auth"
	"github.com/sinkapp/sink/internal/handler/dto"
	"github.com/sinkapp/sink/internal/middleware"
	"github.com/sinkapp/sink/internal/model"
	"github.com/sinkapp/sink/internal/service"
)

// AccountHandler handles sign-up, sign-in and account management.
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		svc:    svc,
		logger: logger,
	}
}

// SignUp handles POST /api/v1/auth/signup.
func (h *AccountHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if err := middleware.ValidateCredentials(req.Email, req.Password); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if err := middleware.ValidateDisplayName(req.DisplayName); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	grant, err := h.svc.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("account_created", "user_id", grant.Principal.UserID)
	writeJSON(w, http.StatusCreated, dto.ToSessionResponse(grant))
}

// SignIn handles POST /api/v1/auth/signin.
func (h *AccountHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if err := middleware.ValidateCredentials(req.Email, req.Password); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	grant, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToSessionResponse(grant))
}

// SignOut handles POST /api/v1/auth/signout.
func (h *AccountHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := h.svc.SignOut(r.Context(), principal); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	me, err := h.svc.Me(r.Context(), principal)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToMeResponse(me))
}

// ChangeEmail handles PUT /api/v1/account/email.
// The old session is revoked; the response carries a new one.
func (h *AccountHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	var req dto.ChangeEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidJSON(w)
		return
	}
	if err := middleware.ValidateCredentials(req.Email, ""); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	change, err := h.svc.ChangeEmail(r.Context(), principal, req.Email)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("account_email_changed",
		"old_id", principal.UserID,
		"new_id", change.Grant.Principal.UserID,
		"migration_complete", change.MigrationComplete(),
	)
	writeJSON(w, http.StatusOK, dto.ToChangeEmailResponse(change))
}

// DeleteAccount handles DELETE /api/v1/account.
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	removal, err := h.svc.DeleteAccount(r.Context(), principal)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToAccountDeletedResponse(removal))
}

// requirePrincipal returns the signed-in user or writes 401.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (*model.AuthContext, bool) {
	principal := auth.AuthFromContext(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing session")
		return nil, false
	}
	return principal, true
}

// requireApartment returns the caller's apartment set by the membership guard.
func requireApartment(w http.ResponseWriter, r *http.Request) (*model.AuthContext, *model.Apartment, bool) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return nil, nil, false
	}
	apt := auth.ApartmentFromContext(r.Context())
	if apt == nil {
		writeError(w, http.StatusForbidden, "NOT_APARTMENT_MEMBER", "You do not belong to an apartment")
		return nil, nil, false
	}
	return principal, apt, true
}
