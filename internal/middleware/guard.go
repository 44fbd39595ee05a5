package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sinkapp/sink/internal/auth"
	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/model"
)

// ApartmentFinder resolves the apartment a user belongs to.
type ApartmentFinder interface {
	FindForUser(ctx context.Context, userID string) (*model.Apartment, error)
}

// RequireApartment returns middleware that admits only members of an
// apartment and stores that apartment in the request context.
// Must be applied after Auth middleware.
func RequireApartment(finder ApartmentFinder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if authCtx == nil {
				writeAuthError(w)
				return
			}

			apt, err := finder.FindForUser(r.Context(), authCtx.UserID)
			if err != nil {
				if errors.Is(err, directory.ErrNotFound) {
					writeError(w, http.StatusForbidden, "NOT_APARTMENT_MEMBER", "You do not belong to an apartment")
					return
				}
				logger.Error("apartment lookup failed",
					slog.String("error", err.Error()),
					slog.String("user_id", authCtx.UserID),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				return
			}

			ctx := auth.ContextWithApartment(r.Context(), apt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
