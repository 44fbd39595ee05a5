package auth

import (
	"context"

	"github.com/sinkapp/sink/internal/model"
)

type (
	principalKey struct{}
	apartmentKey struct{}
)

// ContextWithAuth stores the signed-in principal.
func ContextWithAuth(ctx context.Context, principal *model.AuthContext) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// AuthFromContext returns the principal set by the auth middleware, or nil.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	principal, _ := ctx.Value(principalKey{}).(*model.AuthContext)
	return principal
}

// ContextWithApartment stores the caller's apartment, resolved by the membership guard.
func ContextWithApartment(ctx context.Context, apt *model.Apartment) context.Context {
	return context.WithValue(ctx, apartmentKey{}, apt)
}

// ApartmentFromContext returns the apartment set by the membership guard, or nil.
func ApartmentFromContext(ctx context.Context) *model.Apartment {
	apt, _ := ctx.Value(apartmentKey{}).(*model.Apartment)
	return apt
}
