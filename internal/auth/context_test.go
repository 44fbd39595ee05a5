package auth

import (
	"context"
	"testing"

	"github.com/sinkapp/sink/internal/model"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if AuthFromContext(ctx) != nil || ApartmentFromContext(ctx) != nil {
		t.Fatal("empty context returned values")
	}

	principal := &model.AuthContext{UserID: "alice@example.com"}
	apt := &model.Apartment{Code: "AAAA01"}
	ctx = ContextWithApartment(ContextWithAuth(ctx, principal), apt)

	if got := AuthFromContext(ctx); got != principal {
		t.Errorf("AuthFromContext = %v, want %v", got, principal)
	}
	if got := ApartmentFromContext(ctx); got != apt {
		t.Errorf("ApartmentFromContext = %v, want %v", got, apt)
	}
}
