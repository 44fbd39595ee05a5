package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sinkapp/sink/internal/auth"
	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/memstore"
	"github.com/sinkapp/sink/internal/model"
)

type brokenFinder struct{}

func (brokenFinder) FindForUser(ctx context.Context, userID string) (*model.Apartment, error) {
	return nil, errors.New("store offline")
}

func TestRequireApartment(t *testing.T) {
	ctx := context.Background()
	dir := directory.New(memstore.New().Apartments(), discardLogger())
	if _, err := dir.Create(ctx, "AB12CD", "alice@example.com"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name       string
		finder     ApartmentFinder
		user       string
		wantStatus int
		wantCode   string
	}{
		{name: "member", finder: dir, user: "alice@example.com", wantStatus: http.StatusOK},
		{name: "not a member", finder: dir, user: "bob@example.com", wantStatus: http.StatusForbidden, wantCode: "NOT_APARTMENT_MEMBER"},
		{name: "unauthenticated", finder: dir, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "lookup failure", finder: brokenFinder{}, user: "alice@example.com", wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCode string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if apt := auth.ApartmentFromContext(r.Context()); apt != nil {
					gotCode = apt.Code
				}
				w.WriteHeader(http.StatusOK)
			})
			h := RequireApartment(tt.finder, discardLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/apartment/tasks", nil)
			if tt.user != "" {
				req = req.WithContext(auth.ContextWithAuth(req.Context(), &model.AuthContext{UserID: tt.user}))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotCode != "AB12CD" {
				t.Errorf("apartment in context = %q, want AB12CD", gotCode)
			}
			if tt.wantCode != "" && !strings.Contains(rec.Body.String(), `"code":"`+tt.wantCode+`"`) {
				t.Errorf("body = %s, want code %s", rec.Body.String(), tt.wantCode)
			}
		})
	}
}
