package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sinkapp/sink/internal/auth"
	"github.com/sinkapp/sink/internal/directory"
	"github.com/sinkapp/sink/internal/handler"
	"github.com/sinkapp/sink/internal/identity"
	"github.com/sinkapp/sink/internal/membership"
	"github.com/sinkapp/sink/internal/memstore"
	"github.com/sinkapp/sink/internal/metrics"
	"github.com/sinkapp/sink/internal/middleware"
	"github.com/sinkapp/sink/internal/realtime"
	"github.com/sinkapp/sink/internal/service"
)

// testEnv is the full HTTP stack over the memory store.
type testEnv struct {
	router  http.Handler
	store   *memstore.Store
	hub     *realtime.Hub
	metrics *metrics.InMemoryRecorder
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequentialCodes hands out AAAA01, AAAA02, ...
func sequentialCodes() membership.CodeGenerator {
	var n int64
	return func() (string, error) {
		return fmt.Sprintf("AAAA%02d", atomic.AddInt64(&n, 1)), nil
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := discardLogger()
	store := memstore.New()
	recorder := metrics.NewInMemory()

	provider := auth.NewProvider(store.Users(), memstore.NewSessionStore(), logger, time.Hour)
	dir := directory.New(store.Apartments(), logger, directory.WithMetrics(recorder))
	hub := realtime.NewHub(logger, nil, nil)

	manager := membership.NewManager(dir, store.Profiles(), []membership.ScopedStore{
		store.Events(), store.Messages(), store.Tasks(), store.Notifications(), store.Profiles(),
	}, logger,
		membership.WithCodeGenerator(sequentialCodes()),
		membership.WithObserver(hub),
		membership.WithMetrics(recorder),
	)
	resolver := identity.NewResolver(logger, recorder,
		dir, store.Profiles(), store.Messages(), store.Tasks(), store.Events(), store.Notifications(),
	)

	notifications := service.NewNotificationService(store.Notifications())
	accounts := service.NewAccountService(provider, manager, resolver, dir, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:        logger,
		Root:          handler.NewRootHandler(false),
		Health:        handler.NewHealthHandler(logger, handler.HealthCheck{Name: "postgres"}, handler.HealthCheck{Name: "redis"}),
		Metrics:       handler.NewMetricsHandler(recorder),
		Account:       handler.NewAccountHandler(accounts, logger),
		Apartment:     handler.NewApartmentHandler(manager, dir, 12, logger),
		Calendar:      handler.NewCalendarHandler(service.NewCalendarService(store.Events(), logger), logger),
		Chat:          handler.NewChatHandler(service.NewChatService(store.Messages(), hub, logger), logger),
		Tasks:         handler.NewTaskHandler(service.NewTaskService(store.Tasks(), notifications, logger), logger),
		Notifications: handler.NewNotificationHandler(notifications, logger),
		Profiles:      handler.NewProfileHandler(service.NewProfileService(store.Profiles()), logger),
		Attachments:   handler.NewAttachmentHandler(service.NewAttachmentService(nil), logger),
		ChatSocket:    hub.ServeWS,
		Sessions:      provider,
		Apartments:    dir,
		Security:      middleware.SecurityConfig{IsDevelopment: true, MaxRequestBodySize: 1 << 20},
		CORS:          middleware.DefaultCORSConfig(),
	})

	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	return &testEnv{router: router, store: store, hub: hub, metrics: recorder}
}

// do serves one request. body is JSON encoded unless nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return req, rec
}

// signUp creates an account and returns its session token.
func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	_, rec := e.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email":    email,
		"password": "secret-pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	decode(t, rec, &session)
	return session.Token
}

// createApartment creates an apartment for token and returns its code.
func (e *testEnv) createApartment(t *testing.T, token string) string {
	t.Helper()
	_, rec := e.do(t, http.MethodPost, "/api/v1/apartments", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create apartment: status %d body %s", rec.Code, rec.Body.String())
	}
	var apt struct {
		Code string `json:"code"`
	}
	decode(t, rec, &apt)
	return apt.Code
}

func (e *testEnv) join(t *testing.T, token, code string) {
	t.Helper()
	_, rec := e.do(t, http.MethodPost, "/api/v1/apartments/"+code+"/join", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("join %s: status %d body %s", code, rec.Code, rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decode(t, rec, &body)
	return body.Code
}
