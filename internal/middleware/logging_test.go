package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

const testToken = "sk_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b"

// serveLogged runs req through Logger and returns the raw log output and the
// decoded request line.
func serveLogged(t *testing.T, h http.Handler, req *http.Request) (string, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	Logger(slog.New(slog.NewJSONHandler(&buf, nil)))(h).ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return buf.String(), line
}

func status(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestLogger_NeverLogsCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(r *http.Request)
		url   string
	}{
		{"authorization header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+testToken) }, "/api/v1/apartment/tasks"},
		{"socket query token", func(r *http.Request) { r.Header.Set("Upgrade", "websocket") }, "/api/v1/apartment/chat/ws?token=" + testToken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			tt.setup(req)
			out, _ := serveLogged(t, status(http.StatusOK), req)

			for _, secret := range []string{testToken, "4f8d2e1b9c7a5f3d", "Bearer"} {
				if strings.Contains(out, secret) {
					t.Errorf("log contains %q: %s", secret, out)
				}
			}
		})
	}
}

func TestLogger_Fields(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/apartment/messages", nil)
	req.Header.Set("User-Agent", "TestBrowser/2.0")

	_, line := serveLogged(t, h, req)

	want := map[string]any{
		"msg":         "http_request",
		"method":      "POST",
		"path":        "/api/v1/apartment/messages",
		"status_code": float64(201),
		"bytes":       float64(10),
		"user_agent":  "TestBrowser/2.0",
	}
	for k, v := range want {
		if line[k] != v {
			t.Errorf("%s = %v, want %v", k, line[k], v)
		}
	}
	if _, ok := line["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}
}

func TestLogger_LevelByStatus(t *testing.T) {
	t.Parallel()

	for code, level := range map[int]string{
		http.StatusOK:                  "INFO",
		http.StatusNoContent:           "INFO",
		http.StatusUnauthorized:        "WARN",
		http.StatusConflict:            "WARN",
		http.StatusInternalServerError: "ERROR",
		http.StatusServiceUnavailable:  "ERROR",
	} {
		_, line := serveLogged(t, status(code), httptest.NewRequest(http.MethodGet, "/api/v1/apartment", nil))
		if line["level"] != level {
			t.Errorf("status %d logged at %v, want %s", code, line["level"], level)
		}
	}
}

func TestLogger_RoutePattern(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := chi.NewRouter()
	r.Use(Logger(slog.New(slog.NewJSONHandler(&buf, nil))))
	r.Delete("/api/v1/apartment/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/v1/apartment/events/01J0ABC", nil))

	if !strings.Contains(buf.String(), `"route":"/api/v1/apartment/events/{id}"`) {
		t.Errorf("route pattern missing: %s", buf.String())
	}
}

func TestResponseWriter(t *testing.T) {
	t.Parallel()

	t.Run("defaults to 200 on write", func(t *testing.T) {
		rw := wrapResponseWriter(httptest.NewRecorder())
		_, _ = rw.Write([]byte("hello"))
		if rw.status != http.StatusOK || rw.bytes != 5 {
			t.Errorf("status=%d bytes=%d", rw.status, rw.bytes)
		}
	})

	t.Run("first status wins", func(t *testing.T) {
		rec := httptest.NewRecorder()
		rw := wrapResponseWriter(rec)
		rw.WriteHeader(http.StatusCreated)
		rw.WriteHeader(http.StatusInternalServerError)
		if rw.status != http.StatusCreated || rec.Code != http.StatusCreated {
			t.Errorf("status=%d recorded=%d", rw.status, rec.Code)
		}
	})

	t.Run("hijack delegates", func(t *testing.T) {
		rw := wrapResponseWriter(httptest.NewRecorder())
		if _, _, err := rw.Hijack(); err == nil {
			t.Error("Hijack on a recorder should fail")
		}
	})
}
