package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sinkapp/sink/internal/realtime"
)

func TestRouter_ApartmentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@example.com")
	bob := env.signUp(t, "bob@example.com")
	carol := env.signUp(t, "carol@example.com")

	_, rec := env.do(t, http.MethodGet, "/api/v1/apartment", alice, nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "APARTMENT_NOT_FOUND" {
		t.Fatalf("GET apartment before create: %d %s", rec.Code, rec.Body.String())
	}

	code := env.createApartment(t, alice)
	if code != "AAAA01" {
		t.Fatalf("code = %q, want AAAA01", code)
	}
	env.join(t, bob, strings.ToLower(code))

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"second apartment rejected", http.MethodPost, "/api/v1/apartments", bob, http.StatusConflict, "ALREADY_IN_APARTMENT"},
		{"malformed code", http.MethodPost, "/api/v1/apartments/zz/join", carol, http.StatusBadRequest, "INVALID_APARTMENT_CODE"},
		{"unknown code", http.MethodPost, "/api/v1/apartments/ZZZZ99/join", carol, http.StatusNotFound, "APARTMENT_NOT_FOUND"},
		{"join other apartment while member", http.MethodPost, "/api/v1/apartments/ZZZZ99/join", bob, http.StatusConflict, "ALREADY_IN_APARTMENT"},
		{"non-owner delete", http.MethodDelete, "/api/v1/apartment", bob, http.StatusForbidden, "NOT_APARTMENT_OWNER"},
		{"non-member scoped route", http.MethodGet, "/api/v1/apartment/tasks", carol, http.StatusForbidden, "NOT_APARTMENT_MEMBER"},
		{"missing session", http.MethodGet, "/api/v1/apartment/tasks", "", http.StatusUnauthorized, "UNAUTHORIZED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rec := env.do(t, tt.method, tt.path, tt.token, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}

	_, rec = env.do(t, http.MethodGet, "/api/v1/apartment", bob, nil)
	var apt struct {
		Owner   string   `json:"owner"`
		Members []string `json:"members"`
		IsOwner bool     `json:"is_owner"`
	}
	decode(t, rec, &apt)
	if apt.Owner != "alice@example.com" || len(apt.Members) != 2 || apt.IsOwner {
		t.Errorf("apartment seen by bob = %+v", apt)
	}

	_, rec = env.do(t, http.MethodPost, "/api/v1/apartment/leave", bob, nil)
	var left struct {
		WasMember        bool     `json:"was_member"`
		ApartmentDeleted bool     `json:"apartment_deleted"`
		Members          []string `json:"members"`
	}
	decode(t, rec, &left)
	if !left.WasMember || left.ApartmentDeleted || len(left.Members) != 1 {
		t.Errorf("leave = %+v", left)
	}

	_, rec = env.do(t, http.MethodDelete, "/api/v1/apartment", alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete: %d %s", rec.Code, rec.Body.String())
	}
	_, rec = env.do(t, http.MethodGet, "/api/v1/apartment", alice, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET apartment after delete = %d, want 404", rec.Code)
	}

	if snap := env.metrics.Snapshot(); snap.ApartmentsCreated != 1 || snap.ApartmentsDeleted != 1 {
		t.Errorf("metrics = %+v", snap)
	}
}

func TestRouter_TasksNotifyAssignee(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@example.com")
	bob := env.signUp(t, "bob@example.com")
	code := env.createApartment(t, alice)
	env.join(t, bob, code)

	due := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	_, rec := env.do(t, http.MethodPost, "/api/v1/apartment/tasks", alice, map[string]string{
		"title":    "Take out trash",
		"room":     "Kitchen",
		"due_at":   due,
		"assignee": "Bob@Example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create task: %d %s", rec.Code, rec.Body.String())
	}
	var task struct {
		ID       string `json:"id"`
		Assignee string `json:"assignee"`
	}
	decode(t, rec, &task)
	if task.Assignee != "bob@example.com" {
		t.Errorf("assignee = %q", task.Assignee)
	}

	_, rec = env.do(t, http.MethodPost, "/api/v1/apartment/tasks", alice, map[string]string{
		"title": "Mop", "room": "Bathroom", "due_at": due, "assignee": "stranger@example.com",
	})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "VALIDATION_FAILED" {
		t.Errorf("foreign assignee: %d %s", rec.Code, rec.Body.String())
	}

	var list struct {
		Data []struct {
			Message string `json:"message"`
			Read    bool   `json:"read"`
		} `json:"data"`
	}
	_, rec = env.do(t, http.MethodGet, "/api/v1/apartment/notifications", bob, nil)
	decode(t, rec, &list)
	if len(list.Data) != 1 || list.Data[0].Read {
		t.Fatalf("bob notifications = %+v", list.Data)
	}

	_, rec = env.do(t, http.MethodGet, "/api/v1/apartment/notifications", alice, nil)
	decode(t, rec, &list)
	if len(list.Data) != 0 {
		t.Errorf("creator notified: %+v", list.Data)
	}

	_, rec = env.do(t, http.MethodPost, "/api/v1/apartment/notifications/read", bob, nil)
	var marked struct {
		Updated int64 `json:"updated"`
	}
	decode(t, rec, &marked)
	if marked.Updated != 1 {
		t.Errorf("updated = %d, want 1", marked.Updated)
	}

	path := "/api/v1/apartment/tasks/" + task.ID + "/complete"
	if _, rec = env.do(t, http.MethodPost, path, bob, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("complete: %d %s", rec.Code, rec.Body.String())
	}
	if _, rec = env.do(t, http.MethodPost, path, bob, nil); rec.Code != http.StatusNotFound || errorCode(t, rec) != "TASK_NOT_FOUND" {
		t.Errorf("complete twice: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_Calendar(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@example.com")
	env.createApartment(t, alice)

	_, rec := env.do(t, http.MethodPost, "/api/v1/apartment/events", alice, map[string]string{
		"title":     "House meeting",
		"starts_at": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("past event: %d %s", rec.Code, rec.Body.String())
	}

	_, rec = env.do(t, http.MethodPost, "/api/v1/apartment/events", alice, map[string]string{
		"title":     "House meeting",
		"starts_at": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"location":  "Living room",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: %d %s", rec.Code, rec.Body.String())
	}
	var event struct {
		ID string `json:"id"`
	}
	decode(t, rec, &event)

	if _, rec = env.do(t, http.MethodDelete, "/api/v1/apartment/events/"+event.ID, alice, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete event: %d", rec.Code)
	}
	if _, rec = env.do(t, http.MethodDelete, "/api/v1/apartment/events/"+event.ID, alice, nil); errorCode(t, rec) != "EVENT_NOT_FOUND" {
		t.Errorf("delete twice: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_JSON" {
		t.Errorf("invalid json: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_AttachmentsDisabled(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@example.com")
	env.createApartment(t, alice)

	_, rec := env.do(t, http.MethodPost, "/api/v1/apartment/attachments", alice, map[string]any{
		"filename": "sink.jpg", "content_type": "image/jpeg", "size": 1024,
	})
	if rec.Code != http.StatusServiceUnavailable || errorCode(t, rec) != "ATTACHMENTS_DISABLED" {
		t.Errorf("upload: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_ChangeEmailMovesMembership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@example.com")
	code := env.createApartment(t, alice)

	_, rec := env.do(t, http.MethodPut, "/api/v1/account/email", alice, map[string]string{"email": "alice@new.example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("change email: %d %s", rec.Code, rec.Body.String())
	}
	var change struct {
		Session struct {
			Token  string `json:"token"`
			UserID string `json:"user_id"`
		} `json:"session"`
		MigrationComplete bool `json:"migration_complete"`
	}
	decode(t, rec, &change)
	if !change.MigrationComplete || change.Session.UserID != "alice@new.example.com" {
		t.Fatalf("change = %+v", change)
	}

	if _, rec = env.do(t, http.MethodGet, "/api/v1/auth/me", alice, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("old session still valid: %d", rec.Code)
	}

	_, rec = env.do(t, http.MethodGet, "/api/v1/auth/me", change.Session.Token, nil)
	var me struct {
		UserID        string `json:"user_id"`
		ApartmentCode string `json:"apartment_code"`
	}
	decode(t, rec, &me)
	if me.UserID != "alice@new.example.com" || me.ApartmentCode != code {
		t.Errorf("me = %+v", me)
	}
}

func TestRouter_DeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@example.com")
	bob := env.signUp(t, "bob@example.com")
	code := env.createApartment(t, alice)
	env.join(t, bob, code)

	_, rec := env.do(t, http.MethodDelete, "/api/v1/account", bob, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete account: %d %s", rec.Code, rec.Body.String())
	}
	var removed struct {
		LeftApartments []string `json:"left_apartments"`
		Complete       bool     `json:"complete"`
	}
	decode(t, rec, &removed)
	if len(removed.LeftApartments) != 1 || removed.LeftApartments[0] != code || !removed.Complete {
		t.Errorf("removal = %+v", removed)
	}

	if _, rec = env.do(t, http.MethodGet, "/api/v1/auth/me", bob, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted account session still valid: %d", rec.Code)
	}
	_, rec = env.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"email": "bob@example.com", "password": "secret-pass",
	})
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "INVALID_CREDENTIALS" {
		t.Errorf("sign in after delete: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_ChatSocketReceivesPostedMessages(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@example.com")
	env.createApartment(t, alice)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/apartment/chat/ws?token=" + alice
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount("AAAA01") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	_, rec := env.do(t, http.MethodPost, "/api/v1/apartment/messages", alice, map[string]string{"text": "who took my milk"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("post message: %d %s", rec.Code, rec.Body.String())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env1 realtime.Envelope
	if err := conn.ReadJSON(&env1); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env1.Event != realtime.EventChatMessage || !strings.Contains(string(env1.Data), "who took my milk") {
		t.Errorf("envelope = %s %s", env1.Event, env1.Data)
	}

	_, rec = env.do(t, http.MethodGet, "/api/v1/apartment/messages?limit=10", alice, nil)
	if !strings.Contains(rec.Body.String(), "who took my milk") {
		t.Errorf("history = %s", rec.Body.String())
	}
}
