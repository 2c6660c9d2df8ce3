package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	apimiddleware "github.com/libreshelf/bookstore-be/internal/api/middleware"
	"github.com/libreshelf/bookstore-be/internal/auth"
	"github.com/libreshelf/bookstore-be/internal/config"
	"github.com/libreshelf/bookstore-be/internal/database"
	"github.com/libreshelf/bookstore-be/internal/metrics"
	"github.com/libreshelf/bookstore-be/internal/services"
	"github.com/libreshelf/bookstore-be/internal/session"
	"github.com/libreshelf/bookstore-be/internal/websocket"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{JWTSecret: []byte("test-secret"), TokenTTL: time.Hour}
	sessions := session.NewStore(rdb, cfg.TokenTTL)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	hub := websocket.NewHub()
	go hub.Run()

	limiter := apimiddleware.NewLoginLimiter(apimiddleware.LoginLimiterConfig{
		Rate:            rate.Limit(1000),
		Burst:           1000,
		CleanupInterval: time.Minute,
		IdleTimeout:     time.Minute,
	})
	t.Cleanup(limiter.Stop)

	router := NewRouter(Deps{
		Users:     services.NewUserService(db),
		Books:     services.NewBookService(db),
		Events:    services.NewEventService(db, hub),
		Tokens:    auth.NewTokenManager(cfg, sessions),
		Sessions:  sessions,
		Hub:       hub,
		Collector: collector,
		Gatherer:  registry,
		Limiter:   limiter,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encoding payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, srv.URL+path, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decoding %s %s response %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, decoded
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	status, body := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["message"] != "Server is healthy" {
		t.Errorf("body = %v", body)
	}
}

func TestAuthLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Protected route without a header carries the exact contract body.
	status, body := doJSON(t, srv, http.MethodGet, "/getbooks", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", status)
	}
	if body["message"] != "Unauthorized: No token provided" || body["error"] != "Missing Authorization header" {
		t.Errorf("unauthenticated body = %v", body)
	}

	// Login before registering.
	status, body = doJSON(t, srv, http.MethodPost, "/login", "", map[string]string{
		"email": "a@x.com", "password": "secret",
	})
	if status != http.StatusUnauthorized || body["error"] != "Invalid User ID" {
		t.Fatalf("unknown-user login = %d %v", status, body)
	}

	// Registration requires email and password.
	status, _ = doJSON(t, srv, http.MethodPost, "/register", "", map[string]string{"email": "a@x.com"})
	if status != http.StatusBadRequest {
		t.Fatalf("register without password = %d, want 400", status)
	}

	status, body = doJSON(t, srv, http.MethodPost, "/register", "", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret",
	})
	if status != http.StatusCreated || body["message"] != "User registered successfully" {
		t.Fatalf("register = %d %v", status, body)
	}

	// Wrong password is distinct from unknown user.
	status, body = doJSON(t, srv, http.MethodPost, "/login", "", map[string]string{
		"email": "a@x.com", "password": "wrong",
	})
	if status != http.StatusUnauthorized || body["error"] != "Invalid Password" {
		t.Fatalf("wrong-password login = %d %v", status, body)
	}

	status, body = doJSON(t, srv, http.MethodPost, "/login", "", map[string]string{
		"email": "a@x.com", "password": "secret",
	})
	if status != http.StatusOK || body["message"] != "Login successful" {
		t.Fatalf("login = %d %v", status, body)
	}
	token, _ := body["token"].(string)
	userID, _ := body["userId"].(string)
	if token == "" || userID == "" {
		t.Fatalf("login returned empty token/userId: %v", body)
	}

	// Token opens protected routes.
	status, _ = doJSON(t, srv, http.MethodGet, "/getbooks", token, nil)
	if status != http.StatusOK {
		t.Fatalf("authenticated getbooks = %d, want 200", status)
	}

	// Logout without a token is a 400, not a 401.
	status, body = doJSON(t, srv, http.MethodPost, "/logout", "", nil)
	if status != http.StatusBadRequest || body["error"] != "No token provided" {
		t.Fatalf("logout without token = %d %v", status, body)
	}

	status, body = doJSON(t, srv, http.MethodPost, "/logout", token, nil)
	if status != http.StatusOK || body["message"] != "Logout successful" {
		t.Fatalf("logout = %d %v", status, body)
	}

	// Logging out again reports the missing record.
	status, body = doJSON(t, srv, http.MethodPost, "/logout", token, nil)
	if status != http.StatusNotFound || body["message"] != "Token not found or already logged out" {
		t.Fatalf("repeat logout = %d %v", status, body)
	}

	// The token still has a valid signature but its session is gone.
	status, body = doJSON(t, srv, http.MethodGet, "/getbooks", token, nil)
	if status != http.StatusForbidden || body["message"] != "Forbidden: Invalid or revoked token" {
		t.Fatalf("revoked token = %d %v", status, body)
	}
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	status, _ := doJSON(t, srv, http.MethodPost, "/register", "", map[string]string{
		"name": "A", "email": "a@x.com", "password": "secret",
	})
	if status != http.StatusCreated {
		t.Fatalf("register = %d", status)
	}
	status, body := doJSON(t, srv, http.MethodPost, "/login", "", map[string]string{
		"email": "a@x.com", "password": "secret",
	})
	if status != http.StatusOK {
		t.Fatalf("login = %d", status)
	}
	return body["token"].(string)
}

func TestBookEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	// Creation validates required fields.
	status, body := doJSON(t, srv, http.MethodPost, "/createbook", token, map[string]interface{}{
		"title": "The Go Programming Language",
	})
	if status != http.StatusBadRequest || body["error"] != "Missing required fields" {
		t.Fatalf("partial createbook = %d %v", status, body)
	}

	status, body = doJSON(t, srv, http.MethodPost, "/createbook", token, map[string]interface{}{
		"title":         "The Go Programming Language",
		"author":        "Donovan",
		"category":      "Programming",
		"price":         39.99,
		"rating":        4.7,
		"publishedDate": "2015-11-16",
	})
	if status != http.StatusCreated {
		t.Fatalf("createbook = %d %v", status, body)
	}
	bookID, _ := body["id"].(string)
	if bookID == "" {
		t.Fatalf("created book has no id: %v", body)
	}

	status, body = doJSON(t, srv, http.MethodGet, "/getbook/"+bookID, token, nil)
	if status != http.StatusOK || body["title"] != "The Go Programming Language" {
		t.Fatalf("getbook = %d %v", status, body)
	}

	status, body = doJSON(t, srv, http.MethodGet, "/getbook/missing", token, nil)
	if status != http.StatusNotFound || body["error"] != "Book not found" {
		t.Fatalf("getbook missing = %d %v", status, body)
	}

	status, body = doJSON(t, srv, http.MethodGet, "/getbooks", token, nil)
	if status != http.StatusOK {
		t.Fatalf("getbooks = %d", status)
	}
	pagination, _ := body["pagination"].(map[string]interface{})
	if pagination["totalBooks"] != float64(1) || pagination["currentPage"] != float64(1) {
		t.Errorf("pagination = %v", pagination)
	}

	status, body = doJSON(t, srv, http.MethodPatch, "/updatebook/"+bookID, token, map[string]interface{}{
		"price": 29.99,
	})
	if status != http.StatusOK || body["price"] != 29.99 {
		t.Fatalf("updatebook = %d %v", status, body)
	}
	if body["title"] != "The Go Programming Language" {
		t.Errorf("patch clobbered title: %v", body)
	}

	// Search requires a term; with one it matches case-insensitively.
	status, body = doJSON(t, srv, http.MethodGet, "/searchbooks", token, nil)
	if status != http.StatusBadRequest || body["error"] != "Search term is required" {
		t.Fatalf("searchbooks without term = %d %v", status, body)
	}
	status, _ = doJSON(t, srv, http.MethodGet, "/searchbooks?title=GO", token, nil)
	if status != http.StatusOK {
		t.Fatalf("searchbooks = %d", status)
	}

	status, _ = doJSON(t, srv, http.MethodGet, "/filterbooks?author=Donovan&minRating=4", token, nil)
	if status != http.StatusOK {
		t.Fatalf("filterbooks = %d", status)
	}

	status, body = doJSON(t, srv, http.MethodDelete, "/deletebook/"+bookID, token, nil)
	if status != http.StatusOK || body["message"] != "Book deleted successfully" {
		t.Fatalf("deletebook = %d %v", status, body)
	}
	status, body = doJSON(t, srv, http.MethodDelete, "/deletebook/"+bookID, token, nil)
	if status != http.StatusNotFound || body["error"] != "Book not found" {
		t.Fatalf("repeat deletebook = %d %v", status, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuditEvents(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp, err := http.NewRequest(http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp.Header.Set("Authorization", "Bearer "+token)
	res, err := srv.Client().Do(resp)
	if err != nil {
		t.Fatalf("GET /events failed: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.StatusCode)
	}

	var events []map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&events); err != nil {
		t.Fatalf("decoding events: %v", err)
	}
	// Registration and login were both recorded.
	if len(events) < 2 {
		t.Errorf("got %d events, want at least 2", len(events))
	}
}
