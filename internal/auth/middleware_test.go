package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/libreshelf/bookstore-be/internal/session"
)

type noopRecorder struct{}

func (noopRecorder) RecordAuthRejection(string) {}

func protectedServer(t *testing.T) (*TokenManager, *session.Store, *httptest.Server, func()) {
	t.Helper()

	tm, store, cleanup := newTestManager(t)

	handler := Middleware(tm, store, noopRecorder{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		w.Write([]byte(userID))
	}))
	srv := httptest.NewServer(handler)

	return tm, store, srv, func() {
		srv.Close()
		cleanup()
	}
}

func doAuthRequest(t *testing.T, srv *httptest.Server, header string) (int, map[string]string, string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var buf [64]byte
		n, _ := resp.Body.Read(buf[:])
		return resp.StatusCode, nil, string(buf[:n])
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return resp.StatusCode, body, ""
}

func TestMiddlewareMalformedHeaders(t *testing.T) {
	_, _, srv, cleanup := protectedServer(t)
	defer cleanup()

	tests := []struct {
		name        string
		header      string
		wantMessage string
		wantError   string
	}{
		{
			name:        "missing header",
			header:      "",
			wantMessage: "Unauthorized: No token provided",
			wantError:   "Missing Authorization header",
		},
		{
			name:        "wrong scheme",
			header:      "Token abc",
			wantMessage: "Unauthorized: Invalid token format",
			wantError:   `Token must be in "Bearer <token>" format`,
		},
		{
			name:        "empty token",
			header:      "Bearer ",
			wantMessage: "Unauthorized: Token is empty",
			wantError:   "No token provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := doAuthRequest(t, srv, tt.header)
			if status != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
			}
			if body["message"] != tt.wantMessage {
				t.Errorf("message = %q, want %q", body["message"], tt.wantMessage)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
		})
	}
}

// A validly-signed token whose session record is gone must be rejected as
// revoked (403), proving the store check runs before signature
// verification.
func TestMiddlewareRevokedBeforeSignature(t *testing.T) {
	tm, store, srv, cleanup := protectedServer(t)
	defer cleanup()

	token, err := tm.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Accepted while the record exists.
	status, _, gotUser := doAuthRequest(t, srv, "Bearer "+token)
	if status != http.StatusOK {
		t.Fatalf("status with active session = %d, want 200", status)
	}
	if gotUser != "user-1" {
		t.Errorf("handler saw user %q, want %q", gotUser, "user-1")
	}

	// Revoke and retry: the signature still verifies, the store says no.
	if err := store.Delete(context.Background(), token); err != nil {
		t.Fatalf("revoking session: %v", err)
	}

	status, body, _ := doAuthRequest(t, srv, "Bearer "+token)
	if status != http.StatusForbidden {
		t.Fatalf("status after revocation = %d, want %d", status, http.StatusForbidden)
	}
	if body["message"] != "Forbidden: Invalid or revoked token" {
		t.Errorf("message = %q, want revoked-token message", body["message"])
	}
}

func TestMiddlewareBadSignatureInStore(t *testing.T) {
	_, store, srv, cleanup := protectedServer(t)
	defer cleanup()

	// A garbage token planted directly in the store passes the presence
	// check but must still fail verification.
	if err := store.Save(context.Background(), "not-a-jwt", "user-1"); err != nil {
		t.Fatalf("planting session record: %v", err)
	}

	status, body, _ := doAuthRequest(t, srv, "Bearer not-a-jwt")
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", status, http.StatusUnauthorized)
	}
	if body["message"] != "Unauthorized: Token verification failed" {
		t.Errorf("message = %q, want verification-failed message", body["message"])
	}
}
