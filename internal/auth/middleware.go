package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/libreshelf/bookstore-be/internal/session"
)

// RejectionRecorder counts authentication rejections by reason. Satisfied
// by the metrics collector; a nil recorder disables counting.
type RejectionRecorder interface {
	RecordAuthRejection(reason string)
}

// Middleware gates protected routes. A request passes only when the token
// is present as an active session record AND independently survives
// signature/expiry verification. The store check deliberately runs first:
// deleting the record revokes access immediately, even for a token whose
// signature would still verify.
func Middleware(tm *TokenManager, store *session.Store, rec RejectionRecorder) func(http.Handler) http.Handler {
	reject := func(w http.ResponseWriter, status int, reason, message, detail string) {
		if rec != nil {
			rec.RecordAuthRejection(reason)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{
			"message": message,
			"error":   detail,
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractBearer(r.Header.Get("Authorization"))
			switch {
			case errors.Is(err, ErrNoAuthHeader):
				reject(w, http.StatusUnauthorized, "no_token",
					"Unauthorized: No token provided", "Missing Authorization header")
				return
			case errors.Is(err, ErrBadAuthFormat):
				reject(w, http.StatusUnauthorized, "bad_format",
					"Unauthorized: Invalid token format", `Token must be in "Bearer <token>" format`)
				return
			case errors.Is(err, ErrEmptyToken):
				reject(w, http.StatusUnauthorized, "empty_token",
					"Unauthorized: Token is empty", "No token provided")
				return
			}

			if _, err := store.UserID(r.Context(), token); err != nil {
				if errors.Is(err, session.ErrNotFound) {
					reject(w, http.StatusForbidden, "revoked",
						"Forbidden: Invalid or revoked token", "Token not found in database")
					return
				}
				log.Error().Err(err).Msg("Session store lookup failed")
				reject(w, http.StatusInternalServerError, "store_error",
					"Server error during authentication", "Internal server error")
				return
			}

			claims, err := tm.Verify(token)
			if err != nil {
				reject(w, http.StatusUnauthorized, "verify_failed",
					"Unauthorized: Token verification failed", "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
