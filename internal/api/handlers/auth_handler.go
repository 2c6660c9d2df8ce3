package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/libreshelf/bookstore-be/internal/auth"
	"github.com/libreshelf/bookstore-be/internal/services"
	"github.com/libreshelf/bookstore-be/internal/session"
)

// LoginRecorder counts login outcomes. Satisfied by the metrics collector.
type LoginRecorder interface {
	RecordLogin(success bool)
}

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	users    services.UserServiceProvider
	events   services.EventServiceProvider
	tokens   *auth.TokenManager
	sessions *session.Store
	logins   LoginRecorder
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, events services.EventServiceProvider, tokens *auth.TokenManager, sessions *session.Store, logins LoginRecorder) *AuthHandler {
	return &AuthHandler{users: users, events: events, tokens: tokens, sessions: sessions, logins: logins}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Email == "" || payload.Password == "" {
		respondError(w, http.StatusBadRequest, "Please provide both email and password")
		return
	}

	user, err := h.users.CreateUser(payload.Name, payload.Email, payload.Password)
	if err != nil {
		// Covers duplicate email; the store's unique constraint decides.
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		respondError(w, http.StatusBadRequest, "Error registering user")
		return
	}

	h.events.RecordEvent("user.registered", "info", "User registered: "+user.Email, &user.ID)
	respondJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

// Login handles user authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Email == "" || payload.Password == "" {
		respondError(w, http.StatusBadRequest, "Please provide both email and password")
		return
	}

	user, err := h.users.AuthenticateUser(payload.Email, payload.Password)
	if err != nil {
		h.logins.RecordLogin(false)
		switch {
		case errors.Is(err, services.ErrUnknownEmail):
			respondError(w, http.StatusUnauthorized, "Invalid User ID")
		case errors.Is(err, services.ErrWrongPassword):
			log.Warn().Str("email", payload.Email).Msg("Failed authentication attempt")
			respondError(w, http.StatusUnauthorized, "Invalid Password")
		default:
			log.Error().Err(err).Str("email", payload.Email).Msg("Login failed")
			respondError(w, http.StatusInternalServerError, "Server error during login")
		}
		return
	}

	token, err := h.tokens.Issue(r.Context(), user.ID)
	if err != nil {
		h.logins.RecordLogin(false)
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	h.logins.RecordLogin(true)
	h.events.RecordEvent("user.login", "info", "User logged in: "+user.Email, &user.ID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Login successful",
		"token":   token,
		"userId":  user.ID,
	})
}

// Logout revokes the caller's session. Only the store record is removed;
// the signed token itself stays valid until its embedded expiry, which is
// exactly why the validator checks the store first.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "No token provided")
		return
	}

	if err := h.sessions.Delete(r.Context(), token); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			respondJSON(w, http.StatusNotFound, map[string]string{"message": "Token not found or already logged out"})
			return
		}
		log.Error().Err(err).Msg("Logout failed")
		respondError(w, http.StatusInternalServerError, "Server error during logout")
		return
	}

	// Logout does not run the full validator, so there may be no user id
	// in context; the event is still worth recording.
	var subject *string
	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		subject = &userID
	}
	h.events.RecordEvent("user.logout", "info", "User logged out", subject)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}
