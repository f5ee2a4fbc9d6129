package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gitfolio/internal/auth"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/service"
)

// SessionHandler signs users in and out.
//
//   - HandleLogin  → email lookup, session cookie
//   - HandleSignup → create identity, session cookie
//   - HandleLogout → clear the cookie
type SessionHandler struct {
	sessions      *service.SessionService
	tokens        *auth.TokenService
	secureCookies bool
	logger        *slog.Logger
}

func NewSessionHandler(
	sessions *service.SessionService,
	tokens *auth.TokenService,
	secureCookies bool,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions:      sessions,
		tokens:        tokens,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

type sessionResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// HandleLogin signs in an existing identity by email.
//
// HTTP: POST /api/session/login  {"email": "..."}
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid login JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	res, err := h.sessions.Login(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.tokens.TTL(), h.secureCookies)
	h.logger.Debug("session started", slog.String("user_id", res.User.ID))
	writeJSON(w, http.StatusOK, sessionResponse{User: res.User, Token: res.Token})
}

// HandleSignup creates an identity and signs it in.
//
// HTTP: POST /api/session/signup  {"username", "email", "name"}
func (h *SessionHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid signup JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	res, err := h.sessions.Signup(r.Context(), req.Username, req.Email, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.tokens.TTL(), h.secureCookies)
	h.logger.Debug("session started", slog.String("user_id", res.User.ID), slog.Bool("signup", true))
	writeJSON(w, http.StatusCreated, sessionResponse{User: res.User, Token: res.Token})
}

// HandleLogout clears the session cookie. The token itself stays valid until
// it expires; without the cookie the browser no longer sends it.
//
// HTTP: POST /api/session/logout
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	h.logger.Debug("session cleared")
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
