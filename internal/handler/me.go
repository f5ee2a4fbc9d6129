package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/auth"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/service"
)

// MeHandler is the portfolio selector for the signed-in user. Every route
// sits behind auth.RequireSession; the owner is always the session's user.
type MeHandler struct {
	sessions   *service.SessionService
	portfolios *service.PortfolioService
	logger     *slog.Logger
}

func NewMeHandler(sessions *service.SessionService, portfolios *service.PortfolioService, logger *slog.Logger) *MeHandler {
	return &MeHandler{sessions: sessions, portfolios: portfolios, logger: logger}
}

// currentUser resolves the session's identity.
func (h *MeHandler) currentUser(r *http.Request) (*model.User, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("valid session required")
	}
	return h.sessions.Current(r.Context(), userID)
}

type meResponse struct {
	User   *model.User      `json:"user"`
	Active *model.Portfolio `json:"active"`
}

// HandleMe returns the signed-in user and their active portfolio, if any.
//
// HTTP: GET /api/me
func (h *MeHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	active, err := h.portfolios.Active(r.Context(), user.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: user, Active: active})
}

// HandleList returns the signed-in user's portfolios, oldest first.
//
// HTTP: GET /api/me/portfolios
func (h *MeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := h.portfolios.List(r.Context(), user.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleRegister adds a GitHub username or profile URL and makes it active.
//
// HTTP: POST /api/me/portfolios  {"input": "https://github.com/octocat"}
func (h *MeHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Input string `json:"input"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid register JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	p, err := h.portfolios.Register(r.Context(), user.Email, req.Input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"portfolio": p,
		"share_url": p.PublicURL,
	})
}

// HandleSwitch changes the active portfolio.
//
// HTTP: PUT /api/me/portfolios/active  {"github_username": "..."}
func (h *MeHandler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		GitHubUsername string `json:"github_username"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid switch JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	p, err := h.portfolios.Switch(r.Context(), user.Email, req.GitHubUsername)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRemove deletes a portfolio, activating the newest remaining one when
// the active portfolio was removed.
//
// HTTP: DELETE /api/me/portfolios/{username}
func (h *MeHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	username := chi.URLParam(r, "username")
	h.logger.Info("portfolio removal requested",
		slog.String("user_id", user.ID),
		slog.String("github_username", username),
	)

	res, err := h.portfolios.Remove(r.Context(), user.Email, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
