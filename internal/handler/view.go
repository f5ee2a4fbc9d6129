package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/gitfolio/internal/service"
)

// ViewHandler serves public portfolio pages as JSON.
type ViewHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewViewHandler(profiles *service.ProfileService, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{profiles: profiles, logger: logger}
}

// HandleView renders the portfolio for a registered GitHub username.
//
// HTTP: GET /api/view/{username}
func (h *ViewHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	view, err := h.profiles.View(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Debug("portfolio viewed", slog.String("github_username", view.Portfolio.GitHubUsername))
	writeJSON(w, http.StatusOK, view)
}
