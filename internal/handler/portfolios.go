package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gitfolio/internal/service"
)

// PortfolioHandler exposes the portfolio registry to API-secret holders.
type PortfolioHandler struct {
	portfolios *service.PortfolioService
	logger     *slog.Logger
}

func NewPortfolioHandler(portfolios *service.PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios, logger: logger}
}

// HandleList returns the portfolios of ?email=, or all of them.
//
// HTTP: GET /api/portfolios[?email=]
func (h *PortfolioHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.portfolios.List(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createPortfolioRequest struct {
	Email          string `json:"email"`
	GitHubUsername string `json:"github_username"`
	URL            string `json:"url"`
}

// HandleCreate registers a portfolio, inactive.
//
// HTTP: POST /api/portfolios  {"email", "github_username", "url"}
func (h *PortfolioHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid portfolio JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	p, err := h.portfolios.Create(r.Context(), req.Email, req.GitHubUsername, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type activatePortfolioRequest struct {
	Email          string `json:"email"`
	GitHubUsername string `json:"github_username"`
}

// HandleActivate makes one portfolio the owner's active one.
//
// HTTP: PUT /api/portfolios/active  {"email", "github_username"}
func (h *PortfolioHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	var req activatePortfolioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid activation JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	p, err := h.portfolios.Activate(r.Context(), req.Email, req.GitHubUsername)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDelete removes a portfolio without activating another.
//
// HTTP: DELETE /api/portfolios?email=&github_username=
func (h *PortfolioHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.logger.Info("portfolio delete requested",
		slog.String("email", q.Get("email")),
		slog.String("github_username", q.Get("github_username")),
	)

	p, err := h.portfolios.Delete(r.Context(), q.Get("email"), q.Get("github_username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleCheck reports whether a GitHub username is already registered.
//
// HTTP: GET /api/portfolios/check?github_username=
func (h *PortfolioHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	exists, err := h.portfolios.Exists(r.Context(), r.URL.Query().Get("github_username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}
