package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/repository"
)

// PortfolioService exposes the portfolio registry operations and the
// selector workflows built on them (register, switch, remove).
type PortfolioService struct {
	repo    repository.PortfolioRepository
	baseURL string
	logger  *slog.Logger
}

// NewPortfolioService creates a PortfolioService. baseURL prefixes every
// generated share link, e.g. "https://gitfolio.dev" → "https://gitfolio.dev/octocat".
func NewPortfolioService(repo repository.PortfolioRepository, baseURL string, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{
		repo:    repo,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

const githubHost = "github.com/"

// NormalizeUsername reduces a GitHub username or profile URL to the bare
// username: "https://github.com/octocat/repo" → "octocat". The last
// "github.com/" wins, so a pasted URL with a doubled host still resolves.
func NormalizeUsername(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if i := strings.LastIndex(s, githubHost); i >= 0 {
		s, _, _ = strings.Cut(s[i+len(githubHost):], "/")
		s = strings.TrimSpace(s)
	}

	if s == "" {
		return "", apperror.ValidationFailed("github_username", "github username is required")
	}
	if strings.Contains(s, "/") || strings.Contains(strings.ToLower(s), "http") {
		return "", apperror.ValidationFailed("github_username", "enter a GitHub username or github.com profile URL")
	}
	return s, nil
}

// PublicURL is the share link for a username.
func (s *PortfolioService) PublicURL(username string) string {
	return s.baseURL + "/" + username
}

// =========================================================================
// REGISTRY
// =========================================================================

// List returns the owner's portfolios, or all portfolios when ownerEmail is
// empty, oldest first.
func (s *PortfolioService) List(ctx context.Context, ownerEmail string) ([]model.Portfolio, error) {
	list, err := s.repo.ListPortfolios(ctx, strings.TrimSpace(ownerEmail))
	if err != nil {
		return nil, fmt.Errorf("service/portfolio: listing: %w", err)
	}
	return list, nil
}

// Exists is the advisory pre-flight check. The store's unique index stays
// authoritative.
func (s *PortfolioService) Exists(ctx context.Context, githubUsername string) (bool, error) {
	githubUsername = strings.TrimSpace(githubUsername)
	if githubUsername == "" {
		return false, apperror.ValidationFailed("github_username", "github_username is required")
	}

	ok, err := s.repo.PortfolioExists(ctx, githubUsername)
	if err != nil {
		return false, fmt.Errorf("service/portfolio: checking %s: %w", githubUsername, err)
	}
	return ok, nil
}

// Create registers a portfolio as given, inactive. Duplicates, whoever owns
// them, are apperror.ErrConflict.
func (s *PortfolioService) Create(ctx context.Context, ownerEmail, githubUsername, url string) (*model.Portfolio, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	githubUsername = strings.TrimSpace(githubUsername)
	url = strings.TrimSpace(url)

	switch {
	case ownerEmail == "":
		return nil, apperror.ValidationFailed("email", "email is required")
	case githubUsername == "":
		return nil, apperror.ValidationFailed("github_username", "github_username is required")
	case url == "":
		return nil, apperror.ValidationFailed("url", "url is required")
	}

	p := &model.Portfolio{
		GitHubUsername: githubUsername,
		PublicURL:      url,
	}
	if err := s.repo.CreatePortfolio(ctx, ownerEmail, p); err != nil {
		return nil, fmt.Errorf("service/portfolio: creating %s: %w", githubUsername, err)
	}

	s.logger.Info("portfolio created",
		slog.String("id", p.ID),
		slog.String("owner", ownerEmail),
		slog.String("github_username", githubUsername),
	)
	return p, nil
}

// Activate makes githubUsername the owner's only active portfolio.
func (s *PortfolioService) Activate(ctx context.Context, ownerEmail, githubUsername string) (*model.Portfolio, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	githubUsername = strings.TrimSpace(githubUsername)

	switch {
	case ownerEmail == "":
		return nil, apperror.ValidationFailed("email", "email is required")
	case githubUsername == "":
		return nil, apperror.ValidationFailed("github_username", "github_username is required")
	}

	p, err := s.repo.ActivatePortfolio(ctx, ownerEmail, githubUsername)
	if err != nil {
		return nil, fmt.Errorf("service/portfolio: activating %s: %w", githubUsername, err)
	}

	s.logger.Info("portfolio activated",
		slog.String("owner", ownerEmail),
		slog.String("github_username", p.GitHubUsername),
	)
	return p, nil
}

// Delete removes one of the owner's portfolios. It does not pick a new
// active portfolio; Remove does.
func (s *PortfolioService) Delete(ctx context.Context, ownerEmail, githubUsername string) (*model.Portfolio, error) {
	ownerEmail = strings.TrimSpace(ownerEmail)
	githubUsername = strings.TrimSpace(githubUsername)

	switch {
	case ownerEmail == "":
		return nil, apperror.ValidationFailed("email", "email is required")
	case githubUsername == "":
		return nil, apperror.ValidationFailed("github_username", "github_username is required")
	}

	p, err := s.repo.DeletePortfolio(ctx, ownerEmail, githubUsername)
	if err != nil {
		return nil, fmt.Errorf("service/portfolio: deleting %s: %w", githubUsername, err)
	}

	s.logger.Info("portfolio deleted",
		slog.String("owner", ownerEmail),
		slog.String("github_username", p.GitHubUsername),
	)
	return p, nil
}

// =========================================================================
// SELECTOR
// =========================================================================

// Register normalizes raw input, rejects usernames already registered by
// anyone, creates the portfolio with its share link and activates it.
func (s *PortfolioService) Register(ctx context.Context, ownerEmail, raw string) (*model.Portfolio, error) {
	username, err := NormalizeUsername(raw)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindPortfolio(ctx, username)
	switch {
	case err == nil:
		if strings.EqualFold(existing.OwnerEmail, ownerEmail) {
			return nil, apperror.Conflict(fmt.Sprintf("you have already added %s", existing.GitHubUsername))
		}
		return nil, apperror.Conflict(fmt.Sprintf("%s is unavailable: it belongs to another account", existing.GitHubUsername))
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/portfolio: checking %s: %w", username, err)
	}

	if _, err := s.Create(ctx, ownerEmail, username, s.PublicURL(username)); err != nil {
		return nil, err
	}

	return s.Activate(ctx, ownerEmail, username)
}

// Switch changes the owner's active portfolio.
func (s *PortfolioService) Switch(ctx context.Context, ownerEmail, githubUsername string) (*model.Portfolio, error) {
	return s.Activate(ctx, ownerEmail, githubUsername)
}

// RemoveResult reports what Remove deleted and which portfolio is active
// afterwards. Active is nil when the owner has none.
type RemoveResult struct {
	Deleted *model.Portfolio `json:"deleted"`
	Active  *model.Portfolio `json:"active"`
}

// Remove deletes a portfolio. When it was the active one, the most recently
// created remaining portfolio is activated in its place.
func (s *PortfolioService) Remove(ctx context.Context, ownerEmail, githubUsername string) (*RemoveResult, error) {
	deleted, err := s.Delete(ctx, ownerEmail, githubUsername)
	if err != nil {
		return nil, err
	}

	remaining, err := s.List(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}

	result := &RemoveResult{Deleted: deleted}

	if !deleted.IsActive {
		result.Active = activeOf(remaining)
		return result, nil
	}
	if len(remaining) == 0 {
		s.logger.Info("owner has no portfolios left", slog.String("owner", ownerEmail))
		return result, nil
	}

	// Listing is oldest first, so the newest is last.
	next := remaining[len(remaining)-1]
	active, err := s.Activate(ctx, ownerEmail, next.GitHubUsername)
	if err != nil {
		return nil, err
	}
	result.Active = active
	return result, nil
}

// Active returns the owner's active portfolio, or nil when there is none.
func (s *PortfolioService) Active(ctx context.Context, ownerEmail string) (*model.Portfolio, error) {
	list, err := s.List(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	return activeOf(list), nil
}

func activeOf(list []model.Portfolio) *model.Portfolio {
	for i := range list {
		if list[i].IsActive {
			p := list[i]
			return &p
		}
	}
	return nil
}
