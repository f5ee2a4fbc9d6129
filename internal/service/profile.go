package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/github"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/repository"
)

// GitHubReader is the part of the GitHub client the profile view needs.
// *github.Client implements it.
type GitHubReader interface {
	GetUser(ctx context.Context, login string) (*github.User, error)
	ListRepos(ctx context.Context, login string) ([]github.Repo, error)
	GetReadme(ctx context.Context, login string) (string, error)
	ListFollowers(ctx context.Context, login string, page int) ([]github.Account, error)
	ListFollowing(ctx context.Context, login string, page int) ([]github.Account, error)
}

// ProfileView is everything a public portfolio page shows.
type ProfileView struct {
	Portfolio  *model.Portfolio `json:"portfolio"`
	Profile    *github.User     `json:"profile"`
	Repos      []github.Repo    `json:"repos"`
	TotalStars int              `json:"total_stars"`
	Readme     string           `json:"readme"`
	// First page of each listing only.
	Followers []github.Account `json:"followers"`
	Following []github.Account `json:"following"`
}

// ProfileService renders registered portfolios from live GitHub data.
type ProfileService struct {
	portfolios repository.PortfolioRepository
	gh         GitHubReader
	logger     *slog.Logger
}

func NewProfileService(portfolios repository.PortfolioRepository, gh GitHubReader, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		portfolios: portfolios,
		gh:         gh,
		logger:     logger,
	}
}

// View builds the public view for username. Only registered usernames are
// served. Profile, repositories, README and the first page of followers and
// following are fetched concurrently; the first GitHub failure cancels the
// others.
func (s *ProfileService) View(ctx context.Context, username string) (*ProfileView, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	p, err := s.portfolios.FindPortfolio(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/profile: %w", err)
	}
	login := p.GitHubUsername

	view := &ProfileView{Portfolio: p}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.gh.GetUser(gctx, login)
		view.Profile = u
		return err
	})
	g.Go(func() error {
		repos, err := s.gh.ListRepos(gctx, login)
		view.Repos = repos
		return err
	})
	g.Go(func() error {
		md, err := s.gh.GetReadme(gctx, login)
		view.Readme = md
		return err
	})
	g.Go(func() error {
		accounts, err := s.gh.ListFollowers(gctx, login, 1)
		view.Followers = accounts
		return err
	})
	g.Go(func() error {
		accounts, err := s.gh.ListFollowing(gctx, login, 1)
		view.Following = accounts
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return nil, apperror.NotFound("github user", login)
		}
		s.logger.Error("github fetch failed",
			slog.String("github_username", login),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream("github", err)
	}

	if view.Repos == nil {
		view.Repos = []github.Repo{}
	}
	if view.Followers == nil {
		view.Followers = []github.Account{}
	}
	if view.Following == nil {
		view.Following = []github.Account{}
	}
	view.TotalStars = github.TotalStars(view.Repos)
	return view, nil
}
