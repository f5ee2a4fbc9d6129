// Package github is a small read-only client for the GitHub REST API: a user's
// public profile, repositories, profile README and follower/following lists.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second

	// Only the first page is fetched; pagination is out of scope.
	reposPerPage = 100
	// FollowPerPage is the page size of follower and following listings.
	FollowPerPage = 30
)

// ErrNotFound is returned when GitHub answers 404 for the requested user.
var ErrNotFound = errors.New("github: not found")

// Options configures NewClient.
type Options struct {
	BaseURL string
	// Token is an optional personal access token. Unauthenticated requests
	// work but are rate limited much harder.
	Token   string
	Timeout time.Duration
}

// User is the subset of GET /users/{login} the profile view uses.
type User struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	HTMLURL     string    `json:"html_url"`
	Bio         string    `json:"bio"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Blog        string    `json:"blog"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repo is the subset of a repository object the profile view uses.
type Repo struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   string    `json:"description"`
	HTMLURL       string    `json:"html_url"`
	Language      string    `json:"language"`
	Stars         int       `json:"stargazers_count"`
	Forks         int       `json:"forks_count"`
	Fork          bool      `json:"fork"`
	Topics        []string  `json:"topics"`
	Homepage      string    `json:"homepage"`
	DefaultBranch string    `json:"default_branch"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Account is an entry of a follower or following listing.
type Account struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// Client talks to the GitHub REST API.
type Client struct {
	http *resty.Client
}

// NewClient builds a client. With a token, requests are authorised through an
// oauth2 static token source.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	httpClient := &http.Client{}
	if opts.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}

	rc := resty.NewWithClient(httpClient).
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28").
		SetHeader("User-Agent", "gitfolio")

	return &Client{http: rc}
}

// GetUser fetches a public profile.
func (c *Client) GetUser(ctx context.Context, login string) (*User, error) {
	var u User
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("login", login).
		SetResult(&u).
		Get("/users/{login}")
	if err != nil {
		return nil, fmt.Errorf("github: getting user %s: %w", login, err)
	}
	if err := checkResponse(resp, "getting user "+login); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListRepos returns the first page of the user's public repositories, newest
// first.
func (c *Client) ListRepos(ctx context.Context, login string) ([]Repo, error) {
	var repos []Repo
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("login", login).
		SetQueryParam("per_page", fmt.Sprint(reposPerPage)).
		SetQueryParam("page", "1").
		SetResult(&repos).
		Get("/users/{login}/repos")
	if err != nil {
		return nil, fmt.Errorf("github: listing repos of %s: %w", login, err)
	}
	if err := checkResponse(resp, "listing repos of "+login); err != nil {
		return nil, err
	}

	sort.SliceStable(repos, func(i, j int) bool {
		return repos[i].CreatedAt.After(repos[j].CreatedAt)
	})
	if repos == nil {
		repos = []Repo{}
	}
	return repos, nil
}

// GetReadme returns the raw markdown of the user's profile README (the
// <login>/<login> repository). A missing README yields "" and no error.
func (c *Client) GetReadme(ctx context.Context, login string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"owner": login, "repo": login}).
		SetHeader("Accept", "application/vnd.github.raw").
		Get("/repos/{owner}/{repo}/readme")
	if err != nil {
		return "", fmt.Errorf("github: getting readme of %s: %w", login, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", nil
	}
	if err := checkResponse(resp, "getting readme of "+login); err != nil {
		return "", err
	}
	return resp.String(), nil
}

// ListFollowers returns one page (1-based) of the user's followers.
func (c *Client) ListFollowers(ctx context.Context, login string, page int) ([]Account, error) {
	return c.listAccounts(ctx, "/users/{login}/followers", "listing followers of "+login, login, page)
}

// ListFollowing returns one page (1-based) of the accounts the user follows.
func (c *Client) ListFollowing(ctx context.Context, login string, page int) ([]Account, error) {
	return c.listAccounts(ctx, "/users/{login}/following", "listing following of "+login, login, page)
}

func (c *Client) listAccounts(ctx context.Context, path, op, login string, page int) ([]Account, error) {
	if page < 1 {
		page = 1
	}

	var accounts []Account
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("login", login).
		SetQueryParam("per_page", strconv.Itoa(FollowPerPage)).
		SetQueryParam("page", strconv.Itoa(page)).
		SetResult(&accounts).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("github: %s: %w", op, err)
	}
	if err := checkResponse(resp, op); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []Account{}
	}
	return accounts, nil
}

// TotalStars sums stargazers over repos.
func TotalStars(repos []Repo) int {
	total := 0
	for _, r := range repos {
		total += r.Stars
	}
	return total
}

func checkResponse(resp *resty.Response, op string) error {
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("github: %s: %w", op, ErrNotFound)
	}
	if resp.IsError() {
		return fmt.Errorf("github: %s: unexpected status %d", op, resp.StatusCode())
	}
	return nil
}
