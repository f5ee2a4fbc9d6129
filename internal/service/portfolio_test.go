package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/model"
)

func newTestPortfolioService(t *testing.T, emails ...string) (*PortfolioService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	for _, email := range emails {
		require.NoError(t, store.CreateUser(context.Background(), &model.User{Username: email, Email: email, Name: email}))
	}
	return NewPortfolioService(store, "https://gitfolio.test/", testLogger()), store
}

// =========================================================================
// NORMALIZATION
// =========================================================================

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"octocat", "octocat", false},
		{"  octocat  ", "octocat", false},
		{"https://github.com/octocat", "octocat", false},
		{"https://github.com/octocat/", "octocat", false},
		{"https://github.com/octocat/hello-world/tree/main", "octocat", false},
		{"github.com/octocat", "octocat", false},
		{"http://www.github.com/Octo-Cat", "Octo-Cat", false},
		{"github.com/github.com/octocat", "octocat", false},
		{"https://github.com/https://github.com/octocat/repo", "octocat", false},
		{"", "", true},
		{"   ", "", true},
		{"https://github.com/", "", true},
		{"octo/cat", "", true},
		{"https://gitlab.com/octocat", "", true},
		{"httpbin", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeUsername(tt.raw)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperror.ErrValidation), "NormalizeUsername(%q) error = %v", tt.raw, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =========================================================================
// REGISTRY
// =========================================================================

func TestPortfolioService_Create_Validation(t *testing.T) {
	svc, _ := newTestPortfolioService(t, "a@x.com")

	tests := []struct {
		name, email, username, url, field string
	}{
		{"missing email", "", "gh", "u", "email"},
		{"missing username", "a@x.com", " ", "u", "github_username"},
		{"missing url", "a@x.com", "gh", "", "url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.email, tt.username, tt.url)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr), "got %v", err)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestPortfolioService_Create_UnknownOwner(t *testing.T) {
	svc, _ := newTestPortfolioService(t)

	_, err := svc.Create(context.Background(), "ghost@x.com", "gh", "u")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPortfolioService_Exists(t *testing.T) {
	svc, _ := newTestPortfolioService(t, "a@x.com")
	_, err := svc.Create(context.Background(), "a@x.com", "alice-gh", "u")
	require.NoError(t, err)

	ok, err := svc.Exists(context.Background(), "alice-gh")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(context.Background(), "bob-gh")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Exists(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// Scenario: create identity, create portfolio inactive, activate it.
func TestPortfolioService_CreateThenActivate(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com")

	p, err := svc.Create(context.Background(), "a@x.com", "alice-gh", "https://example/alice-gh")
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.Empty(t, store.activeFor("a@x.com"))

	active, err := svc.Activate(context.Background(), "a@x.com", "alice-gh")
	require.NoError(t, err)
	assert.True(t, active.IsActive)
	assert.Equal(t, []string{"alice-gh"}, store.activeFor("a@x.com"))
}

// Scenario: a second identity cannot take a registered username.
func TestPortfolioService_CreateConflictLeavesOriginal(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com", "b@x.com")

	_, err := svc.Create(context.Background(), "a@x.com", "alice-gh", "https://example/alice-gh")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "b@x.com", "alice-gh", "https://example/other")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	p, err := store.FindPortfolio(context.Background(), "alice-gh")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", p.OwnerEmail)
	assert.Equal(t, "https://example/alice-gh", p.PublicURL)
}

// Scenario: activating a username the caller does not own fails and the
// caller's current active portfolio stays active.
func TestPortfolioService_ActivateFailureKeepsActive(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com", "b@x.com")
	svc.Create(context.Background(), "a@x.com", "alice-gh", "u1")
	svc.Create(context.Background(), "b@x.com", "bob-gh", "u2")
	_, err := svc.Activate(context.Background(), "a@x.com", "alice-gh")
	require.NoError(t, err)

	_, err = svc.Activate(context.Background(), "a@x.com", "bob-gh")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, []string{"alice-gh"}, store.activeFor("a@x.com"))

	_, err = svc.Activate(context.Background(), "a@x.com", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// SELECTOR
// =========================================================================

func TestPortfolioService_Register(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com")

	p, err := svc.Register(context.Background(), "a@x.com", "https://github.com/octocat/repo")
	require.NoError(t, err)
	assert.Equal(t, "octocat", p.GitHubUsername)
	assert.True(t, p.IsActive)

	stored, err := store.FindPortfolio(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "https://gitfolio.test/octocat", stored.PublicURL)

	// A second registration becomes the active one.
	_, err = svc.Register(context.Background(), "a@x.com", "hubot")
	require.NoError(t, err)
	assert.Equal(t, []string{"hubot"}, store.activeFor("a@x.com"))
}

func TestPortfolioService_Register_Duplicates(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com", "b@x.com")
	_, err := svc.Register(context.Background(), "a@x.com", "octocat")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "a@x.com", "OctoCat")
	require.ErrorIs(t, err, apperror.ErrConflict)
	assert.Contains(t, err.Error(), "already added")

	_, err = svc.Register(context.Background(), "b@x.com", "github.com/octocat")
	require.ErrorIs(t, err, apperror.ErrConflict)
	assert.Contains(t, err.Error(), "unavailable")

	all, _ := store.ListPortfolios(context.Background(), "")
	assert.Len(t, all, 1)
}

func TestPortfolioService_Register_Malformed(t *testing.T) {
	svc, _ := newTestPortfolioService(t, "a@x.com")

	_, err := svc.Register(context.Background(), "a@x.com", "https://gitlab.com/x")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestPortfolioService_Register_StoreFailure(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com")
	store.failNext = apperror.Store("finding portfolio", errors.New("connection reset"))

	_, err := svc.Register(context.Background(), "a@x.com", "octocat")
	assert.ErrorIs(t, err, apperror.ErrStore)
}

func TestPortfolioService_Switch(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com")
	svc.Register(context.Background(), "a@x.com", "one")
	svc.Register(context.Background(), "a@x.com", "two")

	p, err := svc.Switch(context.Background(), "a@x.com", "one")
	require.NoError(t, err)
	assert.Equal(t, "one", p.GitHubUsername)
	assert.Equal(t, []string{"one"}, store.activeFor("a@x.com"))
}

// Scenario: deleting the active portfolio activates the remaining one.
func TestPortfolioService_Remove_ActiveCascades(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com")
	svc.Create(context.Background(), "a@x.com", "alice-old", "u1")
	svc.Create(context.Background(), "a@x.com", "alice-gh", "u2")
	svc.Activate(context.Background(), "a@x.com", "alice-gh")

	res, err := svc.Remove(context.Background(), "a@x.com", "alice-gh")
	require.NoError(t, err)
	assert.Equal(t, "alice-gh", res.Deleted.GitHubUsername)
	require.NotNil(t, res.Active)
	assert.Equal(t, "alice-old", res.Active.GitHubUsername)
	assert.Equal(t, []string{"alice-old"}, store.activeFor("a@x.com"))
}

func TestPortfolioService_Remove_PicksNewestRemaining(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com")
	for _, name := range []string{"first", "second", "third"} {
		svc.Create(context.Background(), "a@x.com", name, "u-"+name)
	}
	svc.Activate(context.Background(), "a@x.com", "first")

	res, err := svc.Remove(context.Background(), "a@x.com", "first")
	require.NoError(t, err)
	require.NotNil(t, res.Active)
	assert.Equal(t, "third", res.Active.GitHubUsername)
	assert.Equal(t, []string{"third"}, store.activeFor("a@x.com"))
}

func TestPortfolioService_Remove_LastLeavesNone(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com")
	svc.Register(context.Background(), "a@x.com", "only")

	res, err := svc.Remove(context.Background(), "a@x.com", "only")
	require.NoError(t, err)
	assert.Nil(t, res.Active)
	assert.Empty(t, store.activeFor("a@x.com"))
}

func TestPortfolioService_Remove_InactiveKeepsActive(t *testing.T) {
	svc, store := newTestPortfolioService(t, "a@x.com")
	svc.Create(context.Background(), "a@x.com", "keep", "u1")
	svc.Create(context.Background(), "a@x.com", "drop", "u2")
	svc.Activate(context.Background(), "a@x.com", "keep")

	res, err := svc.Remove(context.Background(), "a@x.com", "drop")
	require.NoError(t, err)
	require.NotNil(t, res.Active)
	assert.Equal(t, "keep", res.Active.GitHubUsername)
	assert.Equal(t, []string{"keep"}, store.activeFor("a@x.com"))
}

func TestPortfolioService_Remove_NotFound(t *testing.T) {
	svc, _ := newTestPortfolioService(t, "a@x.com")

	_, err := svc.Remove(context.Background(), "a@x.com", "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPortfolioService_Active(t *testing.T) {
	svc, _ := newTestPortfolioService(t, "a@x.com")

	p, err := svc.Active(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, p)

	svc.Register(context.Background(), "a@x.com", "octocat")
	p, err = svc.Active(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "octocat", p.GitHubUsername)
}
