package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore keeps users and portfolios in memory and implements both
// repository interfaces with the same rules the SQL store enforces. failNext
// lets a test inject a store error into the next call.

var (
	_ repository.UserRepository      = (*fakeStore)(nil)
	_ repository.PortfolioRepository = (*fakeStore)(nil)
)

type fakeStore struct {
	mu         sync.Mutex
	users      []*model.User
	portfolios []*model.Portfolio
	seq        int
	base       time.Time
	failNext   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{base: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func (f *fakeStore) injected() error {
	err := f.failNext
	f.failNext = nil
	return err
}

// tick returns a strictly increasing timestamp so creation order is stable.
func (f *fakeStore) tick() time.Time {
	f.seq++
	return f.base.Add(time.Duration(f.seq) * time.Second)
}

func (f *fakeStore) userByEmail(email string) *model.User {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return err
	}
	if f.userByEmail(user.Email) != nil {
		return apperror.Conflict("email already registered")
	}
	now := f.tick()
	user.ID = fmt.Sprintf("user-%d", f.seq)
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	f.users = append(f.users, &stored)
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return nil, err
	}
	if u := f.userByEmail(email); u != nil {
		c := *u
		return &c, nil
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) ListUsers(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return nil, err
	}
	out := []model.User{}
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.ID != id {
			continue
		}
		if upd.Email != nil {
			if other := f.userByEmail(*upd.Email); other != nil && other.ID != id {
				return nil, apperror.Conflict("email already registered")
			}
			u.Email = *upd.Email
		}
		if upd.Username != nil {
			u.Username = *upd.Username
		}
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		u.UpdatedAt = f.tick()
		c := *u
		return &c, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return nil, err
	}
	for i, u := range f.users {
		if u.ID != id {
			continue
		}
		for _, p := range f.portfolios {
			if p.OwnerID == id {
				return nil, apperror.Conflict("user still owns portfolios")
			}
		}
		f.users = append(f.users[:i], f.users[i+1:]...)
		return u, nil
	}
	return nil, apperror.NotFound("user", id)
}

func (f *fakeStore) ListPortfolios(_ context.Context, ownerEmail string) ([]model.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return nil, err
	}
	out := []model.Portfolio{}
	for _, p := range f.portfolios {
		if ownerEmail == "" || p.OwnerEmail == ownerEmail {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeStore) PortfolioExists(_ context.Context, githubUsername string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return false, err
	}
	return f.portfolioByName(githubUsername) != nil, nil
}

func (f *fakeStore) portfolioByName(name string) *model.Portfolio {
	for _, p := range f.portfolios {
		if strings.EqualFold(p.GitHubUsername, name) {
			return p
		}
	}
	return nil
}

func (f *fakeStore) FindPortfolio(_ context.Context, githubUsername string) (*model.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return nil, err
	}
	if p := f.portfolioByName(githubUsername); p != nil {
		c := *p
		return &c, nil
	}
	return nil, apperror.NotFound("portfolio", githubUsername)
}

func (f *fakeStore) CreatePortfolio(_ context.Context, ownerEmail string, p *model.Portfolio) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return err
	}
	owner := f.userByEmail(ownerEmail)
	if owner == nil {
		return apperror.NotFound("user", ownerEmail)
	}
	if f.portfolioByName(p.GitHubUsername) != nil {
		return apperror.Conflict("username already in use")
	}
	p.CreatedAt = f.tick()
	p.ID = fmt.Sprintf("pf-%d", f.seq)
	p.OwnerID = owner.ID
	p.OwnerEmail = owner.Email
	p.IsActive = false
	stored := *p
	f.portfolios = append(f.portfolios, &stored)
	return nil
}

func (f *fakeStore) owned(ownerEmail, githubUsername string) (*model.Portfolio, int, error) {
	if f.userByEmail(ownerEmail) == nil {
		return nil, -1, apperror.NotFound("user", ownerEmail)
	}
	for i, p := range f.portfolios {
		if p.OwnerEmail == ownerEmail && strings.EqualFold(p.GitHubUsername, githubUsername) {
			return p, i, nil
		}
	}
	return nil, -1, apperror.NotFound("portfolio", githubUsername)
}

func (f *fakeStore) ActivatePortfolio(_ context.Context, ownerEmail, githubUsername string) (*model.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return nil, err
	}
	target, _, err := f.owned(ownerEmail, githubUsername)
	if err != nil {
		return nil, err
	}
	for _, p := range f.portfolios {
		if p.OwnerID == target.OwnerID {
			p.IsActive = p.ID == target.ID
		}
	}
	c := *target
	return &c, nil
}

func (f *fakeStore) DeletePortfolio(_ context.Context, ownerEmail, githubUsername string) (*model.Portfolio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected(); err != nil {
		return nil, err
	}
	target, i, err := f.owned(ownerEmail, githubUsername)
	if err != nil {
		return nil, err
	}
	f.portfolios = append(f.portfolios[:i], f.portfolios[i+1:]...)
	return target, nil
}

// activeFor lists the usernames currently active for ownerEmail.
func (f *fakeStore) activeFor(ownerEmail string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, p := range f.portfolios {
		if p.OwnerEmail == ownerEmail && p.IsActive {
			names = append(names, p.GitHubUsername)
		}
	}
	return names
}
