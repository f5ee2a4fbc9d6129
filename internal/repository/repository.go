// Package repository declares the storage contracts the service layer depends on.
//
// Implementations translate storage failures into apperror values:
// missing rows become apperror.ErrNotFound, uniqueness violations become
// apperror.ErrConflict and everything else is wrapped as apperror.ErrStore.
package repository

import (
	"context"

	"github.com/sakif/gitfolio/internal/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error)
	// DeleteUser refuses with apperror.ErrConflict while the user owns portfolios.
	DeleteUser(ctx context.Context, id string) (*model.User, error)
}

type PortfolioRepository interface {
	// ListPortfolios returns the owner's portfolios, or every portfolio when
	// ownerEmail is empty, oldest first.
	ListPortfolios(ctx context.Context, ownerEmail string) ([]model.Portfolio, error)
	PortfolioExists(ctx context.Context, githubUsername string) (bool, error)
	// FindPortfolio looks a portfolio up by GitHub username regardless of owner.
	FindPortfolio(ctx context.Context, githubUsername string) (*model.Portfolio, error)
	CreatePortfolio(ctx context.Context, ownerEmail string, p *model.Portfolio) error
	// ActivatePortfolio makes exactly the named portfolio active for its owner.
	// On failure the owner's previous active portfolio is left untouched.
	ActivatePortfolio(ctx context.Context, ownerEmail, githubUsername string) (*model.Portfolio, error)
	DeletePortfolio(ctx context.Context, ownerEmail, githubUsername string) (*model.Portfolio, error)
}
