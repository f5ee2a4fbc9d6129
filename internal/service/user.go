// Package service holds the business rules of gitfolio.
//
//	Handler (HTTP) → Service (rules, orchestration) → Repository (SQL)
//
// Services take repository interfaces, never concrete stores, so tests run
// against in-memory fakes and main.go decides between SQLite and Postgres.
// They accept plain values and return apperror values; HTTP status codes are
// the handler package's concern.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/repository"
)

const (
	MaxUsernameLength = 64
	MaxNameLength     = 200
	MaxEmailLength    = 254
)

// UserService manages identities.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and stores a new identity. A duplicate email is reported
// as apperror.ErrConflict.
func (s *UserService) Create(ctx context.Context, username, email, name string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Name:     name,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.String("id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "id is required")
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: fetching user %s: %w", id, err)
	}
	return user, nil
}

// FindByEmail resolves an email to its identity. An unknown email is
// apperror.ErrNotFound; callers that treat "no account" as a normal outcome
// check for it with errors.Is.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	user, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/user: finding user: %w", err)
	}
	return user, nil
}

// List returns every identity. Administrative only.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return users, nil
}

// Update merges the supplied fields into the stored identity. Fields left nil
// are retained; supplied fields are validated like on Create. An update with
// no fields writes nothing and returns the stored identity.
func (s *UserService) Update(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "id is required")
	}
	if upd.Empty() {
		return s.Get(ctx, id)
	}

	if upd.Username != nil {
		v := strings.TrimSpace(*upd.Username)
		if err := validateUsername(v); err != nil {
			return nil, err
		}
		upd.Username = &v
	}
	if upd.Email != nil {
		v := strings.TrimSpace(*upd.Email)
		if err := validateEmail(v); err != nil {
			return nil, err
		}
		upd.Email = &v
	}
	if upd.Name != nil {
		v := strings.TrimSpace(*upd.Name)
		if err := validateName(v); err != nil {
			return nil, err
		}
		upd.Name = &v
	}

	user, err := s.repo.UpdateUser(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", id, err)
	}

	s.logger.Info("user updated", slog.String("id", id))
	return user, nil
}

// Delete removes an identity. Identities that still own portfolios are
// refused with apperror.ErrConflict.
func (s *UserService) Delete(ctx context.Context, id string) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "id is required")
	}

	user, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			s.logger.Warn("refused to delete user with portfolios", slog.String("id", id))
		}
		return nil, fmt.Errorf("service/user: deleting user %s: %w", id, err)
	}

	s.logger.Info("user deleted", slog.String("id", id), slog.String("email", user.Email))
	return user, nil
}

func validateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", MaxEmailLength))
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "email is not a valid address")
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	return nil
}
