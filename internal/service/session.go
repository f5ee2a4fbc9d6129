package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/auth"
	"github.com/sakif/gitfolio/internal/model"
)

// SessionService turns an email into a signed-in session.
//
// Login is an identity lookup by email; there is no password. What the
// service adds is a signed, expiring session token, so the rest of the API
// trusts the token instead of a client-supplied marker.
type SessionService struct {
	users  *UserService
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewSessionService(users *UserService, tokens *auth.TokenService, logger *slog.Logger) *SessionService {
	return &SessionService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// SessionResult bundles the identity with its freshly issued token so the
// handler can set the cookie and respond in one step.
type SessionResult struct {
	User  *model.User
	Token string
}

// Login resolves email to an identity and issues a session for it.
func (s *SessionService) Login(ctx context.Context, email string) (*SessionResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("account", email)
		}
		return nil, err
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))
	return s.issue(user)
}

// Signup creates the identity and signs it in.
func (s *SessionService) Signup(ctx context.Context, username, email, name string) (*SessionResult, error) {
	user, err := s.users.Create(ctx, username, email, name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))
	return s.issue(user)
}

// Current returns the identity behind a validated session's user ID. A
// session whose identity has since been deleted is unauthorized.
func (s *SessionService) Current(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("session no longer refers to an account")
		}
		return nil, err
	}
	return user, nil
}

func (s *SessionService) issue(user *model.User) (*SessionResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/session: generating token for user %s: %w", user.ID, err)
	}
	return &SessionResult{User: user, Token: token}, nil
}
