package service

import (
	"context"
	"errors"
	"strings"

	"tourbook/internal/auth"
	"tourbook/internal/domain"
	"tourbook/internal/models"
	"tourbook/internal/validation"

	"github.com/rs/zerolog"
)

// UserService resolves bearer tokens into accounts and provisions accounts
// for the operator tooling.
type UserService struct {
	repo   domain.UserRepository
	tokens *auth.TokenManager
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, tokens *auth.TokenManager, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

// Authenticate verifies the token and loads a live account for it.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.Unauthorized("not authorized, no token")
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Rejected bearer token")
		return nil, domain.Unauthorized("not authorized, token failed")
	}

	user, err := s.repo.GetUser(ctx, claims.UserID())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unauthorized("not authorized, user not found")
	}
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, domain.Unauthorized("not authorized, user not found")
	}
	return user, nil
}

// IssueToken signs a token for the account registered under email.
func (s *UserService) IssueToken(ctx context.Context, email string) (string, *models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if user.IsDeleted() {
		return "", nil, domain.NotFound("user")
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("Token issued")
	return token, user, nil
}

func (s *UserService) SaveUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := validation.Struct(user); err != nil {
		return err
	}
	return s.repo.UpsertUser(ctx, user)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.repo.SoftDeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", id).Msg("User deactivated")
	return nil
}
