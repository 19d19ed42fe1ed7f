package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/incident-api/internal/dto"
	"github.com/noah-isme/incident-api/internal/models"
	"github.com/noah-isme/incident-api/internal/observability"
	"github.com/noah-isme/incident-api/internal/repository"
)

// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService authenticates admins and manages their accounts.
type AuthService interface {
	SignIn(ctx context.Context, req dto.SignInRequest) (dto.SignInResponse, error)
	CreateAdmin(ctx context.Context, username, password string) (models.AdminUser, error)
	EnsureAdmin(ctx context.Context, username, password string) error
	ResetPassword(ctx context.Context, username, password string) error
}

type authService struct {
	users     repository.UserRepository
	tokens    TokenService
	validator *validator.Validate
	logger    zerolog.Logger
	cost      int
}

// NewAuthService constructs the admin authentication service.
func NewAuthService(users repository.UserRepository, tokens TokenService, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		users:     users,
		tokens:    tokens,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		cost:      bcrypt.DefaultCost,
	}
}

func (s *authService) SignIn(ctx context.Context, req dto.SignInRequest) (dto.SignInResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Struct(req); err != nil {
		return dto.SignInResponse{}, err
	}

	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.AuthAttempts().WithLabelValues("rejected").Inc()
			return dto.SignInResponse{}, ErrInvalidCredentials
		}
		return dto.SignInResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		observability.AuthAttempts().WithLabelValues("rejected").Inc()
		return dto.SignInResponse{}, ErrInvalidCredentials
	}

	token, identity, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return dto.SignInResponse{}, err
	}

	observability.AuthAttempts().WithLabelValues("accepted").Inc()
	s.logger.Info().Uint("user_id", user.ID).Msg("admin signed in")

	return dto.SignInResponse{Token: token, ExpiresAt: identity.ExpiresAt}, nil
}

func (s *authService) CreateAdmin(ctx context.Context, username, password string) (models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return models.AdminUser{}, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.AdminUser{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.AdminUser{Username: username, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, &user); err != nil {
		return models.AdminUser{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("admin account created")
	return user, nil
}

// EnsureAdmin creates the bootstrap admin when it does not exist yet. Existing accounts are left untouched.
func (s *authService) EnsureAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}

	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	_, err = s.CreateAdmin(ctx, username, password)
	return err
}

// ResetPassword replaces the password of an existing admin. Tokens issued before
// the reset stay valid until they expire.
func (s *authService) ResetPassword(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("admin %q does not exist: %w", username, err)
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("admin password reset")
	return nil
}
