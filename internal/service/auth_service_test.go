package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/incident-api/internal/dto"
	"github.com/noah-isme/incident-api/internal/repository"
)

func newTestAuthService(t *testing.T) (*authService, TokenService, repository.UserRepository) {
	t.Helper()
	db := setupServiceTestDB(t)
	users := repository.NewUserRepository(db)
	tokens, err := NewTokenService("auth-test-secret", 30*24*time.Hour)
	require.NoError(t, err)

	svc := NewAuthService(users, tokens, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop()).(*authService)
	svc.cost = bcrypt.MinCost
	return svc, tokens, users
}

func TestAuthServiceSignInIssuesVerifiableToken(t *testing.T) {
	svc, tokens, _ := newTestAuthService(t)
	ctx := context.Background()

	admin, err := svc.CreateAdmin(ctx, "admin", "s3cret")
	require.NoError(t, err)

	resp, err := svc.SignIn(ctx, dto.SignInRequest{Username: " admin ", Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	identity, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	require.Equal(t, admin.ID, identity.ID)
	require.Equal(t, "admin", identity.Username)
	require.Equal(t, tokens.TTL(), identity.ExpiresAt.Sub(identity.IssuedAt))
}

func TestAuthServiceSignInRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "admin", "s3cret")
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, dto.SignInRequest{Username: "admin", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, dto.SignInRequest{Username: "ghost", Password: "s3cret"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, dto.SignInRequest{Username: "admin"})
	require.True(t, IsValidationError(err))
}

func TestAuthServiceEnsureAdminIsIdempotent(t *testing.T) {
	svc, _, users := newTestAuthService(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureAdmin(ctx, "root", "first"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "second"))

	user, err := users.FindByUsername(ctx, "root")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("first")))

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
}

func TestAuthServiceCreateAdminStoresHash(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	user, err := svc.CreateAdmin(context.Background(), "ops", "password")
	require.NoError(t, err)
	require.NotEqual(t, "password", user.PasswordHash)

	_, err = svc.CreateAdmin(context.Background(), "  ", "password")
	require.ErrorIs(t, err, ErrValidation)
}

func TestAuthServiceResetPassword(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateAdmin(ctx, "ops", "old-password")
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, "ops", "new-password"))

	_, err = svc.SignIn(ctx, dto.SignInRequest{Username: "ops", Password: "old-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, dto.SignInRequest{Username: "ops", Password: "new-password"})
	require.NoError(t, err)

	require.Error(t, svc.ResetPassword(ctx, "ghost", "pw"))
	require.ErrorIs(t, svc.ResetPassword(ctx, "ops", ""), ErrValidation)
}
