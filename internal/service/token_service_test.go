package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, ttl time.Duration, now time.Time) *tokenService {
	t.Helper()
	svc, err := NewTokenService("unit-test-secret", ttl)
	require.NoError(t, err)
	impl := svc.(*tokenService)
	impl.now = func() time.Time { return now }
	return impl
}

func TestTokenServiceIssueThenVerify(t *testing.T) {
	ttl := 30 * 24 * time.Hour
	svc := newTestTokenService(t, ttl, time.Now())

	token, issued, err := svc.Issue(7, "triage-admin")
	require.NoError(t, err)

	identity, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, uint(7), identity.ID)
	require.Equal(t, "triage-admin", identity.Username)
	require.Equal(t, ttl, identity.ExpiresAt.Sub(identity.IssuedAt))
	require.Equal(t, issued.ExpiresAt, identity.ExpiresAt)
}

func TestTokenServiceExpiredTokenReportsExpired(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, time.Hour, issuedAt)

	token, _, err := svc.Issue(1, "admin")
	require.NoError(t, err)

	for _, offset := range []time.Duration{time.Hour, time.Hour + time.Second, 48 * time.Hour} {
		svc.now = func() time.Time { return issuedAt.Add(offset) }
		_, err = svc.Verify(token)
		require.ErrorIs(t, err, ErrTokenExpired, "offset %s", offset)
	}

	svc.now = func() time.Time { return issuedAt.Add(time.Hour - time.Second) }
	_, err = svc.Verify(token)
	require.NoError(t, err)
}

func TestTokenServiceTamperedTokenReportsInvalid(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, time.Now())

	token, _, err := svc.Issue(1, "admin")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	signature := []byte(parts[2])
	if signature[0] == 'A' {
		signature[0] = 'B'
	} else {
		signature[0] = 'A'
	}
	tampered := strings.Join([]string{parts[0], parts[1], string(signature)}, ".")

	_, err = svc.Verify(tampered)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenServiceRejectsForeignSecretAndGarbage(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, time.Now())

	other, err := NewTokenService("another-secret", time.Hour)
	require.NoError(t, err)
	foreign, _, err := other.Issue(1, "admin")
	require.NoError(t, err)

	_, err = svc.Verify(foreign)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Verify("not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Verify("")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenServiceRejectsUnexpectedAlgorithm(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, time.Now())

	claims := identityClaims{
		UserID:   1,
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenServiceRequiresExpiry(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, time.Now())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": 1, "username": "admin"}).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewTokenServiceValidatesInput(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	require.Error(t, err)

	_, err = NewTokenService("secret", 0)
	require.Error(t, err)
}
