package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc, err := NewTokenService(Config{Secret: "test-secret", Issuer: "fleetgrid"})
	require.NoError(t, err)

	token, err := svc.Issue("ops@example.com", "admin")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", claims.Subject)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, "fleetgrid", claims.Issuer)
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	issuer, err := NewTokenService(Config{Secret: "test-secret", TTL: time.Minute, Clock: func() time.Time { return issued }})
	require.NoError(t, err)

	token, err := issuer.Issue("ops@example.com", "")
	require.NoError(t, err)

	verifier, err := NewTokenService(Config{Secret: "test-secret"})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
}

func TestTokenServiceRejectsWrongSecretAndIssuer(t *testing.T) {
	svc, err := NewTokenService(Config{Secret: "test-secret", Issuer: "fleetgrid"})
	require.NoError(t, err)

	token, err := svc.Issue("ops@example.com", "")
	require.NoError(t, err)

	other, err := NewTokenService(Config{Secret: "another-secret"})
	require.NoError(t, err)
	_, err = other.Verify(token)
	require.Error(t, err)

	strict, err := NewTokenService(Config{Secret: "test-secret", Issuer: "different"})
	require.NoError(t, err)
	_, err = strict.Verify(token)
	require.Error(t, err)
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(Config{})
	require.Error(t, err)
}
