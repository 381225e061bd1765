package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyvault/evidence-api/internal/models"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")
	issued, err := svc.IssueToken(&models.JWTClaims{
		TenantID: "tenant-1",
		ActorID:  "officer-1",
		Role:     models.RoleComplianceOfficer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(issued)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "officer-1", claims.ActorID)
	assert.Equal(t, models.RoleComplianceOfficer, claims.Role)
}

func TestTokenServiceRejectsWrongSecret(t *testing.T) {
	issued, err := NewTokenService("secret-a").IssueToken(&models.JWTClaims{
		TenantID: "tenant-1",
		ActorID:  "officer-1",
	})
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").ValidateToken(issued)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService("test-secret")
	issued, err := svc.IssueToken(&models.JWTClaims{
		TenantID: "tenant-1",
		ActorID:  "officer-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(issued)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRequiresTenant(t *testing.T) {
	svc := NewTokenService("test-secret")
	issued, err := svc.IssueToken(&models.JWTClaims{ActorID: "officer-1"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(issued)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTokenServiceRequiresActor(t *testing.T) {
	svc := NewTokenService("test-secret")
	issued, err := svc.IssueToken(&models.JWTClaims{TenantID: "tenant-1"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(issued)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
