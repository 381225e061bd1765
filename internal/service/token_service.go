package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/complyvault/evidence-api/internal/models"
	appErrors "github.com/complyvault/evidence-api/pkg/errors"
)

// TokenService validates caller tokens. Tokens are issued by the platform's
// identity service; this side only verifies and extracts the tenant context.
type TokenService struct {
	secret []byte
}

// NewTokenService constructs the service.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// ValidateToken parses and verifies an access token. A token without a
// tenant or actor claim is refused even when the signature is valid.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.TenantID == "" {
		return nil, appErrors.ErrForbidden
	}
	if claims.ActorID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing actor identity")
	}
	return claims, nil
}

// IssueToken mints a signed token for the given claims. Intended for tests
// and local tooling, not production issuance.
func (s *TokenService) IssueToken(claims *models.JWTClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", appErrors.FromError(err)
	}
	return signed, nil
}
