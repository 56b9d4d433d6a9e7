package httpkit

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenType marks access tokens. Refresh tokens are opaque and never JWTs.
const AccessTokenType = "access"

var ErrInvalidAccessToken = errors.New(errInvalidToken)

// AccessClaims are the claims of an access token. Roles are not carried;
// they are resolved per workspace.
type AccessClaims struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// SignAccessToken issues an HS256 access token for userID.
func SignAccessToken(secret string, userID uuid.UUID, email string, issuedAt, expiresAt time.Time) (string, error) {
	claims := AccessClaims{
		Email: email,
		Type:  AccessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseAccessToken verifies raw and returns the subject and claims. Tokens
// without an expiry, of another type or with a non-UUID subject are rejected.
func ParseAccessToken(raw, secret string) (uuid.UUID, AccessClaims, error) {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, AccessClaims{}, ErrInvalidAccessToken
	}
	if claims.Type != AccessTokenType {
		return uuid.Nil, AccessClaims{}, ErrInvalidAccessToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, AccessClaims{}, ErrInvalidAccessToken
	}
	return userID, claims, nil
}
