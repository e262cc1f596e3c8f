// Package auth issues and verifies the bearer tokens handed out at login.
package auth

import (
	"errors"
	"time"

	"revisionaid/internal/config"
	"revisionaid/internal/models"
	contextutils "revisionaid/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the token payload. It carries enough to build a Principal without
// a database round trip.
type Claims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	IsParent bool   `json:"is_parent"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A zero ttl uses AuthTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "jwt secret is not configured")
	}
	if ttl <= 0 {
		ttl = config.AuthTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for p.
func (i *TokenIssuer) Issue(p models.Principal) (string, error) {
	now := i.now()
	claims := Claims{
		Email:    p.Email,
		Name:     p.Name,
		IsParent: p.IsParent,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    config.TokenIssuer,
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to sign token")
	}
	return signed, nil
}

// Verify parses token and returns its principal. Expired, malformed or
// foreign tokens are UNAUTHORIZED.
func (i *TokenIssuer) Verify(token string) (*models.Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.TokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		details := "invalid token"
		if errors.Is(err, jwt.ErrTokenExpired) {
			details = "token expired"
		}
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeUnauthorized, contextutils.SeverityWarn,
			contextutils.ErrUnauthorized.Message, details, err)
	}
	if claims.Email == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeUnauthorized, contextutils.SeverityWarn,
			contextutils.ErrUnauthorized.Message, "token has no email")
	}
	return &models.Principal{Email: claims.Email, Name: claims.Name, IsParent: claims.IsParent}, nil
}
