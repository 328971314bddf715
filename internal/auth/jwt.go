// Package auth provides session tokens, password hashing, Google sign-in and the
// identity middleware for the blog API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. The caller logs in with username/password (or finishes the Google flow)
//  2. The server issues a signed JWT and stores it in an HttpOnly "token" cookie
//  3. On every request the identity middleware reads the cookie, verifies the
//     token and places the caller's Identity in the request context
//  4. Handlers read the identity with IdentityFromContext
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<user id>","username":"...","name":"...","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/blog-platform/internal/model"
)

const issuer = "blog-platform"

// DefaultTokenTTL is used when NewTokenService receives a non-positive TTL.
const DefaultTokenTTL = 72 * time.Hour

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens and the lifetime
// of issued tokens. Both come from configuration.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the lifetime of issued tokens. The cookie MaxAge matches it.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. The user id lives in the standard "sub" claim;
// username and display name travel alongside so GET /user/profile needs no
// database round trip.
type claims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// Generate creates and signs a token for the given identity using the
// configured lifetime.
func (s *TokenService) Generate(id model.Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests (negative durations produce already-expired tokens).
func (s *TokenService) GenerateWithDuration(id model.Identity, d time.Duration) (string, error) {
	if id.ID == "" {
		return "", errors.New("auth: identity has no user id")
	}
	now := time.Now()

	c := claims{
		Username: id.Username,
		Name:     id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the identity it carries.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired, and carries an expiry at all
//   - Issuer matches "blog-platform"
//   - Algorithm is HS256 (rejects "none" and algorithm confusion)
func (s *TokenService) Validate(tokenStr string) (*model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &model.Identity{
		ID:       c.Subject,
		Username: c.Username,
		Name:     c.Name,
	}, nil
}
