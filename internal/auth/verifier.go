// Package auth verifies the bearer credential a client presents when it
// opens its websocket. The token only names an identity; the user store
// stays authoritative for the account itself.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/huddlehq/relay/internal/core"
	"github.com/huddlehq/relay/internal/domain"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// Claims mirrors what the account service puts into access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Verifier checks HS256 tokens and resolves the subject against the store.
type Verifier struct {
	secret []byte
	users  core.UserSource
}

func NewVerifier(secret string, users core.UserSource) *Verifier {
	return &Verifier{secret: []byte(secret), users: users}
}

// Verify implements core.CredentialVerifier. A token naming an unknown
// user is as invalid as a bad signature.
func (v *Verifier) Verify(ctx context.Context, credential string) (*domain.User, error) {
	if credential == "" {
		return nil, ErrMissingCredential
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if claims.UserID == "" {
		return nil, ErrInvalidCredential
	}

	user, err := v.users.UserByID(ctx, domain.UserID(claims.UserID))
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// Sign mints a token for the given user. The relay never issues tokens in
// production; this mirrors the account service's format for tests and
// local tooling.
func Sign(secret string, user domain.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   string(user.ID),
		Username: user.Username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
