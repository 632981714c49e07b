// Package auth verifies bearer tokens and carries the authenticated
// principal through the request context. Token issuance (login, signup)
// belongs to an external identity service; this package only consumes
// its tokens.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrEmptyUserID is returned when a token is signed for an empty subject.
	ErrEmptyUserID = errors.New("empty user id")
	// ErrInvalidToken is returned when token verification fails.
	ErrInvalidToken = errors.New("invalid token")
)

type tokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens whose subject is the user ID.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Sign issues a token for the given user. Used by tooling and tests; the
// production issuer lives outside this service.
func (m *TokenManager) Sign(userID int64, role string) (string, error) {
	const op = "auth.TokenManager.Sign"

	if userID == 0 {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyUserID)
	}

	now := time.Now()
	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: failed to sign token: %w", op, err)
	}

	return token, nil
}

// Verify parses and validates a token, returning the identity it carries.
func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	const op = "auth.TokenManager.Verify"

	var claims tokenClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w: malformed subject", op, ErrInvalidToken)
	}

	return Identity{
		UserID: userID,
		Role:   claims.Role,
	}, nil
}
