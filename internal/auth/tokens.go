// Package auth issues and verifies session tokens and attaches the
// authenticated principal to request contexts.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/luminosmc/luminos-community/internal/domain"
)

// ErrInvalidToken indicates a token that is malformed, forged or signed with another key.
var ErrInvalidToken = errors.New("invalid token")

// MinSecretLength is the minimum HS256 key length in bytes.
const MinSecretLength = 32

// Claims is the JWT payload of a session token. The registered "jti" claim
// carries the session id and "sub" the principal id.
type Claims struct {
	Kind domain.PrincipalKind `json:"kind"`
	jwt.RegisteredClaims
}

// SessionID returns the session id carried by the token.
func (c *Claims) SessionID() string {
	return c.ID
}

// PrincipalID returns the principal id carried by the token.
func (c *Claims) PrincipalID() string {
	return c.Subject
}

// TokenIssuer signs and parses HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. The secret must be at least MinSecretLength bytes.
func NewTokenIssuer(secret, issuer string) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// Issue signs a token for the given session.
func (t *TokenIssuer) Issue(sessionID, principalID string, kind domain.PrincipalKind, expiresAt time.Time) (string, error) {
	now := t.now()
	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   principalID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, issuer and expiry of token.
// An expired token yields domain.ErrSessionExpired, anything else ErrInvalidToken.
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.Subject == "" || !claims.Kind.Valid() {
		return nil, fmt.Errorf("%w: missing session claims", ErrInvalidToken)
	}
	return claims, nil
}
