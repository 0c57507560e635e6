package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims defines the claims carried by a session token.
// Subject holds the account id and ID holds a per-token random identifier.
type Claims struct {
	jwt.RegisteredClaims
}

// AccountID parses the subject claim.
func (c *Claims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// IssuedToken is a freshly signed session token with the metadata the store keeps for it.
type IssuedToken struct {
	Token     string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

// TokenService signs and parses self-describing session tokens.
type TokenService interface {
	// Issue signs a new token bound to the account.
	Issue(accountID uuid.UUID) (*IssuedToken, error)

	// Parse verifies the signature, issuer and expiry of a token and returns its claims.
	Parse(token string) (*Claims, error)

	// HashToken returns the stored representation of a raw token.
	HashToken(token string) string

	// EqualHash compares two token hashes in constant time.
	EqualHash(a, b string) bool
}
