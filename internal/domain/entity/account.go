// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Account is a persisted user identity together with its active sessions.
type Account struct {
	ID           uuid.UUID      // Assigned at creation, never changes.
	Email        string         // Unique across all accounts, used as the login identifier.
	Username     string         // Free-form display handle.
	FirstName    string         // Optional given name.
	LastName     string         // Optional family name.
	PasswordHash string         // bcrypt output; never empty once persisted, never sent to clients.
	Tokens       []SessionToken // Currently valid sessions in issue order.
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionToken is the stored back-reference to an issued session token.
// Only the SHA-256 hash of the raw token is kept.
type SessionToken struct {
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt *time.Time // nil when sessions do not expire
}

// Expired reports whether the session has passed its expiry at the given instant.
func (t SessionToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// HasToken reports whether the hash is in the account's session collection.
func (a *Account) HasToken(hash string, equal func(a, b string) bool) bool {
	for _, token := range a.Tokens {
		if equal(token.TokenHash, hash) {
			return true
		}
	}

	return false
}

// RemoveToken drops the session with the given hash and reports whether one was removed.
func (a *Account) RemoveToken(hash string) bool {
	for i, token := range a.Tokens {
		if token.TokenHash == hash {
			a.Tokens = append(a.Tokens[:i:i], a.Tokens[i+1:]...)

			return true
		}
	}

	return false
}

// PruneExpired drops sessions that expired before now and returns how many were removed.
func (a *Account) PruneExpired(now time.Time) int {
	kept := a.Tokens[:0:0]
	for _, token := range a.Tokens {
		if !token.Expired(now) {
			kept = append(kept, token)
		}
	}
	removed := len(a.Tokens) - len(kept)
	a.Tokens = kept

	return removed
}
