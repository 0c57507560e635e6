// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"accounts/config"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost           int
	minLength      int
	forbiddenWords []string
}

// NewBcryptHasher is the constructor for bcryptHasher.
// The cost is clamped to bcrypt's accepted range; zero selects bcrypt.DefaultCost.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := 0
	if cfg.Auth != nil {
		cost = cfg.Auth.BcryptCost
	}

	hasher := &bcryptHasher{cost: clampCost(cost), minLength: 1}
	if cfg.PasswordPolicy != nil {
		hasher.minLength = max(cfg.PasswordPolicy.MinLength, 1)
		for _, word := range cfg.PasswordPolicy.ForbiddenWords {
			if word = strings.ToLower(strings.TrimSpace(word)); word != "" {
				hasher.forbiddenWords = append(hasher.forbiddenWords, word)
			}
		}
	}

	return hasher
}

func clampCost(cost int) int {
	switch {
	case cost <= 0:
		return bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		return bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		return bcrypt.MaxCost
	default:
		return cost
	}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", domainerrors.ErrPasswordPolicy.WithDetails("password is required")
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	// err is nil if the password and hash match.
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordStrength rejects empty, short, over-long and forbidden passwords.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	if password == "" {
		return domainerrors.ErrPasswordPolicy.WithDetails("password is required")
	}

	if len([]rune(password)) < h.minLength {
		return domainerrors.ErrPasswordPolicy.WithDetails("password is too short")
	}

	if len(password) > maxPasswordBytes {
		return domainerrors.ErrPasswordPolicy.WithDetails("password is too long")
	}

	normalized := strings.ToLower(strings.TrimSpace(password))
	for _, word := range h.forbiddenWords {
		if normalized == word {
			return domainerrors.ErrPasswordPolicy.WithDetails(fmt.Sprintf("password cannot be %q", word))
		}
	}

	return nil
}
