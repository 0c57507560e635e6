// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"accounts/config"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
)

// jwtService is a concrete implementation of the TokenService interface using HS256 JWTs.
type jwtService struct {
	secret []byte
	issuer string
	ttl    time.Duration // zero means tokens never expire
	now    func() time.Time
}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.SecretKey.Session == "" {
		return nil, errors.New("session secret must be provided")
	}

	svc := &jwtService{
		secret: []byte(cfg.SecretKey.Session),
		issuer: "accounts",
		now:    time.Now,
	}
	if cfg.Auth != nil {
		svc.ttl = max(cfg.Auth.SessionTTL, 0)
		if cfg.Auth.Issuer != "" {
			svc.issuer = cfg.Auth.Issuer
		}
	}

	return svc, nil
}

// Issue signs a new token for the account. Each token carries a random jti, so no two are equal.
func (s *jwtService) Issue(accountID uuid.UUID) (*service.IssuedToken, error) {
	issuedAt := s.now().UTC().Truncate(time.Second)

	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  accountID.String(),
			Issuer:   s.issuer,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}

	var expiresAt *time.Time
	if s.ttl > 0 {
		exp := issuedAt.Add(s.ttl)
		expiresAt = &exp
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign session token")
	}

	return &service.IssuedToken{
		Token:     signed,
		TokenHash: s.HashToken(signed),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Parse checks the signature, algorithm, issuer and expiry of a token.
func (s *jwtService) Parse(tokenString string) (*service.Claims, error) {
	claims := &service.Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse session token")
	}
	if !token.Valid {
		return nil, errors.New("session token is not valid")
	}

	if _, err := claims.AccountID(); err != nil {
		return nil, errors.Wrap(err, "session token subject is not an account id")
	}

	return claims, nil
}

// HashToken returns the hex encoded SHA-256 of the raw token.
func (s *jwtService) HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// EqualHash compares two token hashes in constant time.
func (s *jwtService) EqualHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
