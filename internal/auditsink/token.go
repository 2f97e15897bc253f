// Package auditsink is a development stand-in for the remote audit log API.
// It accepts POST /api/logs from the audit client, keeps the most recent
// records in memory and lists them back on GET /api/logs.
package auditsink

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Kabinet98/gesflow-manager-sub003/internal/platform/sentinel"
)

// Claims are the claims carried by sink bearer tokens.
type Claims struct {
	Source string `json:"source,omitempty"`
	jwt.RegisteredClaims
}

// TokenService mints and validates HS256 bearer tokens for the sink.
type TokenService struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewTokenService(signingKey, issuer string) (*TokenService, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("jwt signing key is required: %w", sentinel.ErrInvalidInput)
	}
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}, nil
}

// Mint issues a token for subject valid for ttl.
func (s *TokenService) Mint(subject, source string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Source: source,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token has expired: %w", sentinel.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("invalid token: %w", sentinel.ErrUnauthenticated)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", sentinel.ErrUnauthenticated)
	}
	return claims, nil
}

// Subject validates a token and returns its subject.
func (s *TokenService) Subject(tokenString string) (string, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
