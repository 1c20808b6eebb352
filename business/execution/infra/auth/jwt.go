// Package auth validates the bearer tokens that authorize executions.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fd1az/paybridge/internal/apperror"
)

const defaultLeeway = 30 * time.Second

// Config holds the HMAC secret and the expected registered claims.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Authenticator verifies HS256/384/512 tokens.
type Authenticator struct {
	cfg Config
}

// NewAuthenticator creates an Authenticator. An empty secret rejects every token.
func NewAuthenticator(cfg Config) *Authenticator {
	if cfg.Leeway <= 0 {
		cfg.Leeway = defaultLeeway
	}
	return &Authenticator{cfg: cfg}
}

// Verify returns the token subject, or CodeUnauthorized.
func (a *Authenticator) Verify(token string) (string, error) {
	if a.cfg.Secret == "" {
		return "", unauthorized("authenticator not configured", nil)
	}
	if token == "" {
		return "", unauthorized("missing bearer token", nil)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(a.cfg.Secret), nil
	}, jwt.WithLeeway(a.cfg.Leeway))
	if err != nil {
		return "", unauthorized("invalid token", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", unauthorized("invalid token", nil)
	}
	if err := validateClaims(claims, a.cfg.Issuer, a.cfg.Audience); err != nil {
		return "", unauthorized("invalid token claims", err)
	}

	sub, _ := claims.GetSubject()
	return sub, nil
}

func validateClaims(claims jwt.MapClaims, issuer, audience string) error {
	if issuer != "" {
		if value, ok := claims["iss"].(string); !ok || value != issuer {
			return errors.New("issuer mismatch")
		}
	}
	if audience != "" {
		switch val := claims["aud"].(type) {
		case string:
			if val != audience {
				return errors.New("audience mismatch")
			}
		case []interface{}:
			for _, entry := range val {
				if s, ok := entry.(string); ok && s == audience {
					return nil
				}
			}
			return errors.New("audience mismatch")
		default:
			return errors.New("audience missing")
		}
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func unauthorized(reason string, cause error) error {
	opts := []apperror.Option{apperror.WithContext(reason)}
	if cause != nil {
		opts = append(opts, apperror.WithCause(cause))
	}
	return apperror.New(apperror.CodeUnauthorized, opts...)
}
