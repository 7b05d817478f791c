package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the subset of ID-token claims the manager displays.
type IdentityClaims struct {
	Email     string
	Name      string
	ExpiresAt time.Time
}

// PeekClaims extracts display claims from a JWT without verifying its
// signature. Diagnostic use only; never treat the result as authenticated.
func PeekClaims(token string) (*IdentityClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token claims: %w", err)
	}

	out := &IdentityClaims{}
	if v, ok := claims["email"].(string); ok {
		out.Email = v
	}
	if v, ok := claims["name"].(string); ok {
		out.Name = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
