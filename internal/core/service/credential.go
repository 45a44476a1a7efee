package service

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/h2market/h2trade/internal/core/domain"
)

// decodeClaims reads the subject and expiry of an access token without
// verifying its signature. The client cannot verify it and does not need
// to: the marketplace is authoritative on every request.
func decodeClaims(token string) (domain.CredentialClaims, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return domain.CredentialClaims{}, false
	}

	var out domain.CredentialClaims
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	// The marketplace puts an object {"username": ..., "roles": [...]} in sub.
	switch sub := claims["sub"].(type) {
	case string:
		out.Subject = sub
	case map[string]any:
		if name, ok := sub["username"].(string); ok {
			out.Subject = name
		}
	}
	return out, true
}
