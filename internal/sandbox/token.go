package sandbox

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/h2market/h2trade/internal/core/domain"
)

const defaultTokenTTL = 24 * time.Hour

// TokenIssuer signs HS256 access tokens whose subject is the object
// {"username": ..., "roles": [...]}.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Secret returns the signing key, shared with the auth middleware.
func (t *TokenIssuer) Secret() string { return string(t.secret) }

func (t *TokenIssuer) Issue(user domain.UserRecord) (string, error) {
	now := t.now()
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	claims := jwt.MapClaims{
		"sub":   map[string]any{"username": user.Username, "roles": roles},
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
		"jti":   uuid.NewString(),
		"type":  "access",
		"fresh": false,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
