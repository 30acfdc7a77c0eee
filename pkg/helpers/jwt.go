package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of the token issued by the upstream identity service:
// the caller's guid and role set. This service never issues access tokens; it
// only verifies them against the shared secret.
type Claims struct {
	Guid  string   `json:"guid"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the role set contains role.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenVerifier validates upstream-issued HS256 tokens.
type TokenVerifier struct {
	Secret []byte
}

var defaultVerifier *TokenVerifier

func NewTokenVerifier(secret string) *TokenVerifier {
	v := &TokenVerifier{Secret: []byte(secret)}
	defaultVerifier = v
	return v
}

// DefaultVerifier returns the last constructed TokenVerifier (used for
// auto-wiring routes).
func DefaultVerifier() *TokenVerifier { return defaultVerifier }

func (v *TokenVerifier) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Sign mints a token the way the upstream issuer does. Only used by local
// tooling and tests; production tokens come from the identity service.
func (v *TokenVerifier) Sign(guid string, roles []string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Guid:  guid,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(v.Secret)
}
