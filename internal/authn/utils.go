package authn

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidJWT = errors.New("invalid jwt token")

// Claims are the caller details logged with each invocation. Tokens reach
// the function already authenticated by the Functions host, so the
// signature is not checked here.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"preferred_username"`
	Name     string `json:"name"`
	ObjectID string `json:"oid"`
	TenantID string `json:"tid"`
	AppID    string `json:"appid"`
}

func ParseClaims(token string) (Claims, error) {
	claims := Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return claims, ErrInvalidJWT
	}
	return claims, nil
}

// Principal returns the most specific caller identity in the claims.
func (c Claims) Principal() string {
	switch {
	case c.Username != "":
		return c.Username
	case c.ObjectID != "":
		return c.ObjectID
	case c.AppID != "":
		return c.AppID
	}
	return c.Subject
}
