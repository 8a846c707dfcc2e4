// Package token is the Token Validator: it extracts bearer/basic
// credentials from a request, verifies an HS256 JWT against the shared
// secret, and decides push-vs-pull authorization for the configured mode.
package token

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey namespaces values this package injects into a request
// context, avoiding collisions with other packages' context keys.
type ContextKey string

const (
	// UserKey holds the validated token's user_id claim.
	UserKey ContextKey = "token.user_id"
	// EmailKey holds the validated token's email claim.
	EmailKey ContextKey = "token.email"
	// RolesKey holds the validated token's roles claim.
	RolesKey ContextKey = "token.roles"
)

// ErrNoCredentials is returned when a request carries neither a Bearer
// nor a Basic Authorization header.
var ErrNoCredentials = errors.New("token: no credentials in request")

// Claims is the decoded shape of a valid Repository Worker JWT.
type Claims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// ExtractToken pulls the JWT out of an Authorization header. It
// recognizes "Bearer <jwt>" directly and "Basic <base64(user:jwt)>",
// where the password field carries the JWT — the same dual convention
// the auth service's clients use.
func ExtractToken(header string) (string, error) {
	if header == "" {
		return "", ErrNoCredentials
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer "), nil
	}
	if strings.HasPrefix(header, "Basic ") {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
		if err != nil {
			return "", err
		}
		parts := strings.SplitN(string(raw), ":", 2)
		if len(parts) != 2 {
			return "", errors.New("token: malformed basic credentials")
		}
		return parts[1], nil
	}
	return "", ErrNoCredentials
}

// Validate verifies an HS256 JWT against secret and decodes its claims.
// Expiration is mandatory: a token lacking "exp" or expired is rejected.
func Validate(tokenString, secret string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("token: unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("token: invalid token")
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("token: unexpected claims shape")
	}

	claims := &Claims{}
	if sub, ok := mapClaims["user_id"].(string); ok {
		claims.UserID = sub
	}
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if rolesRaw, ok := mapClaims["roles"].([]interface{}); ok {
		for _, r := range rolesRaw {
			if s, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, s)
			}
		}
	}
	return claims, nil
}

// WithClaims returns a context carrying the validated claims.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	ctx = context.WithValue(ctx, UserKey, c.UserID)
	ctx = context.WithValue(ctx, EmailKey, c.Email)
	return context.WithValue(ctx, RolesKey, c.Roles)
}
