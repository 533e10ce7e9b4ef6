package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "arena-server"

var (
	ErrTokenMissing = errors.New("identity token required")
	ErrTokenInvalid = errors.New("invalid identity token")
)

// Identity is what a signed token asserts about a player
type Identity struct {
	Subject string
	Name    string
	Tier    string
}

type identityClaims struct {
	Name string `json:"name"`
	Tier string `json:"tier,omitempty"`
	jwt.RegisteredClaims
}

// Auth validates HMAC-signed identity tokens
type Auth struct {
	secret   []byte
	required bool
}

// NewAuth returns nil when secret is empty, which disables identity tokens
func NewAuth(secret string, required bool) *Auth {
	if secret == "" {
		return nil
	}
	return &Auth{secret: []byte(secret), required: required}
}

// Issue signs a token for subject with a display name and default tier
func (a *Auth) Issue(subject, name, tier string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		Name: name,
		Tier: tier,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Validate parses a token and returns the identity it carries
func (a *Auth) Validate(tokenStr string) (*Identity, error) {
	var claims identityClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.Subject == "" || claims.Name == "" {
		return nil, fmt.Errorf("%w: missing subject or name", ErrTokenInvalid)
	}
	return &Identity{Subject: claims.Subject, Name: claims.Name, Tier: claims.Tier}, nil
}

// Authenticate reads the token from the query string or a bearer header.
// With auth disabled every request is an anonymous guest. A presented token
// must always be valid; a missing one is only an error when required.
func (a *Auth) Authenticate(r *http.Request) (*Identity, error) {
	if a == nil {
		return nil, nil
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		if a.required {
			return nil, ErrTokenMissing
		}
		return nil, nil
	}
	return a.Validate(token)
}
