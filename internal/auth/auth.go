// Package auth resolves the caller identity attached to each request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/apperr"
)

// Identity is an authenticated caller.
type Identity struct {
	UserID primitive.ObjectID
	Role   string
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Authenticator resolves the identity behind an HTTP request.
type Authenticator interface {
	Authenticate(r *http.Request) (Identity, error)
}

// Static authenticates every request as a fixed identity. It backs the
// "disabled" auth mode used for local development.
type Static struct {
	Identity Identity
}

func (s Static) Authenticate(*http.Request) (Identity, error) {
	return s.Identity, nil
}

// Claims is the JWT payload. The subject holds the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWT verifies HS256 bearer tokens.
type JWT struct {
	secret []byte
}

// NewJWT returns a verifier using secret.
func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

// Authenticate parses the bearer token of r.
func (j *JWT) Authenticate(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Identity{}, fmt.Errorf("auth: missing bearer token: %w", apperr.ErrUnauthorized)
	}
	return j.Verify(token)
}

// Verify validates a raw token string and extracts the identity.
func (j *JWT) Verify(raw string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("auth: %w: %w", apperr.ErrUnauthorized, err)
	}
	uid, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil || uid.IsZero() {
		return Identity{}, fmt.Errorf("auth: subject %q: %w", claims.Subject, apperr.ErrUnauthorized)
	}
	if claims.Role == "" {
		return Identity{}, fmt.Errorf("auth: missing role claim: %w", apperr.ErrUnauthorized)
	}
	return Identity{UserID: uid, Role: claims.Role}, nil
}

// Issue mints a token for id that expires after ttl.
func Issue(secret string, id Identity, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("auth: empty signing secret")
	}
	now := time.Now()
	claims := Claims{
		Role: id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}
