// Package auth resolves the current user's id from a session token. Session
// issuance is handled by Supabase Auth; this package only verifies.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	supa "github.com/supabase-community/supabase-go"
)

// ErrUnauthenticated is returned for a missing, malformed or rejected token.
var ErrUnauthenticated = errors.New("unauthenticated")

// IdentityProvider maps a session token to a user id.
type IdentityProvider interface {
	UserID(ctx context.Context, token string) (uuid.UUID, error)
}

// SessionRole is the role Supabase Auth puts in signed-in user sessions.
const SessionRole = "authenticated"

// Claims is the subset of the Supabase session JWT this service reads.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 session tokens signed with the project JWT secret.
type JWTVerifier struct {
	secret   []byte
	audience string
}

// NewJWTVerifier verifies with secret. An empty audience skips the aud check.
func NewJWTVerifier(secret, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), audience: audience}
}

// UserID validates token and returns its subject.
func (v *JWTVerifier) UserID(_ context.Context, token string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	// anon and service_role keys are project keys, not user sessions.
	if claims.Role != "" && claims.Role != SessionRole {
		return uuid.Nil, fmt.Errorf("%w: role %q is not a user session", ErrUnauthenticated, claims.Role)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject %q is not a user id", ErrUnauthenticated, claims.Subject)
	}
	return id, nil
}

// SupabaseProvider asks Supabase Auth who owns the token. It is used when the
// JWT secret is not configured.
type SupabaseProvider struct {
	lookup func(token string) (uuid.UUID, error)
}

// NewSupabaseProvider resolves tokens through client's auth API.
func NewSupabaseProvider(client *supa.Client) *SupabaseProvider {
	return &SupabaseProvider{lookup: func(token string) (uuid.UUID, error) {
		user, err := client.Auth.WithToken(token).GetUser()
		if err != nil {
			return uuid.Nil, err
		}
		return user.ID, nil
	}}
}

// UserID returns the id of the user holding token.
func (p *SupabaseProvider) UserID(ctx context.Context, token string) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	id, err := p.lookup(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: no user for token", ErrUnauthenticated)
	}
	return id, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: expected a Bearer token", ErrUnauthenticated)
	}
	return strings.TrimSpace(token), nil
}
