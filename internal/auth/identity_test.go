package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "super-secret-jwt-token-with-at-least-32-characters"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func validClaims(sub string) Claims {
	return Claims{
		Role: SessionRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestJWTVerifier(t *testing.T) {
	user := uuid.New()
	v := NewJWTVerifier(secret, "authenticated")

	id, err := v.UserID(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims(user.String())))
	require.NoError(t, err)
	assert.Equal(t, user, id)

	noRole := validClaims(user.String())
	noRole.Role = ""
	id, err = v.UserID(context.Background(), sign(t, jwt.SigningMethodHS256, []byte(secret), noRole))
	require.NoError(t, err)
	assert.Equal(t, user, id)

	expired := validClaims(user.String())
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExp := validClaims(user.String())
	noExp.ExpiresAt = nil
	wrongAud := validClaims(user.String())
	wrongAud.Audience = jwt.ClaimStrings{"anon"}
	serviceRole := validClaims(user.String())
	serviceRole.Role = "service_role"

	bad := map[string]string{
		"wrong secret":     sign(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), validClaims(user.String())),
		"expired":          sign(t, jwt.SigningMethodHS256, []byte(secret), expired),
		"no expiry":        sign(t, jwt.SigningMethodHS256, []byte(secret), noExp),
		"wrong audience":   sign(t, jwt.SigningMethodHS256, []byte(secret), wrongAud),
		"project key role": sign(t, jwt.SigningMethodHS256, []byte(secret), serviceRole),
		"subject not id":   sign(t, jwt.SigningMethodHS256, []byte(secret), validClaims("service_role")),
		"wrong algorithm":  sign(t, jwt.SigningMethodHS512, []byte(secret), validClaims(user.String())),
		"garbage":          "not.a.jwt",
	}
	for name, tok := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := v.UserID(context.Background(), tok)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestSupabaseProvider(t *testing.T) {
	user := uuid.New()
	p := &SupabaseProvider{lookup: func(token string) (uuid.UUID, error) {
		if token == "good" {
			return user, nil
		}
		return uuid.Nil, errors.New("invalid JWT")
	}}

	id, err := p.UserID(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, user, id)

	_, err = p.UserID(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer  ", "Basic abc"} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, ErrUnauthenticated, h)
	}
}
