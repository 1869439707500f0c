package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/apperr"
)

func TestIssueAndAuthenticate(t *testing.T) {
	id := Identity{UserID: primitive.NewObjectID(), Role: "user"}
	token, err := Issue("s3cret", id, time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	got, err := NewJWT("s3cret").Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestAuthenticateRejects(t *testing.T) {
	id := Identity{UserID: primitive.NewObjectID(), Role: "user"}
	good, err := Issue("s3cret", id, time.Hour)
	require.NoError(t, err)
	expired, err := Issue("s3cret", id, -time.Minute)
	require.NoError(t, err)
	noRole, err := Issue("s3cret", Identity{UserID: id.UserID}, time.Hour)
	require.NoError(t, err)
	zeroSub, err := Issue("s3cret", Identity{UserID: primitive.NilObjectID, Role: "user"}, time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "user",
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.UserID.Hex()}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		header string
		secret string
	}{
		"missing header": {header: "", secret: "s3cret"},
		"not bearer":     {header: "Basic abc", secret: "s3cret"},
		"wrong secret":   {header: "Bearer " + good, secret: "other"},
		"expired":        {header: "Bearer " + expired, secret: "s3cret"},
		"no role":        {header: "Bearer " + noRole, secret: "s3cret"},
		"zero subject":   {header: "Bearer " + zeroSub, secret: "s3cret"},
		"alg none":       {header: "Bearer " + none, secret: "s3cret"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			_, err := NewJWT(tc.secret).Authenticate(r)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	id := Identity{UserID: primitive.NewObjectID(), Role: "superAdmin"}
	got, ok := FromContext(WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestStatic(t *testing.T) {
	id := Identity{UserID: primitive.NewObjectID(), Role: "superAdmin"}
	got, err := Static{Identity: id}.Authenticate(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
