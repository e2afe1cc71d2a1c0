package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc.def", want: "abc.def"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "no token", header: "Bearer ", wantErr: true},
		{name: "scheme only", header: "Bearer", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearer(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJWTVerifierRoundTrip(t *testing.T) {
	v := NewJWTVerifier("s3cret")

	token, err := v.Sign(Identity{UID: "u1", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{UID: "u1", Email: "a@example.com"}, id)
}

func TestJWTVerifierRejects(t *testing.T) {
	v := NewJWTVerifier("s3cret")

	expired, err := v.Sign(Identity{UID: "u1", Email: "a@example.com"}, -time.Minute)
	require.NoError(t, err)

	foreign, err := NewJWTVerifier("other").Sign(Identity{UID: "u1", Email: "a@example.com"}, time.Hour)
	require.NoError(t, err)

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"email": "a@example.com",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":  expired,
		"foreign":  foreign,
		"no email": noEmail,
		"none alg": noneAlg,
		"garbage":  "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, models.ErrUnauthenticated)
		})
	}
}

type stubFirebase struct {
	token *auth.Token
	err   error
}

func (s stubFirebase) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return s.token, s.err
}

func TestFirebaseVerifier(t *testing.T) {
	v := NewFirebaseVerifier(stubFirebase{token: &auth.Token{
		UID:    "fb-uid",
		Claims: map[string]interface{}{"email": "a@example.com"},
	}})
	id, err := v.Verify(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, &Identity{UID: "fb-uid", Email: "a@example.com"}, id)

	v = NewFirebaseVerifier(stubFirebase{err: errors.New("ID token has expired")})
	_, err = v.Verify(context.Background(), "token")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)

	v = NewFirebaseVerifier(stubFirebase{token: &auth.Token{UID: "anon", Claims: map[string]interface{}{}}})
	_, err = v.Verify(context.Background(), "token")
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}
