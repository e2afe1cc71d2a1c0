package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

// JWTVerifier accepts HS256 tokens signed with a shared secret. It stands in
// for Firebase in local development and tests.
type JWTVerifier struct {
	secret []byte
}

var _ Verifier = (*JWTVerifier)(nil)

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("parse token: %v: %w", err, models.ErrUnauthenticated)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", models.ErrUnauthenticated)
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("token has no email claim: %w", models.ErrUnauthenticated)
	}
	sub, _ := claims.GetSubject()
	return &Identity{UID: sub, Email: email}, nil
}

// Sign mints a token for the given identity, valid for ttl.
func (v *JWTVerifier) Sign(id Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   id.UID,
		"email": id.Email,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
