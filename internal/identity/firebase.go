package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

// TokenVerifier is the part of the Firebase auth client used here.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens.
type FirebaseVerifier struct {
	client TokenVerifier
}

var _ Verifier = (*FirebaseVerifier)(nil)

func NewFirebaseVerifier(client TokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %v: %w", err, models.ErrUnauthenticated)
	}
	email, _ := decoded.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("id token has no email claim: %w", models.ErrUnauthenticated)
	}
	return &Identity{UID: decoded.UID, Email: email}, nil
}
