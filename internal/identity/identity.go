// Package identity verifies bearer tokens issued by the identity provider.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

// Identity is the verified caller.
type Identity struct {
	UID   string
	Email string
}

// Verifier checks a raw token. Rejected tokens yield an error wrapping
// models.ErrUnauthenticated.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fmt.Errorf("missing bearer token: %w", models.ErrUnauthenticated)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("empty bearer token: %w", models.ErrUnauthenticated)
	}
	return token, nil
}
