package middleware

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/zapshift-backend/internal/identity"
	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/store"
)

const (
	identityKey = "identity"
	userKey     = "user"
)

// Check is one step of an authorization chain. A non-nil error aborts the
// request and is rendered by Errors.
type Check func(c *gin.Context) error

// Chain runs checks in order and stops at the first failure.
func Chain(checks ...Check) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, check := range checks {
			if err := check(c); err != nil {
				_ = c.Error(err)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// Authenticate verifies the bearer token and stores the caller's identity.
// WebSocket clients cannot set headers, so a token query parameter is
// accepted as well.
func Authenticate(v identity.Verifier) Check {
	return func(c *gin.Context) error {
		token, err := identity.ParseBearer(c.GetHeader("Authorization"))
		if err != nil {
			if token = c.Query("token"); token == "" {
				return err
			}
		}

		id, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			return err
		}
		c.Set(identityKey, id)
		return nil
	}
}

// RequireRole loads the caller's user record and admits it only when its role
// is one of roles. It must run after Authenticate.
func RequireRole(users store.UserStore, roles ...models.Role) Check {
	return func(c *gin.Context) error {
		id, ok := CurrentIdentity(c)
		if !ok {
			return models.ErrUnauthenticated
		}

		user, err := users.GetUserByEmail(c.Request.Context(), id.Email)
		switch {
		case errors.Is(err, models.ErrNotFound):
			return fmt.Errorf("no user record for %s: %w", id.Email, models.ErrForbidden)
		case err != nil:
			return err
		}
		if !slices.Contains(roles, user.Role) {
			return fmt.Errorf("role %q not allowed: %w", user.Role, models.ErrForbidden)
		}
		c.Set(userKey, user)
		return nil
	}
}

func CurrentIdentity(c *gin.Context) (*identity.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*identity.Identity)
	return id, ok
}

// CurrentEmail is the verified email of the caller, or "" on public routes.
func CurrentEmail(c *gin.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return id.Email
	}
	return ""
}

// RequireSelf fails with ErrForbidden unless email is empty or matches the
// caller.
func RequireSelf(c *gin.Context, email string) error {
	if email != "" && email != CurrentEmail(c) {
		return models.ErrForbidden
	}
	return nil
}
