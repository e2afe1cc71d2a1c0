package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/store"
)

type signupInput struct {
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
}

// CreateUser registers the user on first sign-in. Later calls only refresh
// the last login time; the role is never taken from the client.
func CreateUser(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input signupInput
		if err := c.ShouldBindJSON(&input); err != nil {
			_ = c.Error(bindError(err))
			return
		}

		inserted, err := users.UpsertUser(c.Request.Context(), &models.User{
			Email:       input.Email,
			DisplayName: input.DisplayName,
			PhotoURL:    input.PhotoURL,
			Role:        models.RoleUser,
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"inserted": inserted})
	}
}

func ListUsers(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := users.ListUsers(c.Request.Context(), store.UserFilter{Search: c.Query("searchText")})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetUserRole reports the role of any email; unknown users are plain users.
func GetUserRole(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.GetUserByEmail(c.Request.Context(), c.Param("email"))
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusOK, gin.H{"role": models.RoleUser})
			return
		case err != nil:
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"role": user.Role})
	}
}

type roleInput struct {
	Role models.Role `json:"role" binding:"required,role"`
}

func UpdateUserRole(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input roleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			_ = c.Error(bindError(err))
			return
		}

		user, err := users.UpdateUserRole(c.Request.Context(), c.Param("id"), input.Role)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
