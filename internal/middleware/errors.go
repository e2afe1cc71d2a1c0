package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chachabrian/zapshift-backend/internal/models"
	"github.com/chachabrian/zapshift-backend/internal/payment"
)

// Status maps an error to the HTTP status and the message shown to clients.
// Unknown errors never leak their text.
func Status(err error) (int, string) {
	var pe *payment.ProviderError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadGateway, pe.Msg
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, models.ErrUnauthenticated.Error()
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, models.ErrForbidden.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// Errors renders the first error attached to the context as {"error": msg}.
func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		status, msg := Status(c.Errors[0].Err)
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
	}
}
