package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/chachabrian/zapshift-backend/internal/middleware"
	"github.com/chachabrian/zapshift-backend/internal/services"
)

// WebSocketHandler streams the caller's parcel events.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.ServeWS(c.Writer, c.Request, middleware.CurrentEmail(c))
	}
}
