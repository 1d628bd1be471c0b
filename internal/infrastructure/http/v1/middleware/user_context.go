package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "mise/internal/core/context"
)

const HeaderUserID = "X-User-ID"

// UserContext picks the caller identity off the request envelope and puts it
// in the request context for ledger attribution. Authentication itself lives
// upstream of this service.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID != "" {
			ctx := appctx.WithUser(c.Request.Context(), &appctx.UserContext{UserID: userID})
			c.Request = c.Request.WithContext(ctx)
			c.Set("user_id", userID)
		}
		c.Next()
	}
}
