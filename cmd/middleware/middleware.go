package middleware

import (
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"accessos/internal/dto"
)

func LoggingMiddleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		start := time.Now()
		c.Next()
		zlog.Logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	}
}

// ActorMiddleware lifts the caller identity set by the fronting identity
// layer into the request context. Session verification happens upstream; the
// service only needs to know who acted. Mutations without an actor are
// rejected.
func ActorMiddleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID != "" {
			c.Set("user_id", userID)
		}
		if userID == "" && c.Request.Method != http.MethodGet {
			dto.UnauthorizedError(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
