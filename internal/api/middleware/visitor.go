package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"arahkarir/internal/visitor"
)

// VisitorTrackingMiddleware records the caller in the visitor store.
// Tracking is best-effort and never blocks the request.
func VisitorTrackingMiddleware(store visitor.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Record(c.Request.Context(), c.ClientIP()); err != nil {
			LoggerFromContext(c).Warn("record visitor failed", slog.Any("error", err))
		}
		c.Next()
	}
}
