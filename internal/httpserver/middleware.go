package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"habittracker/internal/db"
	"habittracker/internal/util"
	"habittracker/pkg/metrics"
)

func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		userID, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		// store user_id in context so handlers can use it
		c.Set("user_id", userID)

		c.Next()
	}
}

// AvailabilityMiddleware rejects store-backed requests while the database
// is unreachable. The listener itself stays up; clients get a retry hint.
func AvailabilityMiddleware(monitor *db.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !monitor.Healthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":      "service temporarily unavailable",
				"retryAfter": 5,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// MetricsMiddleware records request durations per route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
