package middleware

import (
	"net/http"
	"strings"
	"time"

	"abby-ai-server/src/core/auth"
	"abby-ai-server/src/core/metrics"
	"abby-ai-server/src/core/utils"

	"github.com/gin-gonic/gin"
)

const RequestIDHeader = "X-Request-Id"

// CORS allows every origin
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
		} else {
			c.Header("Access-Control-Allow-Origin", "*")
		}

		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestID reuses the caller's X-Request-Id or generates one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = utils.GenerateRequestID()
		}
		c.Set(utils.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// AccessLog logs every request and feeds the HTTP metrics
func AccessLog(logger *utils.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.RequestStarted()
		defer m.RequestFinished()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		m.RecordHTTPRequest(c.Request.Method, path, status, elapsed)

		if path == "/health" || path == "/metrics" {
			return
		}
		logger.Info("%s %s %d %s request_id=%s", c.Request.Method, c.Request.URL.Path, status, elapsed, c.GetString(utils.RequestIDKey))
	}
}

// JWTUserAuth verifies the bearer token and stores user_id in the context
func JWTUserAuth(authToken *auth.AuthToken, logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.Error(c, http.StatusUnauthorized, "Missing or malformed bearer token")
			c.Abort()
			return
		}

		userID, err := authToken.VerifyToken(strings.TrimSpace(authHeader[7:]))
		if err != nil {
			logger.Warn("JWTUserAuth failed: %v", err)
			utils.Error(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
