package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/ticketsys-go/internal/models"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"

	principalKey = "principal"
)

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if p, ok := c.Get(principalKey); ok {
			fields = append(fields, zap.String("user_id", p.(*models.Principal).UserID.String()))
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

// accessToken prefers the cookie and falls back to the Authorization header.
func accessToken(c *gin.Context) string {
	if token, err := c.Cookie(accessCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// Authenticate rejects requests without a valid access token and stores the
// caller on the context.
func Authenticate(auth AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := auth.Authenticate(c.Request.Context(), accessToken(c))
		if err != nil {
			respondError(c, logger, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAction lets the request through only when the role policy allows
// action. It must run after Authenticate.
func RequireAction(auth AuthService, logger *zap.Logger, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Authorize(c.Request.Context(), principal(c), action); err != nil {
			respondError(c, logger, err)
			return
		}
		c.Next()
	}
}

func principal(c *gin.Context) *models.Principal {
	return c.MustGet(principalKey).(*models.Principal)
}
