package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
)

// RequestID tags every request, generating an id when the caller did not
// send one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-Id", requestID)
		c.Next()
	}
}

func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")))
	}
}

// Actor extracts the authenticated caller that the routing layer forwards in
// headers. Authentication itself happens upstream; requests without an
// identity are rejected here.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Actor-Id")
		role := domain.Role(c.GetHeader("X-Actor-Role"))
		if id == "" || (role != domain.RoleCustomer && role != domain.RoleVendor && role != domain.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid actor identity"})
			return
		}
		c.Set("actor", domain.Actor{ID: id, Role: role})
		c.Next()
	}
}

// ActorFrom returns the actor placed on the context by Actor().
func ActorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get("actor"); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}
