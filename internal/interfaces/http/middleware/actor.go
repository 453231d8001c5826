package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/shared"
	"github.com/orderly/backend/internal/interfaces/http/dto"
)

// ActorKey is the gin context key carrying the authenticated actor
const ActorKey = "actor"

// Actor resolves the caller from the X-User-ID and X-User-Role headers
// supplied by the identity layer in front of the services, and rejects
// requests that carry no usable identity. The headers are trusted; this
// middleware never validates credentials.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDStr := c.GetHeader("X-User-ID")
		roleStr := c.GetHeader("X-User-Role")

		if userIDStr == "" {
			abortUnauthorized(c, "Missing X-User-ID header")
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			abortUnauthorized(c, "X-User-ID must be a valid UUID")
			return
		}

		role := shared.ActorRole(roleStr)
		if roleStr == "" {
			role = shared.ActorRoleCustomer
		}

		actor, err := shared.NewActor(userID, role)
		if err != nil {
			abortUnauthorized(c, "Unknown actor role")
			return
		}

		c.Set(ActorKey, actor)
		c.Next()
	}
}

// GetActor returns the actor resolved by the Actor middleware
func GetActor(c *gin.Context) (shared.Actor, bool) {
	value, exists := c.Get(ActorKey)
	if !exists {
		return shared.Actor{}, false
	}
	actor, ok := value.(shared.Actor)
	return actor, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeUnauthorized,
		message,
		GetRequestID(c),
	))
}
