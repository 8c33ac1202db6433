package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chainchat/chainchat/core"
	"github.com/chainchat/chainchat/service"
)

const identityKey = "identity"

// AuthMiddleware creates middleware that validates access tokens and places
// the resolved identity in the request context.
func AuthMiddleware(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		identity, err := auth.ResolveToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			if errors.Is(err, core.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			}
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// CurrentIdentity returns the identity placed in the context by
// AuthMiddleware. Only valid on routes behind the middleware.
func CurrentIdentity(c *gin.Context) *core.Identity {
	return c.MustGet(identityKey).(*core.Identity)
}
