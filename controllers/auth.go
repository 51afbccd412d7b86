package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// UserResolver extracts the authenticated user id from a request. The server
// sits behind a gateway that verifies credentials, so the default resolver
// trusts the X-User-ID header; deployments with their own token scheme plug
// in a different resolver.
type UserResolver func(c *gin.Context) (string, error)

// HeaderUserResolver reads the user id from the X-User-ID header.
func HeaderUserResolver(c *gin.Context) (string, error) {
	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		return "", fmt.Errorf("missing X-User-ID header")
	}
	return userID, nil
}

// AuthMiddleware resolves the user id and stores it on the request context.
// Requests without a resolvable user are rejected before any handler runs.
func AuthMiddleware(resolve UserResolver) gin.HandlerFunc {
	if resolve == nil {
		resolve = HeaderUserResolver
	}
	return func(c *gin.Context) {
		userID, err := resolve(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		// Routes carry the user in the path; acting on someone else's data
		// is forbidden even with valid credentials.
		if pathUser := c.Param("userID"); pathUser != "" && pathUser != userID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "cannot act on another user's data"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// currentUserID returns the user id set by AuthMiddleware.
func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
