package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"order-tracking-service/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminOnly rejects callers without the admin permission.
func AdminOnly() gin.HandlerFunc {
	return RequirePermission(service.PermissionAdmin)
}

// OperatorOnly accepts operators and admins.
func OperatorOnly() gin.HandlerFunc {
	return RequirePermission(service.PermissionOperator, service.PermissionAdmin)
}

// RequirePermission lets the request through when the caller holds any of perms.
func RequirePermission(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		held := c.GetStringSlice("userPermissions")
		for _, p := range perms {
			if slices.Contains(held, p) {
				c.Next()
				return
			}
		}
		slog.Warn("permission denied", "user", c.GetString("userID"), "path", c.FullPath(), "required", perms)
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient privileges"})
		c.Abort()
	}
}
