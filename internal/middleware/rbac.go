package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/specs-nexus-api/internal/models"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/response"
)

// RequireRoles rejects tokens whose role is not listed. Users and officers
// live in separate tables, so a route must name the account kind whose id it
// expects.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireUser admits member tokens only.
func RequireUser() gin.HandlerFunc {
	return RequireRoles(models.RoleUser)
}

// RequireOfficer admits officer tokens only.
func RequireOfficer() gin.HandlerFunc {
	return RequireRoles(models.RoleOfficer)
}
