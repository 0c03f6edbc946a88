package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aidalert/aidalert/internal/models"
	"github.com/aidalert/aidalert/pkg/errors"
	"github.com/aidalert/aidalert/pkg/metrics"
	"github.com/aidalert/aidalert/pkg/response"
)

// RequireRole gates a route group to the listed roles. Admins pass every
// check, so role lists never need to repeat the admin role.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		v, ok := c.Get(CtxRoleKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		role, _ := v.(string)

		if role != models.RoleAdmin {
			if _, ok := allowed[role]; !ok {
				metrics.RoleChecks.WithLabelValues(role, "denied").Inc()
				response.Error(c, errors.ErrForbidden)
				c.Abort()
				return
			}
		}

		metrics.RoleChecks.WithLabelValues(role, "allowed").Inc()
		c.Next()
	}
}
