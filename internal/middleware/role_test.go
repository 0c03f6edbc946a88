package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/aidalert/aidalert/internal/models"
)

func roleRouter(handler gin.HandlerFunc, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", func(c *gin.Context) {
		if role != "" {
			c.Set(CtxRoleKey, role)
		}
		c.Next()
	}, handler, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRequireRoleAllowsListedRole(t *testing.T) {
	r := roleRouter(RequireRole(models.RoleResponder), models.RoleResponder)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleDeniesOtherRoles(t *testing.T) {
	r := roleRouter(RequireRole(models.RoleResponder), models.RoleUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleAdminBypass(t *testing.T) {
	r := roleRouter(RequireRole(models.RoleResponder), models.RoleAdmin)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	r := roleRouter(RequireRole(models.RoleResponder), "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
