package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aidalert/aidalert/internal/handlers"
	"github.com/aidalert/aidalert/internal/middleware"
	"github.com/aidalert/aidalert/internal/models"
)

func registerResponderRoutes(api *gin.RouterGroup, handler *handlers.ResponderHandler) {
	requireResponder := middleware.RequireRole(models.RoleResponder)

	group := api.Group("/responders")
	{
		group.GET("/dashboard", requireResponder, handler.Dashboard)
		group.GET("/queue", requireResponder, handler.Queue)
		group.GET("/active", requireResponder, handler.Active)
		group.POST("/incidents/:id/accept", requireResponder, handler.Accept)
		group.POST("/incidents/:id/advance", requireResponder, handler.Advance)
		group.POST("/incidents/:id/escalate", requireResponder, handler.Escalate)
		group.POST("/availability", requireResponder, handler.Toggle)
		group.GET("/availability/history", requireResponder, handler.AvailabilityHistory)

		group.GET("", middleware.RequireRole(), handler.ListResponders)
		group.POST("/incidents/:id/assign", middleware.RequireRole(), handler.AdminAssign)
		group.POST("/incidents/:id/unassign", middleware.RequireRole(), handler.Unassign)
	}
}
