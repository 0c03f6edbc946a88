package api

import (
	"github.com/gin-gonic/gin"

	"github.com/aidalert/aidalert/internal/handlers"
	"github.com/aidalert/aidalert/internal/middleware"
	"github.com/aidalert/aidalert/internal/models"
)

func registerIncidentRoutes(api *gin.RouterGroup, handler *handlers.IncidentHandler) {
	group := api.Group("/incidents")
	{
		group.POST("", handler.Report)
		group.GET("/mine", handler.Mine)
		group.GET("/:id", handler.Get)
		group.GET("/:id/history", handler.History)

		group.GET("", middleware.RequireRole(models.RoleResponder), handler.List)
		group.POST("/:id/transition", middleware.RequireRole(), handler.Transition)
		group.POST("/:id/escalate", middleware.RequireRole(models.RoleFacility), handler.Escalate)
	}
}
