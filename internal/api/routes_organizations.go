package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/handlers"
)

func registerOrganizationRoutes(api *gin.RouterGroup, handler *handlers.OrganizationHandler) {
	teams := api.Group("/teams")
	{
		teams.POST("", handler.CreateTeam)
		teams.GET("/:id", handler.GetTeam)
		teams.GET("/:id/capacity", handler.TeamCapacity)
		teams.PUT("/:id/admin", handler.ReassignTeamAdmin)
		teams.DELETE("/:id", handler.DestroyTeam)
	}

	groups := api.Group("/enterprise-groups")
	{
		groups.POST("", handler.CreateEnterpriseGroup)
		groups.GET("/:id", handler.GetEnterpriseGroup)
		groups.GET("/:id/capacity", handler.GroupCapacity)
		groups.PUT("/:id/admin", handler.ReassignGroupAdmin)
		groups.DELETE("/:id", handler.DestroyEnterpriseGroup)
	}
}
