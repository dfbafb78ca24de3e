package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.GET("", handler.List)
		users.POST("", handler.Create)
		users.PUT("/profile", handler.UpdateProfile)
		users.PUT("/email", handler.ChangeOwnEmail)
		users.GET("/:id", handler.Get)
		users.PUT("/:id/status", handler.ChangeStatus)
		users.PUT("/:id/tier", handler.ChangeTier)
		users.PUT("/:id/org-role", handler.ChangeOrgRole)
		users.DELETE("/:id", handler.Destroy)
	}
}
