package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/handlers"
)

func registerAuditRoutes(api *gin.RouterGroup, handler *handlers.AuditHandler) {
	audit := api.Group("/audit")
	{
		audit.GET("", handler.List)
		audit.GET("/export", handler.Export)
	}
}
