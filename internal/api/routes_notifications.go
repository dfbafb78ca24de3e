package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	notifications := api.Group("/notifications")
	{
		notifications.GET("", handler.List)
		notifications.PUT("/:id/read", handler.MarkRead)
	}
}
