package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/handlers"
)

func registerEmailChangeRoutes(api *gin.RouterGroup, handler *handlers.EmailChangeHandler) {
	changes := api.Group("/email-changes")
	{
		changes.POST("", handler.Submit)
		changes.GET("/pending", handler.ListPending)
		changes.POST("/:id/approve", handler.Approve)
		changes.POST("/:id/reject", handler.Reject)
	}
}
