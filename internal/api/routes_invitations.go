package api

import (
	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/handlers"
)

// Token resolution and acceptance are registered unauthenticated in the
// router; everything here requires an account.
func registerInvitationRoutes(api *gin.RouterGroup, handler *handlers.InvitationHandler) {
	invites := api.Group("/invitations")
	{
		invites.GET("", handler.ListForOrg)
		invites.POST("", handler.Issue)
		invites.POST("/:id/resend", handler.Resend)
		invites.DELETE("/:id", handler.Revoke)
	}
}
