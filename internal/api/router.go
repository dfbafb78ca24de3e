package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/ashack/portfolio-sub000/internal/auth"
	"github.com/ashack/portfolio-sub000/internal/handlers"
	"github.com/ashack/portfolio-sub000/internal/middleware"
	"github.com/ashack/portfolio-sub000/internal/services"
)

// Services bundles the wired service layer handed to the router.
type Services struct {
	Identities    *services.IdentityService
	Organizations *services.OrganizationService
	Invitations   *services.InvitationService
	EmailChanges  *services.EmailChangeService
	Audit         *services.AuditService
	Notifications *services.NotificationService
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if svcs.Identities == nil || svcs.Organizations == nil || svcs.Invitations == nil ||
		svcs.EmailChanges == nil || svcs.Audit == nil || svcs.Notifications == nil {
		return nil, fmt.Errorf("all services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	// Health endpoint (public)
	r.GET("/healthz", handlers.Health())

	inviteHandler := handlers.NewInvitationHandler(svcs.Invitations)

	// Invitees hold a token, not an account; resolution and acceptance are public.
	r.GET("/api/invites/:token", inviteHandler.Info)
	r.POST("/api/invites/:token/accept", inviteHandler.Accept)

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(jwt, db))

	registerUserRoutes(api, handlers.NewUserHandler(svcs.Identities))
	registerOrganizationRoutes(api, handlers.NewOrganizationHandler(svcs.Organizations))
	registerInvitationRoutes(api, inviteHandler)
	registerEmailChangeRoutes(api, handlers.NewEmailChangeHandler(svcs.EmailChanges))
	registerAuditRoutes(api, handlers.NewAuditHandler(svcs.Audit))
	registerNotificationRoutes(api, handlers.NewNotificationHandler(svcs.Notifications))

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
