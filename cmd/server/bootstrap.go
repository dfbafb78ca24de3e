package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/api"
	"github.com/ashack/portfolio-sub000/internal/app"
	"github.com/ashack/portfolio-sub000/internal/app/maintenance"
	iauth "github.com/ashack/portfolio-sub000/internal/auth"
	"github.com/ashack/portfolio-sub000/internal/database"
	"github.com/ashack/portfolio-sub000/internal/services"
	"github.com/ashack/portfolio-sub000/pkg/logger"
	"github.com/ashack/portfolio-sub000/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB            *gorm.DB
	AuditSvc      *services.AuditService
	Identities    *services.IdentityService
	Organizations *services.OrganizationService
	Invitations   *services.InvitationService
	EmailChanges  *services.EmailChangeService
	Notifications *services.NotificationService
	Cleaner       *maintenance.Cleaner
	Router        *gin.Engine
}

// bootstrapRuntime initialises the database, services, maintenance jobs, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if created, err := database.EnsureRootAccount(ctx, stack.DB, cfg.Bootstrap.RootEmail, cfg.Bootstrap.RootPassword); err != nil {
		return nil, err
	} else if created {
		log.Info("root account created", zap.String("email", strings.ToLower(strings.TrimSpace(cfg.Bootstrap.RootEmail))))
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	stack.AuditSvc, err = services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	stack.Notifications, err = services.NewNotificationService(stack.DB, mailer)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	stack.Identities, err = services.NewIdentityService(stack.DB, stack.AuditSvc, stack.Notifications,
		services.WithFailedAuthLimit(cfg.Auth.FailedAuthLimit()))
	if err != nil {
		return nil, fmt.Errorf("initialise identity service: %w", err)
	}

	stack.Organizations, err = services.NewOrganizationService(stack.DB, stack.AuditSvc,
		services.NewStaticPlanResolver(cfg.PlanSet()))
	if err != nil {
		return nil, fmt.Errorf("initialise organization service: %w", err)
	}

	inviteOpts := []services.InviteOption{
		services.WithInviteBaseURL(cfg.Invitations.BaseURL),
	}
	if cfg.Invitations.Expiry > 0 {
		inviteOpts = append(inviteOpts, services.WithInviteExpiry(cfg.Invitations.Expiry))
	}
	if cfg.Invitations.TokenLength > 0 {
		inviteOpts = append(inviteOpts, services.WithInviteTokenSize(cfg.Invitations.TokenLength))
	}
	stack.Invitations, err = services.NewInvitationService(stack.DB, stack.AuditSvc, stack.Organizations, stack.Notifications, inviteOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise invitation service: %w", err)
	}

	var changeOpts []services.EmailChangeOption
	if cfg.EmailChanges.ReviewWindow > 0 {
		changeOpts = append(changeOpts, services.WithReviewWindow(cfg.EmailChanges.ReviewWindow))
	}
	stack.EmailChanges, err = services.NewEmailChangeService(stack.DB, stack.AuditSvc, stack.Identities, stack.Notifications, changeOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise email change service: %w", err)
	}

	stack.Cleaner = maintenance.NewCleaner(stack.DB, stack.Invitations, stack.EmailChanges, stack.AuditSvc,
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithInvitationSchedule(cfg.Maintenance.InvitationSweepCron),
		maintenance.WithEmailChangeSchedule(cfg.Maintenance.EmailChangeCron),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditCleanupCron),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(stack.DB, jwtSvc, api.Services{
		Identities:    stack.Identities,
		Organizations: stack.Organizations,
		Invitations:   stack.Invitations,
		EmailChanges:  stack.EmailChanges,
		Audit:         stack.AuditSvc,
		Notifications: stack.Notifications,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases runtime resources in reverse dependency order.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
		s.Cleaner = nil
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
		s.DB = nil
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
		dbCfg.Options = parseDSNOptions(cfg.Database.Postgres.Options)
	case "mysql", "mariadb":
		dbCfg.Driver = "mysql"
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
		dbCfg.Options = parseDSNOptions(cfg.Database.MySQL.Options)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

// parseDSNOptions converts "key=value,key=value" into a map.
func parseDSNOptions(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	options := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			continue
		}
		options[key] = strings.TrimSpace(value)
	}
	if len(options) == 0 {
		return nil
	}
	return options
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
