package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/models"
	"github.com/ashack/portfolio-sub000/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.EnterpriseGroup{},
		&models.Invitation{},
		&models.EmailChangeRequest{},
		&models.AuditLog{},
		&models.Notification{},
	); err != nil {
		return err
	}

	// At most one pending email change request per user. GORM cannot express a
	// partial index, so it is created directly; the constraint is the final
	// authority when concurrent submits race past the in-transaction count.
	// MySQL has no partial indexes, there the transactional pre-check remains
	// the only guard.
	if db.Dialector.Name() != "mysql" {
		if err := db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_email_change_requests_pending_user
			 ON email_change_requests (user_id) WHERE status = 'pending'`,
		).Error; err != nil {
			return fmt.Errorf("create pending email change index: %w", err)
		}
	}

	return nil
}

// EnsureRootAccount seeds the first super admin on an empty installation.
// It is a no-op when credentials are not configured or a super admin already
// exists, so repeated start-ups never create duplicates.
func EnsureRootAccount(ctx context.Context, db *gorm.DB, email, password string) (bool, error) {
	if db == nil {
		return false, errors.New("ensure root account: db is required")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}

	var existing int64
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("privilege_tier = ?", models.TierSuperAdmin).
		Count(&existing).Error; err != nil {
		return false, fmt.Errorf("ensure root account: count: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("ensure root account: hash password: %w", err)
	}

	root := models.User{
		Email:           email,
		Password:        hash,
		MembershipTrack: models.TrackIndependent,
		PrivilegeTier:   models.TierSuperAdmin,
		Status:          models.StatusActive,
	}
	if err := db.WithContext(ctx).Create(&root).Error; err != nil {
		return false, fmt.Errorf("ensure root account: create: %w", err)
	}

	return true, nil
}
