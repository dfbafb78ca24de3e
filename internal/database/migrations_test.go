package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashack/portfolio-sub000/internal/models"
)

func TestAutoMigrateCreatesSchema(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	for _, model := range []any{
		&models.User{},
		&models.Team{},
		&models.EnterpriseGroup{},
		&models.Invitation{},
		&models.EmailChangeRequest{},
		&models.AuditLog{},
		&models.Notification{},
	} {
		require.True(t, db.Migrator().HasTable(model), "expected table for %T", model)
	}

	// Migration is idempotent.
	require.NoError(t, AutoMigrate(db))
}

func TestAutoMigrateEnforcesSinglePendingEmailChange(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	user := models.User{
		Email:           "pending-guard@example.com",
		Password:        "x",
		MembershipTrack: models.TrackIndependent,
		PrivilegeTier:   models.TierStandard,
		Status:          models.StatusActive,
	}
	require.NoError(t, db.Create(&user).Error)

	first := models.EmailChangeRequest{
		UserID:      user.ID,
		NewEmail:    "first@example.com",
		Reason:      "first pending request",
		TokenHash:   "hash-first",
		Status:      models.EmailChangePending,
		RequestedAt: time.Now(),
	}
	require.NoError(t, db.Create(&first).Error)

	// A second pending row for the same user violates the partial index even
	// when the application-level pre-check is bypassed.
	second := models.EmailChangeRequest{
		UserID:      user.ID,
		NewEmail:    "second@example.com",
		Reason:      "second pending request",
		TokenHash:   "hash-second",
		Status:      models.EmailChangePending,
		RequestedAt: time.Now(),
	}
	require.Error(t, db.Create(&second).Error)

	// Settled requests do not block a new pending one.
	require.NoError(t, db.Model(&first).Update("status", models.EmailChangeApproved).Error)
	second.ID = ""
	require.NoError(t, db.Create(&second).Error)
}
