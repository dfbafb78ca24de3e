package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/auditctx"
	"github.com/ashack/portfolio-sub000/internal/models"
)

func TestAuditServiceRejectsUnknownActions(t *testing.T) {
	db := openAuditTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	err = svc.Record(context.Background(), AuditEntry{Action: "made.up_action"})
	require.ErrorIs(t, err, ErrUnknownAction)

	err = svc.Record(context.Background(), AuditEntry{})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestAuditServiceEnrichesFromContextActor(t *testing.T) {
	db := openAuditTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	actor := createOrgUser(t, db, "ctx-actor@example.com", models.TrackIndependent)

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		UserID:    actor.ID,
		Email:     actor.Email,
		IPAddress: "203.0.113.7",
		UserAgent: "portfolio-test/1.0",
	})

	require.NoError(t, svc.Record(ctx, AuditEntry{
		Action:   ActionUserStatusChange,
		Metadata: map[string]any{"from": "active", "to": "locked"},
	}))

	var entry models.AuditLog
	require.NoError(t, db.First(&entry, "action = ?", ActionUserStatusChange).Error)
	require.NotNil(t, entry.ActorID)
	require.Equal(t, actor.ID, *entry.ActorID)
	require.Equal(t, "ctx-actor@example.com", entry.ActorEmail)
	require.Equal(t, "203.0.113.7", entry.IPAddress)
	require.Equal(t, "portfolio-test/1.0", entry.UserAgent)
	require.Contains(t, entry.Metadata, `"to":"locked"`)
}

func TestAuditServiceExplicitActorWinsOverContext(t *testing.T) {
	db := openAuditTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	ctx := auditctx.WithActor(context.Background(), auditctx.Actor{
		UserID: "ctx-id",
		Email:  "context@example.com",
	})

	explicit := createOrgUser(t, db, "explicit@example.com", models.TrackIndependent)
	require.NoError(t, svc.Record(ctx, AuditEntry{
		ActorID:    &explicit.ID,
		ActorEmail: explicit.Email,
		Action:     ActionUserCreate,
	}))

	var entry models.AuditLog
	require.NoError(t, db.First(&entry, "action = ?", ActionUserCreate).Error)
	require.Equal(t, explicit.ID, *entry.ActorID)
	require.Equal(t, "explicit@example.com", entry.ActorEmail)
}

func TestAuditServiceListFilters(t *testing.T) {
	db := openAuditTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	actor := createOrgUser(t, db, "filter-actor@example.com", models.TrackIndependent)
	affected := createOrgUser(t, db, "filter-affected@example.com", models.TrackIndependent)

	entries := []AuditEntry{
		{ActorID: &actor.ID, AffectedID: &affected.ID, Action: ActionUserCreate},
		{ActorID: &actor.ID, AffectedID: &affected.ID, Action: ActionEmailChangeBlocked, IPAddress: "198.51.100.4"},
		{ActorID: &actor.ID, Action: ActionInvitationIssue},
	}
	for _, entry := range entries {
		require.NoError(t, svc.Record(context.Background(), entry))
	}

	logs, total, err := svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{ActorID: actor.ID},
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, logs, 3)

	logs, total, err = svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{Action: ActionEmailChangeBlocked},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "198.51.100.4", logs[0].IPAddress)

	logs, total, err = svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{Category: CategorySecurity, ActorID: actor.ID},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, ActionEmailChangeBlocked, logs[0].Action)

	future := time.Now().Add(time.Hour)
	_, total, err = svc.List(context.Background(), AuditListOptions{
		Filters: AuditFilters{Since: &future},
	})
	require.NoError(t, err)
	require.Zero(t, total)

	exported, err := svc.Export(context.Background(), AuditFilters{AffectedID: affected.ID})
	require.NoError(t, err)
	require.Len(t, exported, 2)
}

func TestAuditServiceClassification(t *testing.T) {
	db := openAuditTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	require.True(t, svc.IsCritical(models.AuditLog{Action: ActionUserDestroy}))
	require.True(t, svc.IsCritical(models.AuditLog{Action: ActionSuperAdminEmailChange}))
	require.False(t, svc.IsCritical(models.AuditLog{Action: ActionUserCreate}))

	require.Equal(t, CategoryIdentity, svc.Category(models.AuditLog{Action: ActionUserCreate}))
	require.Equal(t, CategorySecurity, svc.Category(models.AuditLog{Action: ActionRoleChangeBlocked}))
	require.Equal(t, CategoryInvitation, svc.Category(models.AuditLog{Action: ActionInvitationRevoke}))

	// Every vocabulary entry carries a category.
	for _, category := range []ActionCategory{CategoryIdentity, CategoryEmailChange, CategoryInvitation, CategoryOrganization, CategorySecurity} {
		require.NotEmpty(t, ActionsInCategory(category))
	}
}

func TestAuditServiceCleanupOlderThan(t *testing.T) {
	db := openAuditTestDB(t)
	svc, err := NewAuditService(db)
	require.NoError(t, err)

	old := models.AuditLog{Action: ActionUserCreate, CreatedAt: time.Now().AddDate(0, 0, -120)}
	recent := models.AuditLog{Action: ActionUserCreate, CreatedAt: time.Now()}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)

	_, err = svc.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)

	removed, err := svc.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	var remaining int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)
}

func openAuditTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AuditLog{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
