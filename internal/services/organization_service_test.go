package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/models"
)

func TestOrganizationServiceCreateTeamResolvesSlugCollisions(t *testing.T) {
	db := openOrgTestDB(t)
	svc := newOrgService(t, db, nil)

	first := createOrgUser(t, db, "slug-admin-1@example.com", models.TrackTeamMember)
	second := createOrgUser(t, db, "slug-admin-2@example.com", models.TrackTeamMember)

	teamA, err := svc.CreateTeam(context.Background(), CreateTeamInput{Name: "Acme Rockets", AdminID: first.ID}, nil)
	require.NoError(t, err)
	require.Equal(t, "acme-rockets", teamA.Slug)

	teamB, err := svc.CreateTeam(context.Background(), CreateTeamInput{Name: "Acme Rockets!", AdminID: second.ID}, nil)
	require.NoError(t, err)
	require.Equal(t, "acme-rockets-1", teamB.Slug)

	// The admin is seated inside the creation transaction.
	var admin models.User
	require.NoError(t, db.First(&admin, "id = ?", first.ID).Error)
	require.NotNil(t, admin.TeamID)
	require.Equal(t, teamA.ID, *admin.TeamID)
	require.Equal(t, models.OrgRoleAdmin, admin.TeamRole)
}

func TestOrganizationServiceCreateTeamValidations(t *testing.T) {
	db := openOrgTestDB(t)
	svc := newOrgService(t, db, nil)

	_, err := svc.CreateTeam(context.Background(), CreateTeamInput{Name: "No Admin"}, nil)
	require.ErrorIs(t, err, ErrAdminRequired)

	independent := createOrgUser(t, db, "wrong-track@example.com", models.TrackIndependent)
	_, err = svc.CreateTeam(context.Background(), CreateTeamInput{Name: "Wrong Track", AdminID: independent.ID}, nil)
	require.Error(t, err)

	seated := createOrgUser(t, db, "seated@example.com", models.TrackTeamMember)
	_, err = svc.CreateTeam(context.Background(), CreateTeamInput{Name: "First Home", AdminID: seated.ID}, nil)
	require.NoError(t, err)
	_, err = svc.CreateTeam(context.Background(), CreateTeamInput{Name: "Second Home", AdminID: seated.ID}, nil)
	require.Error(t, err)
}

func TestOrganizationServiceCreateEnterpriseGroupDeferredAdmin(t *testing.T) {
	db := openOrgTestDB(t)
	svc := newOrgService(t, db, nil)

	group, err := svc.CreateEnterpriseGroup(context.Background(), CreateEnterpriseGroupInput{
		Name:       "Globex",
		DeferAdmin: true,
	}, nil)
	require.NoError(t, err)
	require.Nil(t, group.AdminID)
	require.True(t, group.AdminInvitePending)

	_, err = svc.CreateEnterpriseGroup(context.Background(), CreateEnterpriseGroupInput{Name: "No Seat"}, nil)
	require.ErrorIs(t, err, ErrAdminRequired)
}

func TestOrganizationServiceDestroyGuard(t *testing.T) {
	db := openOrgTestDB(t)
	svc := newOrgService(t, db, nil)

	admin := createOrgUser(t, db, "destroy-admin@example.com", models.TrackTeamMember)
	team, err := svc.CreateTeam(context.Background(), CreateTeamInput{Name: "Doomed", AdminID: admin.ID}, nil)
	require.NoError(t, err)

	err = svc.Destroy(context.Background(), models.OrgKindTeam, team.ID, nil)
	require.ErrorIs(t, err, ErrOrganizationNotEmpty)
	require.Equal(t, int64(1), countAuditEntries(t, db, ActionOrgDestroyBlocked, ""))

	// Detach the only member, then destruction goes through.
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", admin.ID).
		Updates(map[string]any{"team_id": nil, "team_role": ""}).Error)

	require.NoError(t, svc.Destroy(context.Background(), models.OrgKindTeam, team.ID, nil))
	require.Equal(t, int64(1), countAuditEntries(t, db, ActionOrgDestroy, ""))

	err = svc.Destroy(context.Background(), models.OrgKindTeam, team.ID, nil)
	require.ErrorIs(t, err, ErrOrganizationNotFound)
}

func TestOrganizationServiceCapacity(t *testing.T) {
	db := openOrgTestDB(t)
	resolver := NewStaticPlanResolver([]Plan{{Name: "tiny", Segment: "team", MaxMembers: 1}})
	svc := newOrgService(t, db, resolver)

	admin := createOrgUser(t, db, "capacity-admin@example.com", models.TrackTeamMember)
	team, err := svc.CreateTeam(context.Background(), CreateTeamInput{Name: "Tiny Crew", Plan: "tiny", AdminID: admin.ID}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, team.MaxMembers)

	ok, err := svc.CanAddMember(context.Background(), models.OrgKindTeam, team.ID)
	require.NoError(t, err)
	require.False(t, ok)

	count, err := svc.MemberCount(context.Background(), models.OrgKindTeam, team.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestOrganizationServiceReassignAdmin(t *testing.T) {
	db := openOrgTestDB(t)
	svc := newOrgService(t, db, nil)

	group, err := svc.CreateEnterpriseGroup(context.Background(), CreateEnterpriseGroupInput{
		Name:       "Initech",
		DeferAdmin: true,
	}, nil)
	require.NoError(t, err)

	outsider := createOrgUser(t, db, "outsider@example.com", models.TrackEnterpriseMember)
	err = svc.ReassignAdmin(context.Background(), models.OrgKindEnterprise, group.ID, outsider.ID, nil)
	require.Error(t, err)

	member := &models.User{
		Email:             "insider@example.com",
		Password:          "hashed",
		MembershipTrack:   models.TrackEnterpriseMember,
		PrivilegeTier:     models.TierStandard,
		Status:            models.StatusActive,
		EnterpriseGroupID: &group.ID,
		EnterpriseRole:    models.OrgRoleMember,
	}
	require.NoError(t, db.Create(member).Error)

	require.NoError(t, svc.ReassignAdmin(context.Background(), models.OrgKindEnterprise, group.ID, member.ID, nil))

	reloaded, err := svc.GetEnterpriseGroup(context.Background(), group.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.AdminID)
	require.Equal(t, member.ID, *reloaded.AdminID)
	require.False(t, reloaded.AdminInvitePending)

	var promoted models.User
	require.NoError(t, db.First(&promoted, "id = ?", member.ID).Error)
	require.Equal(t, models.OrgRoleAdmin, promoted.EnterpriseRole)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Rockets":   "acme-rockets",
		"  Trim Me  ":    "trim-me",
		"Dots.and/Marks": "dots-and-marks",
		"---":            "",
	}
	for input, want := range cases {
		require.Equal(t, want, slugify(input), "slugify(%q)", input)
	}
}

func openOrgTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.EnterpriseGroup{},
		&models.AuditLog{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func newOrgService(t *testing.T, db *gorm.DB, plans PlanResolver) *OrganizationService {
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewOrganizationService(db, audit, plans)
	require.NoError(t, err)
	return svc
}
