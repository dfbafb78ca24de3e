package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/models"
)

func TestInvitationServiceIssueAndAccept(t *testing.T) {
	db := openInvitationTestDB(t)
	fx := newInvitationFixture(t, db)

	team := fx.createTeam(t, "Design", "invite-issuer@example.com")

	invite, token, err := fx.invites.Issue(context.Background(), IssueInvitationInput{
		Email:   "Joiner@Example.com",
		OrgKind: models.OrgKindTeam,
		OrgID:   team.ID,
		Role:    models.OrgRoleMember,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "joiner@example.com", invite.Email)
	require.Equal(t, models.InvitationPending, invite.Status)
	require.NotEmpty(t, token)

	// Only the digest is persisted.
	require.Equal(t, tokenHash(token), invite.TokenHash)
	require.NotEqual(t, token, invite.TokenHash)

	user, err := fx.invites.Accept(context.Background(), token, AcceptInvitationInput{
		Password:  "JoinerPass123!",
		FirstName: "Jo",
	})
	require.NoError(t, err)
	require.Equal(t, models.TrackTeamMember, user.MembershipTrack)
	require.NotNil(t, user.TeamID)
	require.Equal(t, team.ID, *user.TeamID)
	require.Equal(t, models.OrgRoleMember, user.TeamRole)
	require.Equal(t, models.TierStandard, user.PrivilegeTier)

	// One acceptance only.
	_, err = fx.invites.Accept(context.Background(), token, AcceptInvitationInput{Password: "AnotherPass123!"})
	require.ErrorIs(t, err, ErrInviteAlreadyAccepted)

	require.Equal(t, int64(1), countAuditEntries(t, db, ActionInvitationAccept, user.ID))
}

func TestInvitationServiceIssueRejectsRegisteredEmail(t *testing.T) {
	db := openInvitationTestDB(t)
	fx := newInvitationFixture(t, db)

	team := fx.createTeam(t, "Support", "support-admin@example.com")
	createOrgUser(t, db, "taken@example.com", models.TrackIndependent)

	_, _, err := fx.invites.Issue(context.Background(), IssueInvitationInput{
		Email:   "taken@example.com",
		OrgKind: models.OrgKindTeam,
		OrgID:   team.ID,
		Role:    models.OrgRoleMember,
	}, nil)
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestInvitationServiceIssueRespectsCapacity(t *testing.T) {
	db := openInvitationTestDB(t)
	resolver := NewStaticPlanResolver([]Plan{{Name: "tiny", Segment: "team", MaxMembers: 1}})
	fx := newInvitationFixtureWithPlans(t, db, resolver)

	admin := createOrgUser(t, db, "full-admin@example.com", models.TrackTeamMember)
	team, err := fx.orgs.CreateTeam(context.Background(), CreateTeamInput{Name: "Full House", Plan: "tiny", AdminID: admin.ID}, nil)
	require.NoError(t, err)

	_, _, err = fx.invites.Issue(context.Background(), IssueInvitationInput{
		Email:   "overflow@example.com",
		OrgKind: models.OrgKindTeam,
		OrgID:   team.ID,
		Role:    models.OrgRoleMember,
	}, nil)
	require.ErrorIs(t, err, ErrOrganizationCapacity)
}

func TestInvitationServiceExpiry(t *testing.T) {
	db := openInvitationTestDB(t)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newInvitationFixture(t, db,
		WithInviteClock(func() time.Time { return current }),
		WithInviteExpiry(24*time.Hour),
	)

	team := fx.createTeam(t, "Night Shift", "night-admin@example.com")

	_, token, err := fx.invites.Issue(context.Background(), IssueInvitationInput{
		Email:   "late@example.com",
		OrgKind: models.OrgKindTeam,
		OrgID:   team.ID,
		Role:    models.OrgRoleMember,
	}, nil)
	require.NoError(t, err)

	current = current.Add(48 * time.Hour)

	_, err = fx.invites.Accept(context.Background(), token, AcceptInvitationInput{Password: "LatePass123!"})
	require.ErrorIs(t, err, ErrInviteExpired)

	// The sweep flips the stored status for reporting; acceptance stays rejected.
	affected, err := fx.invites.ExpireStale(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	reloaded, err := fx.invites.GetByToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, models.InvitationExpired, reloaded.Status)

	// A second sweep is a no-op.
	affected, err = fx.invites.ExpireStale(context.Background())
	require.NoError(t, err)
	require.Zero(t, affected)
}

func TestInvitationServiceResendRotatesToken(t *testing.T) {
	db := openInvitationTestDB(t)
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fx := newInvitationFixture(t, db,
		WithInviteClock(func() time.Time { return current }),
		WithInviteExpiry(6*time.Hour),
	)

	team := fx.createTeam(t, "Ops", "ops-admin@example.com")

	invite, originalToken, err := fx.invites.Issue(context.Background(), IssueInvitationInput{
		Email:   "resend@example.com",
		OrgKind: models.OrgKindTeam,
		OrgID:   team.ID,
		Role:    models.OrgRoleMember,
	}, nil)
	require.NoError(t, err)
	originalHash := invite.TokenHash
	originalExpiry := invite.ExpiresAt

	current = current.Add(3 * time.Hour)

	resent, err := fx.invites.Resend(context.Background(), invite.ID, nil)
	require.NoError(t, err)
	require.NotEqual(t, originalHash, resent.TokenHash)
	require.True(t, resent.ExpiresAt.After(originalExpiry))

	// The rotated offer invalidates the old link.
	_, err = fx.invites.GetByToken(context.Background(), originalToken)
	require.ErrorIs(t, err, ErrInviteNotFound)

	// Past expiry the offer can no longer be extended.
	current = current.Add(48 * time.Hour)
	_, err = fx.invites.Resend(context.Background(), invite.ID, nil)
	require.ErrorIs(t, err, ErrInviteExpired)
}

func TestInvitationServiceEnterpriseAdminFlow(t *testing.T) {
	db := openInvitationTestDB(t)
	fx := newInvitationFixture(t, db)

	group, err := fx.orgs.CreateEnterpriseGroup(context.Background(), CreateEnterpriseGroupInput{
		Name:       "Umbrella",
		DeferAdmin: true,
	}, nil)
	require.NoError(t, err)
	require.True(t, group.AdminInvitePending)

	_, token, err := fx.invites.Issue(context.Background(), IssueInvitationInput{
		Email:   "future-admin@example.com",
		OrgKind: models.OrgKindEnterprise,
		OrgID:   group.ID,
		Role:    models.OrgRoleAdmin,
	}, nil)
	require.NoError(t, err)

	user, err := fx.invites.Accept(context.Background(), token, AcceptInvitationInput{Password: "AdminPass123!"})
	require.NoError(t, err)
	require.Equal(t, models.TrackEnterpriseMember, user.MembershipTrack)
	require.Equal(t, models.OrgRoleAdmin, user.EnterpriseRole)

	reloaded, err := fx.orgs.GetEnterpriseGroup(context.Background(), group.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.AdminID)
	require.Equal(t, user.ID, *reloaded.AdminID)
	require.False(t, reloaded.AdminInvitePending)
}

func TestInvitationServiceRevokeClearsDeferredAdminFlag(t *testing.T) {
	db := openInvitationTestDB(t)
	fx := newInvitationFixture(t, db)

	group, err := fx.orgs.CreateEnterpriseGroup(context.Background(), CreateEnterpriseGroupInput{
		Name:       "Hooli",
		DeferAdmin: true,
	}, nil)
	require.NoError(t, err)

	first, _, err := fx.invites.Issue(context.Background(), IssueInvitationInput{
		Email:   "candidate-1@example.com",
		OrgKind: models.OrgKindEnterprise,
		OrgID:   group.ID,
		Role:    models.OrgRoleAdmin,
	}, nil)
	require.NoError(t, err)

	second, _, err := fx.invites.Issue(context.Background(), IssueInvitationInput{
		Email:   "candidate-2@example.com",
		OrgKind: models.OrgKindEnterprise,
		OrgID:   group.ID,
		Role:    models.OrgRoleAdmin,
	}, nil)
	require.NoError(t, err)

	// Another admin offer is still outstanding, so the flag stays up.
	require.NoError(t, fx.invites.Revoke(context.Background(), first.ID, nil))
	reloaded, err := fx.orgs.GetEnterpriseGroup(context.Background(), group.ID)
	require.NoError(t, err)
	require.True(t, reloaded.AdminInvitePending)

	require.NoError(t, fx.invites.Revoke(context.Background(), second.ID, nil))
	reloaded, err = fx.orgs.GetEnterpriseGroup(context.Background(), group.ID)
	require.NoError(t, err)
	require.False(t, reloaded.AdminInvitePending)
}

func TestInvitationServiceExpireStaleClearsDeferredAdminFlag(t *testing.T) {
	db := openInvitationTestDB(t)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fx := newInvitationFixture(t, db,
		WithInviteClock(func() time.Time { return current }),
		WithInviteExpiry(time.Hour),
	)

	group, err := fx.orgs.CreateEnterpriseGroup(context.Background(), CreateEnterpriseGroupInput{
		Name:       "Stale Corp",
		DeferAdmin: true,
	}, nil)
	require.NoError(t, err)

	_, _, err = fx.invites.Issue(context.Background(), IssueInvitationInput{
		Email:   "stale-admin@example.com",
		OrgKind: models.OrgKindEnterprise,
		OrgID:   group.ID,
		Role:    models.OrgRoleAdmin,
	}, nil)
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)

	affected, err := fx.invites.ExpireStale(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	reloaded, err := fx.orgs.GetEnterpriseGroup(context.Background(), group.ID)
	require.NoError(t, err)
	require.False(t, reloaded.AdminInvitePending)
}

func TestInvitationServiceListForOrg(t *testing.T) {
	db := openInvitationTestDB(t)
	fx := newInvitationFixture(t, db)

	team := fx.createTeam(t, "Listing", "list-admin@example.com")

	for _, email := range []string{"inv-1@example.com", "inv-2@example.com"} {
		_, _, err := fx.invites.Issue(context.Background(), IssueInvitationInput{
			Email:   email,
			OrgKind: models.OrgKindTeam,
			OrgID:   team.ID,
			Role:    models.OrgRoleMember,
		}, nil)
		require.NoError(t, err)
	}

	invites, err := fx.invites.ListForOrg(context.Background(), models.OrgKindTeam, team.ID)
	require.NoError(t, err)
	require.Len(t, invites, 2)
}

type invitationFixture struct {
	orgs    *OrganizationService
	invites *InvitationService
}

func newInvitationFixture(t *testing.T, db *gorm.DB, opts ...InviteOption) *invitationFixture {
	return newInvitationFixtureWithPlans(t, db, nil, opts...)
}

func newInvitationFixtureWithPlans(t *testing.T, db *gorm.DB, plans PlanResolver, opts ...InviteOption) *invitationFixture {
	audit, err := NewAuditService(db)
	require.NoError(t, err)

	orgs, err := NewOrganizationService(db, audit, plans)
	require.NoError(t, err)

	invites, err := NewInvitationService(db, audit, orgs, nil, opts...)
	require.NoError(t, err)

	return &invitationFixture{orgs: orgs, invites: invites}
}

func (fx *invitationFixture) createTeam(t *testing.T, name, adminEmail string) *models.Team {
	admin := createOrgUser(t, fx.orgs.db, adminEmail, models.TrackTeamMember)
	team, err := fx.orgs.CreateTeam(context.Background(), CreateTeamInput{Name: name, AdminID: admin.ID}, nil)
	require.NoError(t, err)
	return team
}

func openInvitationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.EnterpriseGroup{},
		&models.Invitation{},
		&models.AuditLog{},
		&models.Notification{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
