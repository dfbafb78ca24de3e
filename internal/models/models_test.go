package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAdjacentTier(t *testing.T) {
	require.True(t, AdjacentTier(TierStandard, TierSupportAdmin))
	require.True(t, AdjacentTier(TierSupportAdmin, TierStandard))
	require.True(t, AdjacentTier(TierSupportAdmin, TierSuperAdmin))
	require.True(t, AdjacentTier(TierSuperAdmin, TierSupportAdmin))

	// Two-step jumps are never a single transition.
	require.False(t, AdjacentTier(TierStandard, TierSuperAdmin))
	require.False(t, AdjacentTier(TierSuperAdmin, TierStandard))
	require.False(t, AdjacentTier(TierStandard, TierStandard))
}

func TestUserOrganizationRef(t *testing.T) {
	teamID := "11111111-1111-1111-1111-111111111111"
	user := User{MembershipTrack: TrackTeamMember, TeamID: &teamID, TeamRole: OrgRoleAdmin}

	kind, ref, ok := user.OrganizationRef()
	require.True(t, ok)
	require.Equal(t, OrgKindTeam, kind)
	require.Equal(t, teamID, ref)
	require.Equal(t, OrgRoleAdmin, user.OrganizationRole())

	solo := User{MembershipTrack: TrackIndependent}
	_, _, ok = solo.OrganizationRef()
	require.False(t, ok)
	require.Empty(t, solo.OrganizationRole())
}

func TestInvitationTrackAndExpiry(t *testing.T) {
	now := time.Now()

	invite := Invitation{OrgKind: OrgKindEnterprise, ExpiresAt: now.Add(time.Hour)}
	require.Equal(t, TrackEnterpriseMember, invite.Track())
	require.False(t, invite.ExpiredAt(now))
	require.True(t, invite.ExpiredAt(now.Add(2*time.Hour)))

	invite.OrgKind = OrgKindTeam
	require.Equal(t, TrackTeamMember, invite.Track())
}

func TestEmailChangeRequestStaleAt(t *testing.T) {
	now := time.Now()
	window := 30 * 24 * time.Hour

	fresh := EmailChangeRequest{RequestedAt: now.Add(-29 * 24 * time.Hour)}
	require.False(t, fresh.StaleAt(now, window))

	stale := EmailChangeRequest{RequestedAt: now.Add(-31 * 24 * time.Hour)}
	require.True(t, stale.StaleAt(now, window))
}
