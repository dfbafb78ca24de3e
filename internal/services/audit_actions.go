package services

// Ledger action vocabulary, v1. The set is closed: AuditService.Record rejects
// unknown tags so mutation code cannot invent ad-hoc actions.
const (
	ActionUserCreate            = "user.create"
	ActionUserDestroy           = "user.destroy"
	ActionUserStatusChange      = "user.status_change"
	ActionUserPrivilegeChange   = "user.privilege_change"
	ActionRoleChangeBlocked     = "user.role_change_blocked"
	ActionEmailChangeBlocked    = "email_change_attempt_blocked"
	ActionSuperAdminEmailChange = "super_admin_email_change"
	ActionEmailChangeSubmit     = "email_change.submit"
	ActionEmailChangeApproved   = "email_change_approved"
	ActionEmailChangeRejected   = "email_change_rejected"
	ActionEmailChangeExpired    = "email_change.expired"
	ActionInvitationIssue       = "invitation.issue"
	ActionInvitationAccept      = "invitation.accept"
	ActionInvitationResend      = "invitation.resend"
	ActionInvitationRevoke      = "invitation.revoke"
	ActionOrgCreate             = "org.create"
	ActionOrgDestroy            = "org.destroy"
	ActionOrgDestroyBlocked     = "org.destroy_blocked"
	ActionOrgAdminReassign      = "org.admin_reassign"
	ActionOrgMemberRoleChange   = "org.member_role_change"
)

// ActionCategory groups ledger actions for reporting queries.
type ActionCategory string

const (
	CategoryIdentity     ActionCategory = "identity"
	CategoryEmailChange  ActionCategory = "email_change"
	CategoryInvitation   ActionCategory = "invitation"
	CategoryOrganization ActionCategory = "organization"
	CategorySecurity     ActionCategory = "security"
)

var actionCategories = map[string]ActionCategory{
	ActionUserCreate:            CategoryIdentity,
	ActionUserDestroy:           CategoryIdentity,
	ActionUserStatusChange:      CategoryIdentity,
	ActionUserPrivilegeChange:   CategoryIdentity,
	ActionRoleChangeBlocked:     CategorySecurity,
	ActionEmailChangeBlocked:    CategorySecurity,
	ActionSuperAdminEmailChange: CategorySecurity,
	ActionEmailChangeSubmit:     CategoryEmailChange,
	ActionEmailChangeApproved:   CategoryEmailChange,
	ActionEmailChangeRejected:   CategoryEmailChange,
	ActionEmailChangeExpired:    CategoryEmailChange,
	ActionInvitationIssue:       CategoryInvitation,
	ActionInvitationAccept:      CategoryInvitation,
	ActionInvitationResend:      CategoryInvitation,
	ActionInvitationRevoke:      CategoryInvitation,
	ActionOrgCreate:             CategoryOrganization,
	ActionOrgDestroy:            CategoryOrganization,
	ActionOrgDestroyBlocked:     CategoryOrganization,
	ActionOrgAdminReassign:      CategoryOrganization,
	ActionOrgMemberRoleChange:   CategoryOrganization,
}

// criticalActions are destructive or impersonation-class entries surfaced
// prominently by reporting consumers.
var criticalActions = map[string]struct{}{
	ActionUserDestroy:           {},
	ActionOrgDestroy:            {},
	ActionSuperAdminEmailChange: {},
	ActionEmailChangeBlocked:    {},
	ActionRoleChangeBlocked:     {},
}

// KnownAction reports whether the tag belongs to the closed vocabulary.
func KnownAction(action string) bool {
	_, ok := actionCategories[action]
	return ok
}

// CategoryOf returns the reporting category for a ledger action tag.
func CategoryOf(action string) ActionCategory {
	return actionCategories[action]
}

// IsCriticalAction reports whether the tag is a critical-class action.
func IsCriticalAction(action string) bool {
	_, ok := criticalActions[action]
	return ok
}

// ActionsInCategory lists the vocabulary entries belonging to a category.
func ActionsInCategory(category ActionCategory) []string {
	var actions []string
	for action, cat := range actionCategories {
		if cat == category {
			actions = append(actions, action)
		}
	}
	return actions
}
