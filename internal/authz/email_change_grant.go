// Package authz holds narrowly scoped authorization tokens passed explicitly
// into privileged mutations, instead of ambient per-request flags.
package authz

// EmailChangeGrant authorizes exactly one email mutation for one user. Only
// the email-change approval transaction and the audited super-admin bypass can
// mint one; the zero value never authorizes anything.
type EmailChangeGrant struct {
	userID string
	source GrantSource
}

// GrantSource records which path minted a grant.
type GrantSource string

const (
	GrantSourceApproval         GrantSource = "email_change_approval"
	GrantSourceSuperAdminBypass GrantSource = "super_admin_bypass"
)

// NewEmailChangeGrant mints a grant scoped to the given user.
func NewEmailChangeGrant(userID string, source GrantSource) EmailChangeGrant {
	return EmailChangeGrant{userID: userID, source: source}
}

// Permits reports whether the grant authorizes an email mutation for userID.
func (g EmailChangeGrant) Permits(userID string) bool {
	return g.userID != "" && g.userID == userID
}

// Source returns the minting path, used for ledger metadata.
func (g EmailChangeGrant) Source() GrantSource {
	return g.source
}
