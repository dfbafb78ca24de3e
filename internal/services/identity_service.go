package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/authz"
	"github.com/ashack/portfolio-sub000/internal/models"
	"github.com/ashack/portfolio-sub000/pkg/crypto"
	apperrors "github.com/ashack/portfolio-sub000/pkg/errors"
	"github.com/ashack/portfolio-sub000/pkg/metrics"
)

const defaultFailedAuthLimit = 5

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrAlreadyRegistered signals the email already belongs to an account.
	ErrAlreadyRegistered = apperrors.New("ALREADY_REGISTERED", "Email address already registered", http.StatusConflict)
	// ErrImmutableField rejects writes to fields fixed at creation time.
	ErrImmutableField = apperrors.New("IMMUTABLE_FIELD", "Field cannot be changed after creation", http.StatusBadRequest)
	// ErrUnauthorizedMutation rejects privileged mutations outside their approved
	// workflow. The message is deliberately generic.
	ErrUnauthorizedMutation = apperrors.New("UNAUTHORIZED_MUTATION", "Use the secure email change workflow", http.StatusForbidden)
	// ErrSelfPrivilegeChange rejects privilege tier changes on one's own account.
	ErrSelfPrivilegeChange = apperrors.New("PRIVILEGE_SELF_CHANGE", "Privilege tier cannot be changed on your own account", http.StatusForbidden)
	// ErrPrivilegeNotAdjacent rejects tier jumps that skip a step.
	ErrPrivilegeNotAdjacent = apperrors.New("PRIVILEGE_STEP_INVALID", "Privilege tier transition not permitted", http.StatusBadRequest)
	// ErrLastAdmin protects organizations from losing their only admin.
	ErrLastAdmin = apperrors.New("LAST_ADMIN", "Organization must retain at least one admin", http.StatusConflict)
)

// CreateUserInput describes a direct signup. Direct signups are always on the
// independent track; team and enterprise accounts only come from invitations.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UpdateProfileInput enumerates the self-service mutable attributes. Email is
// accepted here only so the guard can strip and audit the attempt; it is never
// applied.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// UserFilters captures listing filters.
type UserFilters struct {
	Track  models.MembershipTrack
	Tier   models.PrivilegeTier
	Status models.UserStatus
	Query  string
}

// ListUsersOptions controls pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
	Filters  UserFilters
}

// IdentityService guards every mutation of a user record: membership-track
// immutability, the email change workflow boundary, privilege tier adjacency,
// and the sole-admin rule. Every privileged mutation or blocked attempt lands
// in the ledger.
type IdentityService struct {
	db            *gorm.DB
	audit         *AuditService
	notifications *NotificationService
	failedLimit   int
	now           func() time.Time
}

// IdentityOption customises IdentityService behaviour.
type IdentityOption func(*IdentityService)

// WithIdentityClock injects a custom clock primarily for testing.
func WithIdentityClock(clock func() time.Time) IdentityOption {
	return func(s *IdentityService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithFailedAuthLimit overrides the failed-auth lockout threshold.
func WithFailedAuthLimit(limit int) IdentityOption {
	return func(s *IdentityService) {
		if limit > 0 {
			s.failedLimit = limit
		}
	}
}

// NewIdentityService constructs an IdentityService instance.
func NewIdentityService(db *gorm.DB, audit *AuditService, notifications *NotificationService, opts ...IdentityOption) (*IdentityService, error) {
	if db == nil {
		return nil, errors.New("identity service: db is required")
	}
	service := &IdentityService{
		db:            db,
		audit:         audit,
		notifications: notifications,
		failedLimit:   defaultFailedAuthLimit,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Create provisions an independent-track user from a direct signup.
func (s *IdentityService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("identity service: hash password: %w", err)
	}

	user := &models.User{
		Email:           email,
		Password:        hashed,
		FirstName:       strings.TrimSpace(input.FirstName),
		LastName:        strings.TrimSpace(input.LastName),
		MembershipTrack: models.TrackIndependent,
		PrivilegeTier:   models.TierStandard,
		Status:          models.StatusActive,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, AuditEntry{
			AffectedID: &user.ID,
			Action:     ActionUserCreate,
			Metadata: map[string]any{
				"email": user.Email,
				"track": user.MembershipTrack,
			},
		})
	})
	if err != nil {
		return nil, mapConstraintError(err, ErrAlreadyRegistered)
	}

	return user, nil
}

// NewUserFromInvitation builds (without persisting) a user whose track,
// organization and role are frozen from the invitation. The invitation
// workflow persists it inside its acceptance transaction.
func NewUserFromInvitation(invite *models.Invitation, password, firstName, lastName string) (*models.User, error) {
	if invite == nil {
		return nil, errors.New("identity service: invitation is required")
	}

	hashed, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("identity service: hash password: %w", err)
	}

	user := &models.User{
		Email:           normalizeEmail(invite.Email),
		Password:        hashed,
		FirstName:       strings.TrimSpace(firstName),
		LastName:        strings.TrimSpace(lastName),
		MembershipTrack: invite.Track(),
		PrivilegeTier:   models.TierStandard,
		Status:          models.StatusActive,
	}

	orgID := invite.OrgID
	switch invite.OrgKind {
	case models.OrgKindTeam:
		user.TeamID = &orgID
		user.TeamRole = invite.Role
	case models.OrgKindEnterprise:
		user.EnterpriseGroupID = &orgID
		user.EnterpriseRole = invite.Role
	default:
		return nil, apperrors.NewBadRequest("invitation has no valid organization reference")
	}

	return user, nil
}

// GetByID loads a user by identifier including organization associations.
func (s *IdentityService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Team").
		Preload("EnterpriseGroup").
		First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity service: get user: %w", err)
	}
	return &user, nil
}

// GetByEmail loads a user by their normalized email address.
func (s *IdentityService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", normalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("identity service: get user by email: %w", err)
	}
	return &user, nil
}

// List retrieves users matching the supplied filters with pagination.
func (s *IdentityService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if opts.Filters.Track != "" {
		query = query.Where("membership_track = ?", opts.Filters.Track)
	}
	if opts.Filters.Tier != "" {
		query = query.Where("privilege_tier = ?", opts.Filters.Tier)
	}
	if opts.Filters.Status != "" {
		query = query.Where("status = ?", opts.Filters.Status)
	}
	if q := strings.TrimSpace(opts.Filters.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("lower(email) LIKE ? OR lower(first_name) LIKE ? OR lower(last_name) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("identity service: count users: %w", err)
	}

	var users []models.User
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("identity service: list users: %w", err)
	}

	return users, total, nil
}

// ChangeMembershipTrack always fails: the track is fixed at creation. The
// explicit rejection (rather than a silent no-op) exists so callers surface
// the violation to the user.
func (s *IdentityService) ChangeMembershipTrack(ctx context.Context, userID string, _ models.MembershipTrack) error {
	_ = ensureContext(ctx)
	_ = userID
	return ErrImmutableField
}

// UpdateProfile applies self-service profile changes. An email value in the
// input is stripped before processing, audited as a blocked attempt, and never
// applied; remaining fields still go through.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		attempted := normalizeEmail(*input.Email)
		input.Email = nil
		if attempted != "" && attempted != user.Email {
			recordAudit(s.audit, ctx, AuditEntry{
				AffectedID: &user.ID,
				Action:     ActionEmailChangeBlocked,
				Metadata: map[string]any{
					"attempted_email": attempted,
					"path":            "profile_update",
				},
			})
			metrics.EmailChanges.WithLabelValues("blocked").Inc()
		}
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("identity service: update profile: %w", err)
	}
	return user, nil
}

// ChangeOwnEmailAsSuperAdmin is the narrow bypass of the approval workflow: a
// super admin may change their own email directly, and the mutation is always
// written to the ledger. Any other caller is rejected and the attempt logged.
func (s *IdentityService) ChangeOwnEmailAsSuperAdmin(ctx context.Context, actor *models.User, newEmail string) error {
	ctx = ensureContext(ctx)

	if actor == nil {
		return apperrors.NewBadRequest("actor is required")
	}

	newEmail = normalizeEmail(newEmail)
	if newEmail == "" {
		return apperrors.NewBadRequest("email is required")
	}

	if actor.PrivilegeTier != models.TierSuperAdmin {
		recordAudit(s.audit, ctx, AuditEntry{
			ActorID:    &actor.ID,
			ActorEmail: actor.Email,
			AffectedID: &actor.ID,
			Action:     ActionEmailChangeBlocked,
			Metadata: map[string]any{
				"attempted_email": newEmail,
				"path":            "super_admin_bypass",
			},
		})
		metrics.EmailChanges.WithLabelValues("blocked").Inc()
		return ErrUnauthorizedMutation
	}

	grant := authz.NewEmailChangeGrant(actor.ID, authz.GrantSourceSuperAdminBypass)
	oldEmail := actor.Email

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ApplyEmailChangeTx(ctx, tx, actor.ID, newEmail, grant); err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, AuditEntry{
			ActorID:    &actor.ID,
			ActorEmail: oldEmail,
			AffectedID: &actor.ID,
			Action:     ActionSuperAdminEmailChange,
			Metadata: map[string]any{
				"old_email": oldEmail,
				"new_email": newEmail,
			},
		})
	})
	if err != nil {
		return mapConstraintError(err, ErrAlreadyRegistered)
	}

	actor.Email = newEmail
	if s.notifications != nil {
		s.notifications.Send(ctx, Dispatch{
			TemplateKey: TemplateEmailChangeAlert,
			Email:       oldEmail,
			Message:     fmt.Sprintf("The email address on your account was changed to %s.", newEmail),
		})
	}
	return nil
}

// ApplyEmailChangeTx mutates a user's email inside the caller's transaction.
// It is the single write path for email, and it demands a grant scoped to the
// target user; callers without one are rejected and the attempt is logged.
func (s *IdentityService) ApplyEmailChangeTx(ctx context.Context, tx *gorm.DB, userID, newEmail string, grant authz.EmailChangeGrant) error {
	if tx == nil {
		return errors.New("identity service: tx is required")
	}

	if !grant.Permits(userID) {
		recordAudit(s.audit, ctx, AuditEntry{
			AffectedID: &userID,
			Action:     ActionEmailChangeBlocked,
			Metadata: map[string]any{
				"attempted_email": normalizeEmail(newEmail),
				"path":            "direct_mutation",
			},
		})
		metrics.EmailChanges.WithLabelValues("blocked").Inc()
		return ErrUnauthorizedMutation
	}

	newEmail = normalizeEmail(newEmail)

	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("identity service: load user: %w", err)
	}
	if user.Email == newEmail {
		return apperrors.NewBadRequest("new email must differ from the current email")
	}

	var count int64
	if err := tx.Model(&models.User{}).Where("email = ?", newEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("identity service: check email collision: %w", err)
	}
	if count > 0 {
		return ErrAlreadyRegistered
	}

	now := s.now()
	updates := map[string]any{
		"email":             newEmail,
		"email_verified_at": now,
	}
	if err := tx.Model(&user).Updates(updates).Error; err != nil {
		return mapConstraintError(err, ErrAlreadyRegistered)
	}
	return nil
}

// ChangePrivilegeTier moves a user one step along the tier ladder. Actors may
// never change their own tier, and two-step jumps are rejected. Denials are
// themselves ledger entries.
func (s *IdentityService) ChangePrivilegeTier(ctx context.Context, userID string, newTier models.PrivilegeTier, actor *models.User) (*models.User, error) {
	ctx = ensureContext(ctx)

	if actor == nil {
		return nil, apperrors.NewBadRequest("actor is required")
	}
	if !models.ValidTier(newTier) {
		return nil, apperrors.NewBadRequest("unknown privilege tier")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	deny := func(reason string) {
		recordAudit(s.audit, ctx, AuditEntry{
			ActorID:    &actor.ID,
			ActorEmail: actor.Email,
			AffectedID: &user.ID,
			Action:     ActionRoleChangeBlocked,
			Metadata: map[string]any{
				"from":   user.PrivilegeTier,
				"to":     newTier,
				"reason": reason,
			},
		})
	}

	if actor.ID == user.ID {
		deny("self_change")
		return nil, ErrSelfPrivilegeChange
	}
	if user.PrivilegeTier == newTier {
		return user, nil
	}
	if !models.AdjacentTier(user.PrivilegeTier, newTier) {
		deny("non_adjacent")
		return nil, ErrPrivilegeNotAdjacent
	}

	oldTier := user.PrivilegeTier
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("privilege_tier", newTier).Error; err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, AuditEntry{
			ActorID:    &actor.ID,
			ActorEmail: actor.Email,
			AffectedID: &user.ID,
			Action:     ActionUserPrivilegeChange,
			Metadata: map[string]any{
				"from": oldTier,
				"to":   newTier,
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("identity service: change privilege tier: %w", err)
	}

	user.PrivilegeTier = newTier
	if s.notifications != nil {
		s.notifications.Send(ctx, Dispatch{
			TemplateKey: TemplateRoleChanged,
			UserID:      user.ID,
			Email:       user.Email,
			Message:     fmt.Sprintf("Your privilege tier changed from %s to %s.", oldTier, newTier),
		})
	}
	return user, nil
}

// ChangeStatus transitions the account lifecycle status.
func (s *IdentityService) ChangeStatus(ctx context.Context, userID string, newStatus models.UserStatus, actor *models.User) (*models.User, error) {
	ctx = ensureContext(ctx)

	if !models.ValidStatus(newStatus) {
		return nil, apperrors.NewBadRequest("unknown account status")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == newStatus {
		return user, nil
	}

	oldStatus := user.Status
	now := s.now()
	updates := map[string]any{"status": newStatus}
	switch newStatus {
	case models.StatusLocked:
		updates["locked_at"] = now
	case models.StatusActive:
		updates["locked_at"] = nil
		updates["failed_attempts"] = 0
	}

	entry := AuditEntry{
		AffectedID: &user.ID,
		Action:     ActionUserStatusChange,
		Metadata: map[string]any{
			"from": oldStatus,
			"to":   newStatus,
		},
	}
	if actor != nil {
		entry.ActorID = &actor.ID
		entry.ActorEmail = actor.Email
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("identity service: change status: %w", err)
	}

	user.Status = newStatus
	if s.notifications != nil {
		s.notifications.Send(ctx, Dispatch{
			TemplateKey: TemplateStatusChanged,
			UserID:      user.ID,
			Email:       user.Email,
			Message:     fmt.Sprintf("Your account status changed from %s to %s.", oldStatus, newStatus),
		})
	}
	return user, nil
}

// ChangeOrganizationRole changes a user's role within their team or enterprise
// group. Demoting the organization's sole admin is rejected.
func (s *IdentityService) ChangeOrganizationRole(ctx context.Context, userID string, newRole models.OrgRole, actor *models.User) (*models.User, error) {
	ctx = ensureContext(ctx)

	if newRole != models.OrgRoleAdmin && newRole != models.OrgRoleMember {
		return nil, apperrors.NewBadRequest("unknown organization role")
	}

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	kind, orgID, ok := user.OrganizationRef()
	if !ok {
		return nil, apperrors.NewBadRequest("user does not belong to an organization")
	}

	oldRole := user.OrganizationRole()
	if oldRole == newRole {
		return user, nil
	}

	if oldRole == models.OrgRoleAdmin && newRole != models.OrgRoleAdmin {
		admins, err := s.countOrgAdmins(ctx, kind, orgID)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			entry := AuditEntry{
				AffectedID: &user.ID,
				Action:     ActionRoleChangeBlocked,
				Metadata: map[string]any{
					"from":   oldRole,
					"to":     newRole,
					"reason": "last_admin",
				},
			}
			if actor != nil {
				entry.ActorID = &actor.ID
				entry.ActorEmail = actor.Email
			}
			recordAudit(s.audit, ctx, entry)
			return nil, ErrLastAdmin
		}
	}

	roleColumn := "team_role"
	if kind == models.OrgKindEnterprise {
		roleColumn = "enterprise_role"
	}

	entry := AuditEntry{
		AffectedID: &user.ID,
		Action:     ActionOrgMemberRoleChange,
		Metadata: map[string]any{
			"org_kind": kind,
			"org_id":   orgID,
			"from":     oldRole,
			"to":       newRole,
		},
	}
	if actor != nil {
		entry.ActorID = &actor.ID
		entry.ActorEmail = actor.Email
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update(roleColumn, newRole).Error; err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("identity service: change organization role: %w", err)
	}

	switch kind {
	case models.OrgKindTeam:
		user.TeamRole = newRole
	case models.OrgKindEnterprise:
		user.EnterpriseRole = newRole
	}
	return user, nil
}

// Destroy removes a user administratively. The organization's admin seat is
// protected: the current admin cannot be destroyed while other members remain.
func (s *IdentityService) Destroy(ctx context.Context, userID string, actor *models.User) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if kind, orgID, ok := user.OrganizationRef(); ok && user.OrganizationRole() == models.OrgRoleAdmin {
		admins, err := s.countOrgAdmins(ctx, kind, orgID)
		if err != nil {
			return err
		}
		members, err := s.countOrgMembers(ctx, kind, orgID)
		if err != nil {
			return err
		}
		if admins <= 1 && members > 1 {
			return ErrLastAdmin
		}
	}

	entry := AuditEntry{
		AffectedID: &user.ID,
		Action:     ActionUserDestroy,
		Metadata: map[string]any{
			"email": user.Email,
			"track": user.MembershipTrack,
		},
	}
	if actor != nil {
		entry.ActorID = &actor.ID
		entry.ActorEmail = actor.Email
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.User{}, "id = ?", user.ID).Error; err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, entry)
	})
}

// RegisterFailedAuth increments the failed-attempt counter and locks the
// account at the configured threshold. Called by the external auth layer.
func (s *IdentityService) RegisterFailedAuth(ctx context.Context, userID string) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	attempts := user.FailedAttempts + 1
	updates := map[string]any{"failed_attempts": attempts}
	if attempts >= s.failedLimit && user.Status == models.StatusActive {
		updates["status"] = models.StatusLocked
		updates["locked_at"] = s.now()
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return err
		}
		if _, locked := updates["locked_at"]; locked {
			return s.audit.RecordTx(ctx, tx, AuditEntry{
				AffectedID: &user.ID,
				Action:     ActionUserStatusChange,
				Metadata: map[string]any{
					"from":   user.Status,
					"to":     models.StatusLocked,
					"reason": "failed_auth_limit",
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("identity service: register failed auth: %w", err)
	}

	user.FailedAttempts = attempts
	if _, locked := updates["locked_at"]; locked {
		user.Status = models.StatusLocked
	}
	return user, nil
}

func (s *IdentityService) countOrgAdmins(ctx context.Context, kind models.OrgKind, orgID string) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	switch kind {
	case models.OrgKindTeam:
		query = query.Where("team_id = ? AND team_role = ?", orgID, models.OrgRoleAdmin)
	case models.OrgKindEnterprise:
		query = query.Where("enterprise_group_id = ? AND enterprise_role = ?", orgID, models.OrgRoleAdmin)
	default:
		return 0, apperrors.NewBadRequest("unknown organization kind")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("identity service: count admins: %w", err)
	}
	return count, nil
}

func (s *IdentityService) countOrgMembers(ctx context.Context, kind models.OrgKind, orgID string) (int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	switch kind {
	case models.OrgKindTeam:
		query = query.Where("team_id = ?", orgID)
	case models.OrgKindEnterprise:
		query = query.Where("enterprise_group_id = ?", orgID)
	default:
		return 0, apperrors.NewBadRequest("unknown organization kind")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("identity service: count members: %w", err)
	}
	return count, nil
}
