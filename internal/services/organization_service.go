package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/models"
	apperrors "github.com/ashack/portfolio-sub000/pkg/errors"
)

const slugCollisionLimit = 50

var (
	// ErrOrganizationNotFound indicates the requested organization does not exist.
	ErrOrganizationNotFound = apperrors.New("ORG_NOT_FOUND", "Organization not found", http.StatusNotFound)
	// ErrOrganizationNotEmpty rejects destruction of organizations with members.
	ErrOrganizationNotEmpty = apperrors.New("ORG_NOT_EMPTY", "Organization still has members", http.StatusConflict)
	// ErrOrganizationCapacity signals the member ceiling has been reached.
	ErrOrganizationCapacity = apperrors.New("ORG_CAPACITY", "Organization member limit reached", http.StatusConflict)
	// ErrAdminRequired rejects organizations without an admin seat or a pending
	// admin invitation.
	ErrAdminRequired = apperrors.New("ORG_ADMIN_REQUIRED", "Organization requires an admin", http.StatusBadRequest)
)

// CreateTeamInput captures new team metadata. AdminID must reference a
// team-track user who does not belong to a team yet.
type CreateTeamInput struct {
	Name    string
	Plan    string
	AdminID string
}

// CreateEnterpriseGroupInput captures new enterprise group metadata. The admin
// seat may be deferred: DeferAdmin creates the group with AdminInvitePending
// set, to be satisfied by an admin invitation.
type CreateEnterpriseGroupInput struct {
	Name       string
	Plan       string
	AdminID    string
	DeferAdmin bool
}

// OrganizationService manages team and enterprise group lifecycle: creation
// with collision-resolved slugs, admin reassignment, capacity checks, and the
// members-first destruction guard.
type OrganizationService struct {
	db    *gorm.DB
	audit *AuditService
	plans PlanResolver
}

// NewOrganizationService constructs an OrganizationService instance.
func NewOrganizationService(db *gorm.DB, audit *AuditService, plans PlanResolver) (*OrganizationService, error) {
	if db == nil {
		return nil, errors.New("organization service: db is required")
	}
	if plans == nil {
		plans = NewStaticPlanResolver(DefaultPlans())
	}
	return &OrganizationService{db: db, audit: audit, plans: plans}, nil
}

// CreateTeam registers a team and seats its initial admin in one transaction.
func (s *OrganizationService) CreateTeam(ctx context.Context, input CreateTeamInput, creator *models.User) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}
	if strings.TrimSpace(input.AdminID) == "" {
		return nil, ErrAdminRequired
	}

	plan, maxMembers := s.resolvePlan(input.Plan, "starter")

	team := &models.Team{
		Name:       name,
		Plan:       plan,
		MaxMembers: maxMembers,
		Status:     models.OrgStatusActive,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := s.resolveSlug(tx, &models.Team{}, name)
		if err != nil {
			return err
		}
		team.Slug = slug

		var admin models.User
		if err := tx.First(&admin, "id = ?", input.AdminID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("organization service: load admin: %w", err)
		}
		if admin.MembershipTrack != models.TrackTeamMember {
			return apperrors.NewBadRequest("team admin must be a team-track user")
		}
		if admin.TeamID != nil {
			return apperrors.NewBadRequest("team admin already belongs to a team")
		}

		if err := tx.Create(team).Error; err != nil {
			return err
		}

		team.AdminID = &admin.ID
		if err := tx.Model(team).Update("admin_id", admin.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&admin).Updates(map[string]any{
			"team_id":   team.ID,
			"team_role": models.OrgRoleAdmin,
		}).Error; err != nil {
			return err
		}

		entry := AuditEntry{
			AffectedID: &admin.ID,
			Action:     ActionOrgCreate,
			Metadata: map[string]any{
				"org_kind": models.OrgKindTeam,
				"org_id":   team.ID,
				"slug":     team.Slug,
				"plan":     team.Plan,
			},
		}
		if creator != nil {
			entry.ActorID = &creator.ID
			entry.ActorEmail = creator.Email
		}
		return s.audit.RecordTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return team, nil
}

// CreateEnterpriseGroup registers an enterprise group. The admin seat is
// either filled immediately or deferred behind a pending admin invitation.
func (s *OrganizationService) CreateEnterpriseGroup(ctx context.Context, input CreateEnterpriseGroupInput, creator *models.User) (*models.EnterpriseGroup, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("enterprise group name is required")
	}
	if strings.TrimSpace(input.AdminID) == "" && !input.DeferAdmin {
		return nil, ErrAdminRequired
	}

	plan, maxMembers := s.resolvePlan(input.Plan, "enterprise")

	group := &models.EnterpriseGroup{
		Name:               name,
		Plan:               plan,
		MaxMembers:         maxMembers,
		Status:             models.OrgStatusActive,
		AdminInvitePending: input.DeferAdmin,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := s.resolveSlug(tx, &models.EnterpriseGroup{}, name)
		if err != nil {
			return err
		}
		group.Slug = slug

		if err := tx.Create(group).Error; err != nil {
			return err
		}

		if !input.DeferAdmin {
			var admin models.User
			if err := tx.First(&admin, "id = ?", input.AdminID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				return fmt.Errorf("organization service: load admin: %w", err)
			}
			if admin.MembershipTrack != models.TrackEnterpriseMember {
				return apperrors.NewBadRequest("enterprise admin must be an enterprise-track user")
			}
			if admin.EnterpriseGroupID != nil {
				return apperrors.NewBadRequest("enterprise admin already belongs to a group")
			}

			group.AdminID = &admin.ID
			if err := tx.Model(group).Update("admin_id", admin.ID).Error; err != nil {
				return err
			}
			if err := tx.Model(&admin).Updates(map[string]any{
				"enterprise_group_id": group.ID,
				"enterprise_role":     models.OrgRoleAdmin,
			}).Error; err != nil {
				return err
			}
		}

		entry := AuditEntry{
			Action: ActionOrgCreate,
			Metadata: map[string]any{
				"org_kind":       models.OrgKindEnterprise,
				"org_id":         group.ID,
				"slug":           group.Slug,
				"plan":           group.Plan,
				"admin_deferred": input.DeferAdmin,
			},
		}
		if creator != nil {
			entry.ActorID = &creator.ID
			entry.ActorEmail = creator.Email
		}
		return s.audit.RecordTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// Destroy removes an organization. It never cascades: destruction is rejected
// while any member remains, and the rejection itself is a ledger entry.
func (s *OrganizationService) Destroy(ctx context.Context, kind models.OrgKind, orgID string, actor *models.User) error {
	ctx = ensureContext(ctx)

	if !models.ValidOrgKind(kind) {
		return apperrors.NewBadRequest("unknown organization kind")
	}

	count, err := s.MemberCount(ctx, kind, orgID)
	if err != nil {
		return err
	}
	if count > 0 {
		entry := AuditEntry{
			Action: ActionOrgDestroyBlocked,
			Metadata: map[string]any{
				"org_kind":     kind,
				"org_id":       orgID,
				"member_count": count,
			},
		}
		if actor != nil {
			entry.ActorID = &actor.ID
			entry.ActorEmail = actor.Email
		}
		recordAudit(s.audit, ctx, entry)
		return ErrOrganizationNotEmpty
	}

	entry := AuditEntry{
		Action: ActionOrgDestroy,
		Metadata: map[string]any{
			"org_kind": kind,
			"org_id":   orgID,
		},
	}
	if actor != nil {
		entry.ActorID = &actor.ID
		entry.ActorEmail = actor.Email
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var result *gorm.DB
		switch kind {
		case models.OrgKindTeam:
			result = tx.Delete(&models.Team{}, "id = ?", orgID)
		case models.OrgKindEnterprise:
			result = tx.Delete(&models.EnterpriseGroup{}, "id = ?", orgID)
		}
		if result.Error != nil {
			return fmt.Errorf("organization service: destroy: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrOrganizationNotFound
		}
		return s.audit.RecordTx(ctx, tx, entry)
	})
}

// CanAddMember reports whether the organization has room for another member.
func (s *OrganizationService) CanAddMember(ctx context.Context, kind models.OrgKind, orgID string) (bool, error) {
	ctx = ensureContext(ctx)

	ceiling, err := s.memberCeiling(ctx, kind, orgID)
	if err != nil {
		return false, err
	}
	count, err := s.MemberCount(ctx, kind, orgID)
	if err != nil {
		return false, err
	}
	return count < int64(ceiling), nil
}

// MemberCount returns the number of users attached to the organization.
func (s *OrganizationService) MemberCount(ctx context.Context, kind models.OrgKind, orgID string) (int64, error) {
	ctx = ensureContext(ctx)

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
		return 0, fmt.Errorf("organization service: member count: %w", err)
	}
	return count, nil
}

func (s *OrganizationService) memberCeiling(ctx context.Context, kind models.OrgKind, orgID string) (int, error) {
	switch kind {
	case models.OrgKindTeam:
		team, err := s.GetTeam(ctx, orgID)
		if err != nil {
			return 0, err
		}
		return team.MaxMembers, nil
	case models.OrgKindEnterprise:
		group, err := s.GetEnterpriseGroup(ctx, orgID)
		if err != nil {
			return 0, err
		}
		return group.MaxMembers, nil
	default:
		return 0, apperrors.NewBadRequest("unknown organization kind")
	}
}

// ReassignAdmin moves the admin seat to another member of the organization.
func (s *OrganizationService) ReassignAdmin(ctx context.Context, kind models.OrgKind, orgID, newAdminID string, actor *models.User) error {
	ctx = ensureContext(ctx)

	entry := AuditEntry{
		AffectedID: &newAdminID,
		Action:     ActionOrgAdminReassign,
		Metadata: map[string]any{
			"org_kind": kind,
			"org_id":   orgID,
		},
	}
	if actor != nil {
		entry.ActorID = &actor.ID
		entry.ActorEmail = actor.Email
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.User
		if err := tx.First(&admin, "id = ?", newAdminID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("organization service: load new admin: %w", err)
		}

		switch kind {
		case models.OrgKindTeam:
			if admin.TeamID == nil || *admin.TeamID != orgID {
				return apperrors.NewBadRequest("new admin must be a member of the team")
			}
			if err := tx.Model(&models.Team{}).Where("id = ?", orgID).
				Update("admin_id", admin.ID).Error; err != nil {
				return err
			}
			if err := tx.Model(&admin).Update("team_role", models.OrgRoleAdmin).Error; err != nil {
				return err
			}
		case models.OrgKindEnterprise:
			if admin.EnterpriseGroupID == nil || *admin.EnterpriseGroupID != orgID {
				return apperrors.NewBadRequest("new admin must be a member of the group")
			}
			if err := tx.Model(&models.EnterpriseGroup{}).Where("id = ?", orgID).
				Updates(map[string]any{"admin_id": admin.ID, "admin_invite_pending": false}).Error; err != nil {
				return err
			}
			if err := tx.Model(&admin).Update("enterprise_role", models.OrgRoleAdmin).Error; err != nil {
				return err
			}
		default:
			return apperrors.NewBadRequest("unknown organization kind")
		}

		return s.audit.RecordTx(ctx, tx, entry)
	})
}

// GetTeam loads a team by identifier.
func (s *OrganizationService) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	var team models.Team
	err := s.db.WithContext(ctx).Preload("Admin").First(&team, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get team: %w", err)
	}
	return &team, nil
}

// GetEnterpriseGroup loads an enterprise group by identifier.
func (s *OrganizationService) GetEnterpriseGroup(ctx context.Context, id string) (*models.EnterpriseGroup, error) {
	ctx = ensureContext(ctx)

	var group models.EnterpriseGroup
	err := s.db.WithContext(ctx).Preload("Admin").First(&group, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("organization service: get enterprise group: %w", err)
	}
	return &group, nil
}

func (s *OrganizationService) resolvePlan(name, fallback string) (string, int) {
	plan, ok := s.plans.Resolve(name)
	if !ok {
		plan, ok = s.plans.Resolve(fallback)
	}
	if !ok {
		return fallback, 5
	}
	return plan.Name, plan.MaxMembers
}

// resolveSlug normalizes the name into a slug and appends -1, -2, ... until it
// no longer collides. The unique index remains the final authority at commit.
func (s *OrganizationService) resolveSlug(tx *gorm.DB, model any, name string) (string, error) {
	base := slugify(name)
	if base == "" {
		base = "org"
	}

	candidate := base
	for i := 1; i <= slugCollisionLimit; i++ {
		var count int64
		if err := tx.Model(model).Where("slug = ?", candidate).Count(&count).Error; err != nil {
			return "", fmt.Errorf("organization service: check slug: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("organization service: could not resolve slug for %q", name)
}

func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
