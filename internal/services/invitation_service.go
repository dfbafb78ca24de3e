package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/models"
	"github.com/ashack/portfolio-sub000/pkg/crypto"
	apperrors "github.com/ashack/portfolio-sub000/pkg/errors"
	"github.com/ashack/portfolio-sub000/pkg/metrics"
)

const (
	defaultInviteExpiry     = 7 * 24 * time.Hour
	defaultInviteTokenBytes = 32
)

var (
	// ErrInviteNotFound indicates no invitation matches the provided token.
	ErrInviteNotFound = apperrors.New("INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInviteExpired indicates the invitation is past its expiry.
	ErrInviteExpired = apperrors.New("INVITATION_EXPIRED", "Invitation has expired", http.StatusGone)
	// ErrInviteAlreadyAccepted signals the invitation was already consumed.
	ErrInviteAlreadyAccepted = apperrors.New("INVITATION_ACCEPTED", "Invitation has already been accepted", http.StatusConflict)
)

// InviteOption customises InvitationService behaviour.
type InviteOption func(*InvitationService)

// WithInviteBaseURL configures the base URL used to build invitation links.
func WithInviteBaseURL(url string) InviteOption {
	return func(s *InvitationService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithInviteExpiry overrides the invitation lifetime.
func WithInviteExpiry(d time.Duration) InviteOption {
	return func(s *InvitationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInviteTokenSize adjusts the random token length in bytes.
func WithInviteTokenSize(size int) InviteOption {
	return func(s *InvitationService) {
		if size >= defaultInviteTokenBytes {
			s.tokenLength = size
		}
	}
}

// WithInviteClock injects a custom clock primarily for testing.
func WithInviteClock(clock func() time.Time) InviteOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// IssueInvitationInput describes a new invitation.
type IssueInvitationInput struct {
	Email   string
	OrgKind models.OrgKind
	OrgID   string
	Role    models.OrgRole
}

// AcceptInvitationInput carries the attributes the invitee supplies; track,
// organization and role always come from the invitation itself.
type AcceptInvitationInput struct {
	Password  string
	FirstName string
	LastName  string
}

// InvitationService manages the offer lifecycle: issue, accept, resend,
// revoke, and the expiry sweep. Acceptance converts an offer into a user of
// the invited track inside a single transaction.
type InvitationService struct {
	db            *gorm.DB
	audit         *AuditService
	orgs          *OrganizationService
	notifications *NotificationService
	baseURL       string
	expiry        time.Duration
	tokenLength   int
	now           func() time.Time
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
func NewInvitationService(db *gorm.DB, audit *AuditService, orgs *OrganizationService, notifications *NotificationService, opts ...InviteOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if orgs == nil {
		return nil, errors.New("invitation service: organization service is required")
	}

	service := &InvitationService{
		db:            db,
		audit:         audit,
		orgs:          orgs,
		notifications: notifications,
		expiry:        defaultInviteExpiry,
		tokenLength:   defaultInviteTokenBytes,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Issue creates a new invitation for the given organization and dispatches the
// offer email. The target address must not already belong to a user. Only the
// sha256 digest of the token is stored; the returned raw token is the single
// chance to hand the link out.
func (s *InvitationService) Issue(ctx context.Context, input IssueInvitationInput, issuer *models.User) (*models.Invitation, string, error) {
	ctx = ensureContext(ctx)

	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, "", apperrors.NewBadRequest("email is required")
	}
	if !models.ValidOrgKind(input.OrgKind) {
		return nil, "", apperrors.NewBadRequest("unknown organization kind")
	}
	if input.Role != models.OrgRoleAdmin && input.Role != models.OrgRoleMember {
		return nil, "", apperrors.NewBadRequest("unknown organization role")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, "", fmt.Errorf("invitation service: check registration: %w", err)
	}
	if count > 0 {
		return nil, "", ErrAlreadyRegistered
	}

	ok, err := s.orgs.CanAddMember(ctx, input.OrgKind, input.OrgID)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrOrganizationCapacity
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, "", fmt.Errorf("invitation service: generate token: %w", err)
	}

	now := s.now()
	invite := &models.Invitation{
		Email:     email,
		OrgKind:   input.OrgKind,
		OrgID:     input.OrgID,
		Role:      input.Role,
		TokenHash: tokenHash(token),
		Status:    models.InvitationPending,
		ExpiresAt: now.Add(s.expiry),
	}
	if issuer != nil {
		invite.InvitedBy = issuer.ID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(invite).Error; err != nil {
			return err
		}

		// A deferred enterprise admin seat is tracked on the group itself.
		if input.OrgKind == models.OrgKindEnterprise && input.Role == models.OrgRoleAdmin {
			if err := tx.Model(&models.EnterpriseGroup{}).Where("id = ?", input.OrgID).
				Update("admin_invite_pending", true).Error; err != nil {
				return err
			}
		}

		entry := AuditEntry{
			Action: ActionInvitationIssue,
			Metadata: map[string]any{
				"email":    email,
				"org_kind": input.OrgKind,
				"org_id":   input.OrgID,
				"role":     input.Role,
			},
		}
		if issuer != nil {
			entry.ActorID = &issuer.ID
			entry.ActorEmail = issuer.Email
		}
		return s.audit.RecordTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, "", mapConstraintError(err, ErrAlreadyRegistered)
	}

	metrics.Invitations.WithLabelValues("issued").Inc()
	if s.notifications != nil {
		s.notifications.Send(ctx, Dispatch{
			TemplateKey: TemplateInvitationIssued,
			Email:       email,
			Message:     "You have been invited to join an organization on Portfolio.",
			Payload:     map[string]any{"link": s.InviteLink(token)},
		})
	}
	return invite, token, nil
}

// GetByToken loads a pending invitation for display before acceptance.
func (s *InvitationService) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewBadRequest("token is required")
	}

	var invite models.Invitation
	err := s.db.WithContext(ctx).First(&invite, "token_hash = ?", tokenHash(token)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: find invitation: %w", err)
	}
	return &invite, nil
}

// Accept consumes the invitation exactly once: it creates the user with the
// frozen track/organization/role, marks the offer accepted, and for enterprise
// admin invitations seats the new user as the group admin. Everything commits
// or rolls back together; a concurrent accept observes AlreadyAccepted.
func (s *InvitationService) Accept(ctx context.Context, token string, input AcceptInvitationInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	invite, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if invite.AcceptedAt != nil {
		return nil, ErrInviteAlreadyAccepted
	}
	if invite.ExpiredAt(now) || invite.Status == models.InvitationExpired {
		return nil, ErrInviteExpired
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	user, err := NewUserFromInvitation(invite, input.Password, input.FirstName, input.LastName)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claim the invitation first: the conditional update makes concurrent
		// accepts race on the row, and exactly one wins.
		claim := tx.Model(&models.Invitation{}).
			Where("id = ? AND accepted_at IS NULL AND status = ?", invite.ID, models.InvitationPending).
			Updates(map[string]any{"accepted_at": now, "status": models.InvitationAccepted})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrInviteAlreadyAccepted
		}

		if err := tx.Create(user).Error; err != nil {
			return err
		}

		if invite.OrgKind == models.OrgKindEnterprise && invite.Role == models.OrgRoleAdmin {
			if err := tx.Model(&models.EnterpriseGroup{}).Where("id = ?", invite.OrgID).
				Updates(map[string]any{"admin_id": user.ID, "admin_invite_pending": false}).Error; err != nil {
				return err
			}
		}

		return s.audit.RecordTx(ctx, tx, AuditEntry{
			AffectedID: &user.ID,
			Action:     ActionInvitationAccept,
			Metadata: map[string]any{
				"email":    user.Email,
				"org_kind": invite.OrgKind,
				"org_id":   invite.OrgID,
				"role":     invite.Role,
			},
		})
	})
	if err != nil {
		return nil, mapConstraintError(err, ErrAlreadyRegistered)
	}

	invite.AcceptedAt = &now
	invite.Status = models.InvitationAccepted
	metrics.Invitations.WithLabelValues("accepted").Inc()
	return user, nil
}

// Resend rotates a pending, unexpired invitation: a fresh token and expiry are
// stored and a new offer email goes out. The previous link stops working, since
// only token digests are kept at rest.
func (s *InvitationService) Resend(ctx context.Context, id string, actor *models.User) (*models.Invitation, error) {
	ctx = ensureContext(ctx)

	invite, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if invite.AcceptedAt != nil {
		return nil, ErrInviteAlreadyAccepted
	}
	if invite.ExpiredAt(now) || invite.Status != models.InvitationPending {
		return nil, ErrInviteExpired
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, fmt.Errorf("invitation service: generate token: %w", err)
	}

	expiresAt := now.Add(s.expiry)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(invite).Updates(map[string]any{
			"token_hash": tokenHash(token),
			"expires_at": expiresAt,
		}).Error; err != nil {
			return err
		}
		entry := AuditEntry{
			Action: ActionInvitationResend,
			Metadata: map[string]any{
				"email":  invite.Email,
				"org_id": invite.OrgID,
			},
		}
		if actor != nil {
			entry.ActorID = &actor.ID
			entry.ActorEmail = actor.Email
		}
		return s.audit.RecordTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("invitation service: resend: %w", err)
	}

	invite.ExpiresAt = expiresAt
	invite.TokenHash = tokenHash(token)
	metrics.Invitations.WithLabelValues("resent").Inc()
	if s.notifications != nil {
		s.notifications.Send(ctx, Dispatch{
			TemplateKey: TemplateInvitationResent,
			Email:       invite.Email,
			Message:     "Your invitation was resent.",
			Payload:     map[string]any{"link": s.InviteLink(token)},
		})
	}
	return invite, nil
}

// Revoke deletes a not-yet-accepted invitation.
func (s *InvitationService) Revoke(ctx context.Context, id string, actor *models.User) error {
	ctx = ensureContext(ctx)

	invite, err := s.getByID(ctx, id)
	if err != nil {
		return err
	}
	if invite.AcceptedAt != nil {
		return ErrInviteAlreadyAccepted
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Invitation{}, "id = ?", invite.ID).Error; err != nil {
			return err
		}

		// Clear the deferred-admin flag unless another admin invitation for
		// the same group is still outstanding.
		if invite.OrgKind == models.OrgKindEnterprise && invite.Role == models.OrgRoleAdmin {
			var remaining int64
			if err := tx.Model(&models.Invitation{}).
				Where("org_kind = ? AND org_id = ? AND role = ? AND accepted_at IS NULL AND id <> ?",
					models.OrgKindEnterprise, invite.OrgID, models.OrgRoleAdmin, invite.ID).
				Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				if err := tx.Model(&models.EnterpriseGroup{}).Where("id = ?", invite.OrgID).
					Update("admin_invite_pending", false).Error; err != nil {
					return err
				}
			}
		}

		entry := AuditEntry{
			Action: ActionInvitationRevoke,
			Metadata: map[string]any{
				"email":  invite.Email,
				"org_id": invite.OrgID,
			},
		}
		if actor != nil {
			entry.ActorID = &actor.ID
			entry.ActorEmail = actor.Email
		}
		if err := s.audit.RecordTx(ctx, tx, entry); err != nil {
			return err
		}
		metrics.Invitations.WithLabelValues("revoked").Inc()
		return nil
	})
}

// ListForOrg returns invitations targeting the given organization.
func (s *InvitationService) ListForOrg(ctx context.Context, kind models.OrgKind, orgID string) ([]models.Invitation, error) {
	ctx = ensureContext(ctx)

	var invites []models.Invitation
	if err := s.db.WithContext(ctx).
		Where("org_kind = ? AND org_id = ?", kind, orgID).
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("invitation service: list invitations: %w", err)
	}
	return invites, nil
}

// ExpireStale flips pending invitations past their expiry to the terminal
// expired status for reporting. Safe to run concurrently with acceptance: the
// status predicate makes the sweep and the claim race on the same rows.
func (s *InvitationService) ExpireStale(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	now := s.now()
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Invitation{}).
			Where("status = ? AND accepted_at IS NULL AND expires_at < ?", models.InvitationPending, now).
			Update("status", models.InvitationExpired)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected

		// Enterprise groups whose only outstanding admin invitations just
		// expired lose their deferred-admin window.
		return tx.Model(&models.EnterpriseGroup{}).
			Where("admin_invite_pending = ? AND NOT EXISTS (?)", true,
				tx.Session(&gorm.Session{NewDB: true}).
					Model(&models.Invitation{}).
					Select("1").
					Where("invitations.org_kind = ? AND invitations.org_id = enterprise_groups.id AND invitations.role = ? AND invitations.status = ?",
						models.OrgKindEnterprise, models.OrgRoleAdmin, models.InvitationPending),
			).
			Update("admin_invite_pending", false).Error
	})
	if err != nil {
		return 0, fmt.Errorf("invitation service: expire stale: %w", err)
	}

	if affected > 0 {
		metrics.Invitations.WithLabelValues("expired").Add(float64(affected))
	}
	return affected, nil
}

func (s *InvitationService) getByID(ctx context.Context, id string) (*models.Invitation, error) {
	var invite models.Invitation
	err := s.db.WithContext(ctx).First(&invite, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: find invitation: %w", err)
	}
	return &invite, nil
}

// InviteLink builds the acceptance URL for a raw invitation token.
func (s *InvitationService) InviteLink(token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s?token=%s", s.baseURL, token)
}
