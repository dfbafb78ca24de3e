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

const (
	defaultReviewWindow         = 30 * 24 * time.Hour
	defaultEmailChangeTokenSize = 32
	minReasonLength             = 10
	maxReasonLength             = 500
)

var (
	// ErrRequestNotFound indicates the email change request does not exist.
	ErrRequestNotFound = apperrors.New("EMAIL_CHANGE_NOT_FOUND", "Email change request not found", http.StatusNotFound)
	// ErrRequestAlreadyPending rejects a second concurrent request per user.
	ErrRequestAlreadyPending = apperrors.New("EMAIL_CHANGE_PENDING", "A pending email change request already exists", http.StatusConflict)
	// ErrRequestResolved signals the request already reached a terminal state.
	ErrRequestResolved = apperrors.New("EMAIL_CHANGE_RESOLVED", "Email change request has already been resolved", http.StatusConflict)
	// ErrRequestExpired rejects decisions on requests older than the review window.
	ErrRequestExpired = apperrors.New("EMAIL_CHANGE_EXPIRED", "Email change request has expired", http.StatusGone)
	// ErrReviewNotAllowed rejects reviewers outside the request's scope. The
	// message is deliberately generic.
	ErrReviewNotAllowed = apperrors.New("REVIEW_NOT_ALLOWED", "Not authorized to review this request", http.StatusForbidden)
)

// EmailChangeOption customises EmailChangeService behaviour.
type EmailChangeOption func(*EmailChangeService)

// WithReviewWindow overrides the window in which a request may be decided.
func WithReviewWindow(d time.Duration) EmailChangeOption {
	return func(s *EmailChangeService) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithEmailChangeClock injects a custom clock primarily for testing.
func WithEmailChangeClock(clock func() time.Time) EmailChangeOption {
	return func(s *EmailChangeService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// EmailChangeService runs the request/approve/reject workflow that is the only
// legal path to mutate a user's email, outside the super-admin bypass.
type EmailChangeService struct {
	db            *gorm.DB
	audit         *AuditService
	identities    *IdentityService
	notifications *NotificationService
	window        time.Duration
	tokenLength   int
	now           func() time.Time
}

// NewEmailChangeService constructs an EmailChangeService.
func NewEmailChangeService(db *gorm.DB, audit *AuditService, identities *IdentityService, notifications *NotificationService, opts ...EmailChangeOption) (*EmailChangeService, error) {
	if db == nil {
		return nil, errors.New("email change service: db is required")
	}
	if identities == nil {
		return nil, errors.New("email change service: identity service is required")
	}

	service := &EmailChangeService{
		db:            db,
		audit:         audit,
		identities:    identities,
		notifications: notifications,
		window:        defaultReviewWindow,
		tokenLength:   defaultEmailChangeTokenSize,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Submit files a new email change request for the given user.
func (s *EmailChangeService) Submit(ctx context.Context, user *models.User, newEmail, reason string) (*models.EmailChangeRequest, error) {
	ctx = ensureContext(ctx)

	if user == nil {
		return nil, apperrors.NewBadRequest("user is required")
	}

	newEmail = normalizeEmail(newEmail)
	if newEmail == "" {
		return nil, apperrors.NewBadRequest("new email is required")
	}
	if newEmail == user.Email {
		return nil, apperrors.NewBadRequest("new email must differ from the current email")
	}

	reason = strings.TrimSpace(reason)
	if len(reason) < minReasonLength || len(reason) > maxReasonLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("reason must be between %d and %d characters", minReasonLength, maxReasonLength))
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", newEmail).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("email change service: check collision: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadyRegistered
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, fmt.Errorf("email change service: generate token: %w", err)
	}

	now := s.now()
	request := &models.EmailChangeRequest{
		UserID:      user.ID,
		NewEmail:    newEmail,
		Reason:      reason,
		TokenHash:   tokenHash(token),
		Status:      models.EmailChangePending,
		RequestedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// One pending request per user; the check runs inside the transaction
		// so concurrent submits serialize on it.
		var pending int64
		if err := tx.Model(&models.EmailChangeRequest{}).
			Where("user_id = ? AND status = ?", user.ID, models.EmailChangePending).
			Count(&pending).Error; err != nil {
			return err
		}
		if pending > 0 {
			return ErrRequestAlreadyPending
		}

		if err := tx.Create(request).Error; err != nil {
			return err
		}

		return s.audit.RecordTx(ctx, tx, AuditEntry{
			ActorID:    &user.ID,
			ActorEmail: user.Email,
			AffectedID: &user.ID,
			Action:     ActionEmailChangeSubmit,
			Metadata: map[string]any{
				"new_email": newEmail,
			},
		})
	})
	if err != nil {
		return nil, mapConstraintError(err, ErrRequestAlreadyPending)
	}

	metrics.EmailChanges.WithLabelValues("submitted").Inc()
	if s.notifications != nil {
		s.notifications.Send(ctx, Dispatch{
			TemplateKey: TemplateEmailChangeSubmit,
			UserID:      user.ID,
			Email:       user.Email,
			Message:     fmt.Sprintf("Your request to change your email to %s is awaiting review.", newEmail),
		})
	}
	return request, nil
}

// CanBeReviewedBy reports whether the reviewer may decide the request: super
// admins review anything still decidable; organization admins review requests
// from members of their own organization only.
func (s *EmailChangeService) CanBeReviewedBy(ctx context.Context, request *models.EmailChangeRequest, reviewer *models.User) (bool, error) {
	ctx = ensureContext(ctx)

	if request == nil || reviewer == nil {
		return false, nil
	}
	if request.Status != models.EmailChangePending || request.StaleAt(s.now(), s.window) {
		return false, nil
	}
	if reviewer.PrivilegeTier == models.TierSuperAdmin {
		return true, nil
	}

	subject, err := s.identities.GetByID(ctx, request.UserID)
	if err != nil {
		return false, err
	}

	reviewerKind, reviewerOrg, ok := reviewer.OrganizationRef()
	if !ok || reviewer.OrganizationRole() != models.OrgRoleAdmin {
		return false, nil
	}
	subjectKind, subjectOrg, ok := subject.OrganizationRef()
	if !ok {
		return false, nil
	}
	return reviewerKind == subjectKind && reviewerOrg == subjectOrg, nil
}

// Approve decides a request in the subject's favor: inside one transaction it
// mints the email change grant, mutates the user's email, marks the request
// approved, and appends the ledger entry. Any failure rolls the whole unit
// back and leaves the request pending.
func (s *EmailChangeService) Approve(ctx context.Context, requestID string, reviewer *models.User, notes string) (*models.EmailChangeRequest, error) {
	ctx = ensureContext(ctx)

	request, err := s.getByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if request.Status == models.EmailChangeExpired || request.StaleAt(now, s.window) {
		return nil, ErrRequestExpired
	}
	if request.Status != models.EmailChangePending {
		return nil, ErrRequestResolved
	}

	allowed, err := s.CanBeReviewedBy(ctx, request, reviewer)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.denyReview(ctx, request, reviewer, "approve")
		return nil, ErrReviewNotAllowed
	}

	subject, err := s.identities.GetByID(ctx, request.UserID)
	if err != nil {
		return nil, err
	}
	oldEmail := subject.Email

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.EmailChangeRequest{}).
			Where("id = ? AND status = ?", request.ID, models.EmailChangePending).
			Updates(map[string]any{
				"status":      models.EmailChangeApproved,
				"reviewed_by": reviewer.ID,
				"reviewed_at": now,
				"notes":       strings.TrimSpace(notes),
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrRequestResolved
		}

		grant := authz.NewEmailChangeGrant(request.UserID, authz.GrantSourceApproval)
		if err := s.identities.ApplyEmailChangeTx(ctx, tx, request.UserID, request.NewEmail, grant); err != nil {
			return err
		}

		return s.audit.RecordTx(ctx, tx, AuditEntry{
			ActorID:    &reviewer.ID,
			ActorEmail: reviewer.Email,
			AffectedID: &request.UserID,
			Action:     ActionEmailChangeApproved,
			Metadata: map[string]any{
				"old_email": oldEmail,
				"new_email": request.NewEmail,
			},
		})
	})
	if err != nil {
		return nil, mapConstraintError(err, ErrAlreadyRegistered)
	}

	request.Status = models.EmailChangeApproved
	request.ReviewedBy = &reviewer.ID
	request.ReviewedAt = &now
	request.Notes = strings.TrimSpace(notes)

	metrics.EmailChanges.WithLabelValues("approved").Inc()
	if s.notifications != nil {
		// The alert to the old address is a security control, never
		// preference-gated.
		s.notifications.Send(ctx, Dispatch{
			TemplateKey: TemplateEmailChangeAlert,
			Email:       oldEmail,
			Message:     fmt.Sprintf("The email address on your account was changed to %s.", request.NewEmail),
		})
		s.notifications.Send(ctx, Dispatch{
			TemplateKey: TemplateEmailChangeApproved,
			UserID:      request.UserID,
			Email:       request.NewEmail,
			Message:     "Your email change request was approved.",
		})
	}
	return request, nil
}

// Reject decides a request against the subject. Reviewer notes are mandatory;
// the user's email is untouched.
func (s *EmailChangeService) Reject(ctx context.Context, requestID string, reviewer *models.User, notes string) (*models.EmailChangeRequest, error) {
	ctx = ensureContext(ctx)

	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, apperrors.NewBadRequest("reviewer notes are required when rejecting")
	}

	request, err := s.getByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if request.Status == models.EmailChangeExpired || request.StaleAt(now, s.window) {
		return nil, ErrRequestExpired
	}
	if request.Status != models.EmailChangePending {
		return nil, ErrRequestResolved
	}

	allowed, err := s.CanBeReviewedBy(ctx, request, reviewer)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.denyReview(ctx, request, reviewer, "reject")
		return nil, ErrReviewNotAllowed
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.EmailChangeRequest{}).
			Where("id = ? AND status = ?", request.ID, models.EmailChangePending).
			Updates(map[string]any{
				"status":      models.EmailChangeRejected,
				"reviewed_by": reviewer.ID,
				"reviewed_at": now,
				"notes":       notes,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrRequestResolved
		}

		return s.audit.RecordTx(ctx, tx, AuditEntry{
			ActorID:    &reviewer.ID,
			ActorEmail: reviewer.Email,
			AffectedID: &request.UserID,
			Action:     ActionEmailChangeRejected,
			Metadata: map[string]any{
				"new_email": request.NewEmail,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	request.Status = models.EmailChangeRejected
	request.ReviewedBy = &reviewer.ID
	request.ReviewedAt = &now
	request.Notes = notes

	metrics.EmailChanges.WithLabelValues("rejected").Inc()
	if s.notifications != nil {
		s.notifications.Send(ctx, Dispatch{
			TemplateKey: TemplateEmailChangeRejected,
			UserID:      request.UserID,
			Message:     "Your email change request was rejected.",
		})
	}
	return request, nil
}

// ListPending returns decidable requests within the reviewer's scope.
func (s *EmailChangeService) ListPending(ctx context.Context, reviewer *models.User) ([]models.EmailChangeRequest, error) {
	ctx = ensureContext(ctx)

	if reviewer == nil {
		return nil, apperrors.NewBadRequest("reviewer is required")
	}

	query := s.db.WithContext(ctx).
		Preload("User").
		Where("email_change_requests.status = ?", models.EmailChangePending).
		Where("email_change_requests.requested_at >= ?", s.now().Add(-s.window))

	if reviewer.PrivilegeTier != models.TierSuperAdmin {
		kind, orgID, ok := reviewer.OrganizationRef()
		if !ok || reviewer.OrganizationRole() != models.OrgRoleAdmin {
			return nil, ErrReviewNotAllowed
		}
		column := "team_id"
		if kind == models.OrgKindEnterprise {
			column = "enterprise_group_id"
		}
		query = query.
			Joins("JOIN users ON users.id = email_change_requests.user_id").
			Where(fmt.Sprintf("users.%s = ?", column), orgID)
	}

	var requests []models.EmailChangeRequest
	if err := query.Order("email_change_requests.requested_at ASC").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("email change service: list pending: %w", err)
	}
	return requests, nil
}

// ExpireStale bulk-transitions pending requests older than the review window
// to expired. Idempotent; safe to run alongside approvals, which re-check the
// pending status when claiming.
func (s *EmailChangeService) ExpireStale(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	cutoff := s.now().Add(-s.window)
	var affected int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.EmailChangeRequest{}).
			Where("status = ? AND requested_at < ?", models.EmailChangePending, cutoff).
			Update("status", models.EmailChangeExpired)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected

		if affected == 0 {
			return nil
		}
		return s.audit.RecordTx(ctx, tx, AuditEntry{
			Action: ActionEmailChangeExpired,
			Metadata: map[string]any{
				"expired_count": affected,
				"cutoff":        cutoff,
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("email change service: expire stale: %w", err)
	}

	if affected > 0 {
		metrics.EmailChanges.WithLabelValues("expired").Add(float64(affected))
	}
	return affected, nil
}

func (s *EmailChangeService) getByID(ctx context.Context, id string) (*models.EmailChangeRequest, error) {
	var request models.EmailChangeRequest
	err := s.db.WithContext(ctx).First(&request, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("email change service: find request: %w", err)
	}
	return &request, nil
}

func (s *EmailChangeService) denyReview(ctx context.Context, request *models.EmailChangeRequest, reviewer *models.User, decision string) {
	entry := AuditEntry{
		AffectedID: &request.UserID,
		Action:     ActionEmailChangeBlocked,
		Metadata: map[string]any{
			"request_id": request.ID,
			"decision":   decision,
			"path":       "review",
		},
	}
	if reviewer != nil {
		entry.ActorID = &reviewer.ID
		entry.ActorEmail = reviewer.Email
	}
	recordAudit(s.audit, ctx, entry)
	metrics.EmailChanges.WithLabelValues("blocked").Inc()
}
