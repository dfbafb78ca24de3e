package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/models"
	"github.com/ashack/portfolio-sub000/pkg/logger"
	"github.com/ashack/portfolio-sub000/pkg/mail"
)

// Notification template keys. Each key maps to a subject/title pair; payload
// values are rendered into the body.
const (
	TemplateInvitationIssued    = "invitation.issued"
	TemplateInvitationResent    = "invitation.resent"
	TemplateEmailChangeSubmit   = "email_change.submitted"
	TemplateEmailChangeApproved = "email_change.approved"
	TemplateEmailChangeRejected = "email_change.rejected"
	TemplateEmailChangeAlert    = "email_change.security_alert"
	TemplateRoleChanged         = "identity.role_changed"
	TemplateStatusChanged       = "identity.status_changed"
)

type notificationTemplate struct {
	Subject  string
	Title    string
	Severity string
}

var notificationTemplates = map[string]notificationTemplate{
	TemplateInvitationIssued:    {Subject: "You're invited to Portfolio", Title: "Invitation", Severity: "info"},
	TemplateInvitationResent:    {Subject: "Your Portfolio invitation was resent", Title: "Invitation resent", Severity: "info"},
	TemplateEmailChangeSubmit:   {Subject: "Email change request received", Title: "Email change requested", Severity: "info"},
	TemplateEmailChangeApproved: {Subject: "Your email change was approved", Title: "Email change approved", Severity: "info"},
	TemplateEmailChangeRejected: {Subject: "Your email change was rejected", Title: "Email change rejected", Severity: "warning"},
	TemplateEmailChangeAlert:    {Subject: "Security alert: your email address was changed", Title: "Security alert", Severity: "critical"},
	TemplateRoleChanged:         {Subject: "Your role was changed", Title: "Role changed", Severity: "info"},
	TemplateStatusChanged:       {Subject: "Your account status was changed", Title: "Account status changed", Severity: "warning"},
}

// Dispatch describes one outbound notification: a durable in-app row for the
// recipient user (when known) plus a fire-and-forget email.
type Dispatch struct {
	TemplateKey string
	UserID      string // optional; no in-app row is written without it
	Email       string
	Message     string
	Payload     map[string]any
}

// NotificationService persists in-app notifications and hands mail to the
// configured mailer. Failures are logged, never propagated: dispatch happens
// after the triggering transaction has committed and must not undo it.
type NotificationService struct {
	db     *gorm.DB
	mailer mail.Mailer
	log    *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, mailer mail.Mailer) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{
		db:     db,
		mailer: mailer,
		log:    logger.WithModule("notifications"),
	}, nil
}

// Send dispatches a notification. It never returns an error; delivery problems
// are logged and the caller's already-committed state change stands.
func (s *NotificationService) Send(ctx context.Context, d Dispatch) {
	ctx = ensureContext(ctx)

	tmpl, ok := notificationTemplates[d.TemplateKey]
	if !ok {
		s.log.Warn("unknown notification template", zap.String("template", d.TemplateKey))
		return
	}

	if userID := strings.TrimSpace(d.UserID); userID != "" {
		row := models.Notification{
			UserID:   userID,
			Type:     d.TemplateKey,
			Title:    tmpl.Title,
			Message:  d.Message,
			Severity: tmpl.Severity,
		}
		if d.Payload != nil {
			if encoded, err := json.Marshal(d.Payload); err == nil {
				row.Metadata = datatypes.JSON(encoded)
			}
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			s.log.Warn("persist notification failed",
				zap.String("template", d.TemplateKey),
				zap.Error(err),
			)
		}
	}

	if s.mailer == nil {
		return
	}
	email := strings.TrimSpace(d.Email)
	if email == "" {
		return
	}

	msg := mail.Message{
		To:      []string{email},
		Subject: tmpl.Subject,
		Body:    renderNotificationBody(tmpl, d),
	}
	if err := s.mailer.Send(ctx, msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		s.log.Warn("send notification mail failed",
			zap.String("template", d.TemplateKey),
			zap.Error(err),
		)
	}
}

// ListForUser returns in-app notifications for a user ordered by recency.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var rows []models.Notification
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return rows, nil
}

// MarkRead flags a notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)

	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return fmt.Errorf("notification service: mark read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func renderNotificationBody(tmpl notificationTemplate, d Dispatch) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	if d.Message != "" {
		b.WriteString(d.Message)
		b.WriteString("\n")
	} else {
		b.WriteString(tmpl.Title)
		b.WriteString("\n")
	}
	if link, ok := d.Payload["link"].(string); ok && link != "" {
		b.WriteString("\n")
		b.WriteString(link)
		b.WriteString("\n")
	}
	b.WriteString("\nIf you did not expect this email, contact support.\n")
	return b.String()
}
