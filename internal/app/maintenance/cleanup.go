package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/models"
	"github.com/ashack/portfolio-sub000/internal/services"
	"github.com/ashack/portfolio-sub000/pkg/logger"
)

const (
	defaultAuditRetentionDays = 365
	defaultPruneAfter         = 30 * 24 * time.Hour
	defaultInvitationSpec     = "@hourly"
	defaultEmailChangeSpec    = "@daily"
	defaultAuditSpec          = "@daily"
)

// Cleaner coordinates background maintenance: expiring stale invitations and
// email-change requests, pruning settled invitation rows, and enforcing the
// audit retention policy.
type Cleaner struct {
	db         *gorm.DB
	invites    *services.InvitationService
	changes    *services.EmailChangeService
	audit      *services.AuditService
	cron       *cron.Cron
	now        func() time.Time
	log        *zap.Logger
	enabled    bool
	retention  int
	pruneAfter time.Duration

	invitationSchedule  string
	emailChangeSchedule string
	auditSchedule       string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling and cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithPruneAfter adjusts how long settled invitation rows are kept around.
func WithPruneAfter(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.pruneAfter = d
		}
	}
}

// WithInvitationSchedule overrides the cron specification for the invitation sweep.
func WithInvitationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.invitationSchedule = spec
		}
	}
}

// WithEmailChangeSchedule overrides the cron specification for the email-change sweep.
func WithEmailChangeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.emailChangeSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(db *gorm.DB, invites *services.InvitationService, changes *services.EmailChangeService, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:                  db,
		invites:             invites,
		changes:             changes,
		audit:               audit,
		now:                 time.Now,
		retention:           defaultAuditRetentionDays,
		pruneAfter:          defaultPruneAfter,
		invitationSchedule:  defaultInvitationSpec,
		emailChangeSchedule: defaultEmailChangeSpec,
		auditSchedule:       defaultAuditSpec,
		log:                 logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	// Determine whether any job is enabled.
	cleaner.enabled = cleaner.invites != nil || cleaner.changes != nil || cleaner.audit != nil || cleaner.db != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.invites != nil {
		if _, err := c.cron.AddFunc(c.invitationSchedule, func() {
			ctx := context.Background()
			if _, err := c.invites.ExpireStale(ctx); err != nil {
				c.log.Warn("invitation sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.changes != nil {
		if _, err := c.cron.AddFunc(c.emailChangeSchedule, func() {
			ctx := context.Background()
			if _, err := c.changes.ExpireStale(ctx); err != nil {
				c.log.Warn("email change sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			if _, err := PruneInvitations(ctx, c.db, c.now().Add(-c.pruneAfter)); err != nil {
				c.log.Warn("invitation prune failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.invites != nil {
		if _, err := c.invites.ExpireStale(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.changes != nil {
		if _, err := c.changes.ExpireStale(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil {
		if _, err := PruneInvitations(ctx, c.db, c.now().Add(-c.pruneAfter)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// PruneInvitations removes invitation rows that reached a terminal state
// before the cutoff. Pending offers are never touched; the expiry sweep has
// to mark them first.
func PruneInvitations(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("prune invitations: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("(accepted_at IS NOT NULL AND accepted_at < ?) OR (status = ? AND expires_at < ?)",
			cutoff, models.InvitationExpired, cutoff).
		Delete(&models.Invitation{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune invitations: %w", result.Error)
	}

	return result.RowsAffected, nil
}
