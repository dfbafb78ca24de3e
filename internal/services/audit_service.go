package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ashack/portfolio-sub000/internal/auditctx"
	"github.com/ashack/portfolio-sub000/internal/models"
	"github.com/ashack/portfolio-sub000/pkg/metrics"
)

// ErrUnknownAction indicates an action tag outside the closed vocabulary.
var ErrUnknownAction = errors.New("audit service: unknown action tag")

// AuditEntry captures a single ledger event to persist. Actor fields left
// empty are filled from the request actor carried in the context.
type AuditEntry struct {
	ActorID    *string
	ActorEmail string
	AffectedID *string
	Action     string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
}

// AuditFilters encapsulates optional filters when querying the ledger.
type AuditFilters struct {
	ActorID    string
	AffectedID string
	Action     string
	Category   ActionCategory
	IPAddress  string
	Since      *time.Time
	Until      *time.Time
}

// AuditListOptions controls pagination and filtering for ledger queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService appends and queries the immutable activity ledger.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Record appends a ledger entry outside any caller transaction. Mutations that
// must commit atomically with their ledger entry use RecordTx instead.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)
	return s.append(ctx, s.db.WithContext(ctx), entry)
}

// RecordTx appends a ledger entry inside the supplied transaction so the entry
// commits or rolls back together with the mutation it describes.
func (s *AuditService) RecordTx(ctx context.Context, tx *gorm.DB, entry AuditEntry) error {
	if tx == nil {
		return errors.New("audit service: tx is required")
	}
	return s.append(ensureContext(ctx), tx, entry)
}

func (s *AuditService) append(ctx context.Context, tx *gorm.DB, entry AuditEntry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return errors.New("audit service: action is required")
	}
	if !KnownAction(action) {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if actor, ok := auditctx.FromContext(ctx); ok {
		if entry.ActorID == nil && actor.UserID != "" {
			id := actor.UserID
			entry.ActorID = &id
		}
		if entry.ActorEmail == "" {
			entry.ActorEmail = actor.Email
		}
		if entry.IPAddress == "" {
			entry.IPAddress = actor.IPAddress
		}
		if entry.UserAgent == "" {
			entry.UserAgent = actor.UserAgent
		}
	}

	payload := ""
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		payload = string(encoded)
	}

	log := models.AuditLog{
		Action:     action,
		ActorEmail: strings.TrimSpace(entry.ActorEmail),
		Metadata:   payload,
		IPAddress:  strings.TrimSpace(entry.IPAddress),
		UserAgent:  strings.TrimSpace(entry.UserAgent),
	}
	if entry.ActorID != nil && strings.TrimSpace(*entry.ActorID) != "" {
		id := strings.TrimSpace(*entry.ActorID)
		log.ActorID = &id
	}
	if entry.AffectedID != nil && strings.TrimSpace(*entry.AffectedID) != "" {
		id := strings.TrimSpace(*entry.AffectedID)
		log.AffectedID = &id
	}

	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("audit service: append entry: %w", err)
	}

	metrics.LedgerEntries.WithLabelValues(action).Inc()
	return nil
}

// IsCritical reports whether the entry records a destructive or
// impersonation-class action.
func (s *AuditService) IsCritical(entry models.AuditLog) bool {
	return IsCriticalAction(entry.Action)
}

// Category derives the reporting category of an entry from its action tag.
func (s *AuditService) Category(entry models.AuditLog) ActionCategory {
	return CategoryOf(entry.Action)
}

// List returns paginated ledger entries ordered by creation time descending.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	var (
		results []models.AuditLog
		total   int64
	)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	query = applyAuditFilters(query, opts.Filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count entries: %w", err)
	}

	if err := query.
		Preload("Actor").
		Preload("Affected").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: list entries: %w", err)
	}

	return results, total, nil
}

// Export returns ledger entries that match the provided filters without pagination.
func (s *AuditService) Export(ctx context.Context, filters AuditFilters) ([]models.AuditLog, error) {
	ctx = ensureContext(ctx)

	var logs []models.AuditLog
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	query = applyAuditFilters(query, filters)

	if err := query.
		Preload("Actor").
		Preload("Affected").
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("audit service: export entries: %w", err)
	}

	return logs, nil
}

// CleanupOlderThan removes ledger entries older than the retention window in
// days. This is the single operator-driven exception to append-only storage.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup entries: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.ActorID != "" {
		query = query.Where("actor_id = ?", filters.ActorID)
	}
	if filters.AffectedID != "" {
		query = query.Where("affected_id = ?", filters.AffectedID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Category != "" {
		query = query.Where("action IN ?", ActionsInCategory(filters.Category))
	}
	if filters.IPAddress != "" {
		query = query.Where("ip_address = ?", filters.IPAddress)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
