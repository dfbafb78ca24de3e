package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/middleware"
	"github.com/ashack/portfolio-sub000/internal/models"
	"github.com/ashack/portfolio-sub000/internal/services"
	"github.com/ashack/portfolio-sub000/pkg/errors"
	"github.com/ashack/portfolio-sub000/pkg/response"
)

type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	page := parseIntQuery(c, "page", 1)
	per := parseIntQuery(c, "per_page", 50)

	logs, total, err := h.audit.List(requestContext(c), services.AuditListOptions{
		Page:     page,
		PageSize: per,
		Filters:  auditFiltersFromQuery(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{Page: page, PerPage: per, Total: int(total)})
}

// GET /api/audit/export returns the full filtered ledger slice, unpaginated.
func (h *AuditHandler) Export(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	logs, err := h.audit.Export(requestContext(c), auditFiltersFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, logs)
}

// Ledger access is reserved for administrative tiers.
func (h *AuditHandler) authorize(c *gin.Context) bool {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return false
	}
	if actor.PrivilegeTier == models.TierStandard {
		response.Error(c, errors.ErrForbidden)
		return false
	}
	return true
}

func auditFiltersFromQuery(c *gin.Context) services.AuditFilters {
	filters := services.AuditFilters{
		ActorID:    c.Query("actor_id"),
		AffectedID: c.Query("affected_id"),
		Action:     c.Query("action"),
		Category:   services.ActionCategory(c.Query("category")),
		IPAddress:  c.Query("ip"),
	}
	if since, err := time.Parse(time.RFC3339, c.Query("since")); err == nil {
		filters.Since = &since
	}
	if until, err := time.Parse(time.RFC3339, c.Query("until")); err == nil {
		filters.Until = &until
	}
	return filters
}
