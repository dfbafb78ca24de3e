package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/middleware"
	"github.com/ashack/portfolio-sub000/internal/models"
	"github.com/ashack/portfolio-sub000/internal/services"
	"github.com/ashack/portfolio-sub000/pkg/errors"
	"github.com/ashack/portfolio-sub000/pkg/response"
)

// OrganizationHandler serves both organization kinds; the route group decides
// which kind a request addresses.
type OrganizationHandler struct {
	orgs *services.OrganizationService
}

func NewOrganizationHandler(orgs *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs}
}

type createTeamRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Plan    string `json:"plan"`
	AdminID string `json:"admin_id" validate:"required"`
}

type createEnterpriseGroupRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=120"`
	Plan       string `json:"plan"`
	AdminID    string `json:"admin_id"`
	DeferAdmin bool   `json:"defer_admin"`
}

type reassignAdminRequest struct {
	AdminID string `json:"admin_id" validate:"required"`
}

// POST /api/teams
func (h *OrganizationHandler) CreateTeam(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.orgs.CreateTeam(requestContext(c), services.CreateTeamInput{
		Name:    body.Name,
		Plan:    body.Plan,
		AdminID: body.AdminID,
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, team)
}

// GET /api/teams/:id
func (h *OrganizationHandler) GetTeam(c *gin.Context) {
	team, err := h.orgs.GetTeam(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// DELETE /api/teams/:id
func (h *OrganizationHandler) DestroyTeam(c *gin.Context) {
	h.destroy(c, models.OrgKindTeam)
}

// PUT /api/teams/:id/admin
func (h *OrganizationHandler) ReassignTeamAdmin(c *gin.Context) {
	h.reassignAdmin(c, models.OrgKindTeam)
}

// GET /api/teams/:id/capacity
func (h *OrganizationHandler) TeamCapacity(c *gin.Context) {
	h.capacity(c, models.OrgKindTeam)
}

// POST /api/enterprise-groups
func (h *OrganizationHandler) CreateEnterpriseGroup(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body createEnterpriseGroupRequest
	if !bindAndValidate(c, &body) {
		return
	}

	group, err := h.orgs.CreateEnterpriseGroup(requestContext(c), services.CreateEnterpriseGroupInput{
		Name:       body.Name,
		Plan:       body.Plan,
		AdminID:    body.AdminID,
		DeferAdmin: body.DeferAdmin,
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, group)
}

// GET /api/enterprise-groups/:id
func (h *OrganizationHandler) GetEnterpriseGroup(c *gin.Context) {
	group, err := h.orgs.GetEnterpriseGroup(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, group)
}

// DELETE /api/enterprise-groups/:id
func (h *OrganizationHandler) DestroyEnterpriseGroup(c *gin.Context) {
	h.destroy(c, models.OrgKindEnterprise)
}

// PUT /api/enterprise-groups/:id/admin
func (h *OrganizationHandler) ReassignGroupAdmin(c *gin.Context) {
	h.reassignAdmin(c, models.OrgKindEnterprise)
}

// GET /api/enterprise-groups/:id/capacity
func (h *OrganizationHandler) GroupCapacity(c *gin.Context) {
	h.capacity(c, models.OrgKindEnterprise)
}

func (h *OrganizationHandler) destroy(c *gin.Context, kind models.OrgKind) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.orgs.Destroy(requestContext(c), kind, c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *OrganizationHandler) reassignAdmin(c *gin.Context, kind models.OrgKind) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body reassignAdminRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.orgs.ReassignAdmin(requestContext(c), kind, c.Param("id"), body.AdminID, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"admin_id": body.AdminID})
}

func (h *OrganizationHandler) capacity(c *gin.Context, kind models.OrgKind) {
	ctx := requestContext(c)
	id := c.Param("id")

	count, err := h.orgs.MemberCount(ctx, kind, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	open, err := h.orgs.CanAddMember(ctx, kind, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"members":        count,
		"can_add_member": open,
	})
}
