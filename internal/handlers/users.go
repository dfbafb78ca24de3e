package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/middleware"
	"github.com/ashack/portfolio-sub000/internal/models"
	"github.com/ashack/portfolio-sub000/internal/services"
	"github.com/ashack/portfolio-sub000/pkg/errors"
	"github.com/ashack/portfolio-sub000/pkg/response"
)

type UserHandler struct {
	identities *services.IdentityService
}

func NewUserHandler(identities *services.IdentityService) *UserHandler {
	return &UserHandler{identities: identities}
}

type createUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type changeTierRequest struct {
	Tier string `json:"tier" validate:"required"`
}

type changeOrgRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type changeOwnEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.identities.Create(requestContext(c), services.CreateUserInput{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: strings.TrimSpace(body.FirstName),
		LastName:  strings.TrimSpace(body.LastName),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	per, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	filters := services.UserFilters{
		Track:  models.MembershipTrack(c.Query("track")),
		Tier:   models.PrivilegeTier(c.Query("tier")),
		Status: models.UserStatus(c.Query("status")),
		Query:  strings.TrimSpace(c.Query("q")),
	}

	users, total, err := h.identities.List(requestContext(c), services.ListUsersOptions{
		Page:     page,
		PageSize: per,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, users, &response.Meta{Page: page, PerPage: per, Total: int(total)})
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.identities.GetByID(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT /api/users/profile updates the caller's own mutable attributes. Email
// submitted here is stripped and the attempt is recorded, never applied.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body updateProfileRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.identities.UpdateProfile(requestContext(c), actor.ID, services.UpdateProfileInput{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT /api/users/email lets a super admin rotate their own address directly.
func (h *UserHandler) ChangeOwnEmail(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body changeOwnEmailRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.identities.ChangeOwnEmailAsSuperAdmin(requestContext(c), actor, body.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"email": strings.ToLower(strings.TrimSpace(body.Email))})
}

// PUT /api/users/:id/status
func (h *UserHandler) ChangeStatus(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body changeStatusRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.identities.ChangeStatus(requestContext(c), c.Param("id"), models.UserStatus(body.Status), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT /api/users/:id/tier
func (h *UserHandler) ChangeTier(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body changeTierRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.identities.ChangePrivilegeTier(requestContext(c), c.Param("id"), models.PrivilegeTier(body.Tier), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// PUT /api/users/:id/org-role
func (h *UserHandler) ChangeOrgRole(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body changeOrgRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.identities.ChangeOrganizationRole(requestContext(c), c.Param("id"), models.OrgRole(body.Role), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Destroy(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.identities.Destroy(requestContext(c), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
