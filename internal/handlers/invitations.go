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

type InvitationHandler struct {
	invites *services.InvitationService
}

func NewInvitationHandler(invites *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invites: invites}
}

type issueInvitationRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OrgKind string `json:"org_kind" validate:"required"`
	OrgID   string `json:"org_id" validate:"required"`
	Role    string `json:"role" validate:"required"`
}

type acceptInvitationRequest struct {
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// invitationInfo is the public projection of an offer; the raw token row
// stays server-side.
type invitationInfo struct {
	Email     string `json:"email"`
	OrgKind   string `json:"org_kind"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

// POST /api/invitations
func (h *InvitationHandler) Issue(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body issueInvitationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	invite, token, err := h.invites.Issue(requestContext(c), services.IssueInvitationInput{
		Email:   body.Email,
		OrgKind: models.OrgKind(body.OrgKind),
		OrgID:   body.OrgID,
		Role:    models.OrgRole(body.Role),
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"invitation": invite,
		"link":       h.invites.InviteLink(token),
	})
}

// GET /api/invitations/:token resolves an offer for the invitee without
// requiring authentication.
func (h *InvitationHandler) Info(c *gin.Context) {
	invite, err := h.invites.GetByToken(requestContext(c), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, invitationInfo{
		Email:     invite.Email,
		OrgKind:   string(invite.OrgKind),
		Role:      string(invite.Role),
		Status:    string(invite.Status),
		ExpiresAt: invite.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// POST /api/invitations/:token/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	var body acceptInvitationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.invites.Accept(requestContext(c), c.Param("token"), services.AcceptInvitationInput{
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// POST /api/invitations/:id/resend
func (h *InvitationHandler) Resend(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	invite, err := h.invites.Resend(requestContext(c), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invite)
}

// DELETE /api/invitations/:id
func (h *InvitationHandler) Revoke(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.invites.Revoke(requestContext(c), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/invitations?org_kind=team&org_id=...
func (h *InvitationHandler) ListForOrg(c *gin.Context) {
	kind := models.OrgKind(c.Query("org_kind"))
	orgID := c.Query("org_id")
	if orgID == "" {
		response.Error(c, errors.NewBadRequest("org_id is required"))
		return
	}

	invites, err := h.invites.ListForOrg(requestContext(c), kind, orgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invites)
}
