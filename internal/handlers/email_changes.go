package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ashack/portfolio-sub000/internal/middleware"
	"github.com/ashack/portfolio-sub000/internal/services"
	"github.com/ashack/portfolio-sub000/pkg/errors"
	"github.com/ashack/portfolio-sub000/pkg/response"
)

type EmailChangeHandler struct {
	changes *services.EmailChangeService
}

func NewEmailChangeHandler(changes *services.EmailChangeService) *EmailChangeHandler {
	return &EmailChangeHandler{changes: changes}
}

type submitEmailChangeRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

type reviewEmailChangeRequest struct {
	Notes string `json:"notes"`
}

// POST /api/email-changes
func (h *EmailChangeHandler) Submit(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body submitEmailChangeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	request, err := h.changes.Submit(requestContext(c), actor, body.Email, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, request)
}

// GET /api/email-changes/pending
func (h *EmailChangeHandler) ListPending(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	pending, err := h.changes.ListPending(requestContext(c), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, pending)
}

// POST /api/email-changes/:id/approve
func (h *EmailChangeHandler) Approve(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body reviewEmailChangeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	request, err := h.changes.Approve(requestContext(c), c.Param("id"), actor, body.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}

// POST /api/email-changes/:id/reject
func (h *EmailChangeHandler) Reject(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var body reviewEmailChangeRequest
	if !bindAndValidate(c, &body) {
		return
	}

	request, err := h.changes.Reject(requestContext(c), c.Param("id"), actor, body.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, request)
}
