package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	affiliateapp "github.com/tdhub/commandhub/internal/application/affiliate"
	"github.com/tdhub/commandhub/internal/domain/affiliate"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"github.com/tdhub/commandhub/internal/interfaces/http/dto"
)

// AffiliateUseCase is the affiliate invite workflow
type AffiliateUseCase interface {
	CreateInvite(ctx context.Context, in affiliateapp.CreateInviteInput) (*affiliateapp.InviteView, error)
	AcceptInvite(ctx context.Context, in affiliateapp.AcceptInviteInput) (*affiliateapp.AcceptResult, error)
	RevokeInvite(ctx context.Context, id uuid.UUID) (*affiliateapp.InviteView, error)
	ListInvites(ctx context.Context, filter shared.Filter) (shared.Paginated[affiliateapp.InviteView], error)
	LookupInvite(ctx context.Context, code string) (*affiliateapp.PublicInviteView, error)
}

// CreateInviteRequest is an admin's invite form
type CreateInviteRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Email string `json:"email" binding:"required,email,max=254"`
}

// AcceptInviteRequest is the invited affiliate's signup form
type AcceptInviteRequest struct {
	Code        string `json:"code" binding:"required,invitecode"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	DisplayName string `json:"display_name" binding:"omitempty,max=200"`
}

// AffiliateHandler serves the affiliate invite routes
type AffiliateHandler struct {
	BaseHandler
	affiliates AffiliateUseCase
}

// NewAffiliateHandler creates a new AffiliateHandler
func NewAffiliateHandler(svc AffiliateUseCase) *AffiliateHandler {
	return &AffiliateHandler{affiliates: svc}
}

// CreateInvite issues an invite and emails it
// @Summary      Create affiliate invite
// @Description  Generate invite and referral codes and email the invite link
// @Tags         affiliates
// @Accept       json
// @Produce      json
// @Param        request body CreateInviteRequest true "Invitee"
// @Success      201 {object} dto.Response{data=affiliateapp.InviteView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /affiliates [post]
func (h *AffiliateHandler) CreateInvite(c *gin.Context) {
	var req CreateInviteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	view, err := h.affiliates.CreateInvite(c.Request.Context(), affiliateapp.CreateInviteInput{
		Name:      req.Name,
		Email:     req.Email,
		CreatedBy: optionalUserID(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, view)
}

// ListInvites returns a page of invites
// @Summary      List affiliate invites
// @Description  Page through invites, newest first, optionally filtered by status
// @Tags         affiliates
// @Produce      json
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Page size" minimum(1) maximum(100)
// @Param        status query string false "Invite status" Enums(pending, accepted, revoked)
// @Param        search query string false "Name or email search"
// @Success      200 {object} dto.Response{data=[]affiliateapp.InviteView,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /affiliates [get]
func (h *AffiliateHandler) ListInvites(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	page, err := h.affiliates.ListInvites(c.Request.Context(), shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Status:   req.Status,
		Search:   req.Search,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// RevokeInvite cancels a pending invite
// @Summary      Revoke affiliate invite
// @Description  Withdraw a pending invite. Accepted invites cannot be revoked.
// @Tags         affiliates
// @Produce      json
// @Param        id path string true "Invite ID" format(uuid)
// @Success      200 {object} dto.Response{data=affiliateapp.InviteView}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /affiliates/{id}/revoke [post]
func (h *AffiliateHandler) RevokeInvite(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invite ID format")
		return
	}

	view, err := h.affiliates.RevokeInvite(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// LookupInvite shows the signup page what an invite code is for
// @Summary      Look up invite
// @Description  Public view of an invite code for the signup page
// @Tags         affiliates
// @Produce      json
// @Param        code path string true "Invite code"
// @Success      200 {object} dto.Response{data=affiliateapp.PublicInviteView}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /affiliates/invite/{code} [get]
func (h *AffiliateHandler) LookupInvite(c *gin.Context) {
	code := affiliate.NormalizeCode(c.Param("code"))
	if !affiliate.IsInviteCodeFormat(code) {
		h.HandleError(c, affiliate.ErrInviteNotFound)
		return
	}

	view, err := h.affiliates.LookupInvite(c.Request.Context(), code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// AcceptInvite creates the affiliate's account from an invite
// @Summary      Accept affiliate invite
// @Description  Create the affiliate account and profile from a pending invite
// @Tags         affiliates
// @Accept       json
// @Produce      json
// @Param        request body AcceptInviteRequest true "Signup form"
// @Success      201 {object} dto.Response{data=affiliateapp.AcceptResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /affiliates/accept [post]
func (h *AffiliateHandler) AcceptInvite(c *gin.Context) {
	var req AcceptInviteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.affiliates.AcceptInvite(c.Request.Context(), affiliateapp.AcceptInviteInput{
		Code:        req.Code,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
