package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	mailingapp "github.com/tdhub/commandhub/internal/application/mailing"
)

// MailingUseCase manages mailing list signups
type MailingUseCase interface {
	Subscribe(ctx context.Context, in mailingapp.SubscribeInput) (*mailingapp.SubscribeResult, error)
}

// SubscribeRequest is the mailing list signup form
type SubscribeRequest struct {
	Email  string `json:"email" binding:"required,email,max=254"`
	Name   string `json:"name" binding:"omitempty,max=200"`
	Source string `json:"source" binding:"omitempty,max=100"`
}

// MailingHandler serves the mailing list signup
type MailingHandler struct {
	BaseHandler
	mailing MailingUseCase
}

// NewMailingHandler creates a new MailingHandler
func NewMailingHandler(svc MailingUseCase) *MailingHandler {
	return &MailingHandler{mailing: svc}
}

// Subscribe adds an address to the list. Signing up twice is not an error.
// @Summary      Join mailing list
// @Description  Subscribe an address. Signing up twice returns 200.
// @Tags         mailing
// @Accept       json
// @Produce      json
// @Param        request body SubscribeRequest true "Subscriber"
// @Success      201 {object} dto.Response{data=mailingapp.SubscribeResult}
// @Success      200 {object} dto.Response{data=mailingapp.SubscribeResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /mailing-list [post]
func (h *MailingHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.mailing.Subscribe(c.Request.Context(), mailingapp.SubscribeInput{
		Email:  req.Email,
		Name:   req.Name,
		Source: req.Source,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.AlreadySubscribed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}
