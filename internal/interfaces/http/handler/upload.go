package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	uploadapp "github.com/tdhub/commandhub/internal/application/upload"
	"github.com/tdhub/commandhub/internal/interfaces/http/middleware"
)

// UploadFormField is the multipart field carrying the file
const UploadFormField = "file"

// UploadUseCase stores uploaded files
type UploadUseCase interface {
	Upload(ctx context.Context, in uploadapp.Input) (*uploadapp.Result, error)
}

// UploadHandler accepts file uploads for signed-in users
type UploadHandler struct {
	BaseHandler
	uploads UploadUseCase
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(svc UploadUseCase) *UploadHandler {
	return &UploadHandler{uploads: svc}
}

// Upload stores the multipart file and returns a temporary download URL
// @Summary      Upload file
// @Description  Store a file and return a temporary download URL. The type is detected from the content.
// @Tags         upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "File to upload"
// @Success      201 {object} dto.Response{data=uploadapp.Result}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      415 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	header, err := c.FormFile(UploadFormField)
	if err != nil {
		switch {
		case middleware.IsBodyTooLarge(err):
			h.HandleError(c, uploadapp.ErrFileTooLarge)
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			h.HandleError(c, uploadapp.ErrFileRequired)
		default:
			h.BadRequest(c, "Invalid multipart form")
		}
		return
	}

	file, err := header.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	result, err := h.uploads.Upload(c.Request.Context(), uploadapp.Input{
		UserID:      userID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
