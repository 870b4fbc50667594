package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/tdhub/commandhub/internal/domain/affiliate"
	"github.com/tdhub/commandhub/internal/domain/chat"
	"github.com/tdhub/commandhub/internal/interfaces/http/dto"
)

var setupOnce sync.Once

// SetupValidator configures gin's validator: JSON field names in errors and
// the invitecode, chatmodel and chatrole tags.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("invitecode", func(fl validator.FieldLevel) bool {
			return affiliate.IsInviteCodeFormat(affiliate.NormalizeCode(fl.Field().String()))
		})
		_ = v.RegisterValidation("chatmodel", func(fl validator.FieldLevel) bool {
			_, err := chat.ParseModel(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("chatrole", func(fl validator.FieldLevel) bool {
			role := chat.Role(fl.Field().String())
			return role == chat.RoleUser || role == chat.RoleAssistant
		})
	})
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes the response for a failed ShouldBind call:
// 413 for an oversized body, 400 BAD_REQUEST for unreadable JSON and
// 400 VALIDATION_ERROR with field details otherwise.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)
	c.Set(ErrorCodeKey, dto.ErrCodeValidation)

	if IsBodyTooLarge(err) {
		AbortTooLarge(c)
		return
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		c.Set(ErrorCodeKey, dto.ErrCodeBadRequest)
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, "Invalid request body", requestID))
		return
	}
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "url":
		return "Invalid URL format"
	case "invitecode":
		return "Invalid invite code"
	case "chatmodel":
		return "Must be one of: claude gpt compare"
	case "chatrole":
		return "Must be one of: user assistant"
	case "dive":
		return "Invalid item"
	default:
		return "Invalid value"
	}
}
