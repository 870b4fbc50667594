package dto

import (
	"net/http"
	"strings"
)

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeNotConfigured is used when an integration has no credentials
	ErrCodeNotConfigured = "NOT_CONFIGURED"
)

// Input error codes
const (
	// ErrCodeValidation is used when a request body fails validation
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodePayloadTooLarge is used when the body exceeds the route limit
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidSignature   = "INVALID_SIGNATURE"
)

// Resource error codes
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeInvalidState  = "INVALID_STATE"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeNotConfigured: http.StatusServiceUnavailable,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeInvalidSignature:   http.StatusUnauthorized,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	// affiliate invites
	"INVITE_NOT_FOUND":       http.StatusNotFound,
	"INVITE_ALREADY_USED":    http.StatusConflict,
	"INVITE_REVOKED":         http.StatusGone,
	"INVITE_EXPIRED":         http.StatusGone,
	"EMAIL_TAKEN":            http.StatusConflict,
	"CODE_GENERATION_FAILED": http.StatusInternalServerError,

	// billing
	"PLAN_NOT_FOUND":         http.StatusNotFound,
	"NO_BILLING_ACCOUNT":     http.StatusNotFound,
	"BILLING_NOT_CONFIGURED": http.StatusServiceUnavailable,
	"WEBHOOK_NOT_CONFIGURED": http.StatusServiceUnavailable,
	"PAYMENT_PROVIDER_ERROR": http.StatusBadGateway,

	// chat
	"AI_UNAVAILABLE": http.StatusServiceUnavailable,

	// upload
	"FILE_REQUIRED":         http.StatusBadRequest,
	"FILE_TOO_LARGE":        http.StatusRequestEntityTooLarge,
	"UNSUPPORTED_FILE_TYPE": http.StatusUnsupportedMediaType,
	"UPLOAD_FAILED":         http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for a given error code.
// Unlisted INVALID_* codes are input errors; anything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// IsServerError reports whether the code maps to a 5xx status
func IsServerError(code string) bool {
	return GetHTTPStatus(code) >= http.StatusInternalServerError
}
