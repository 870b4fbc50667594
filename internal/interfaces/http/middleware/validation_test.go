package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdhub/commandhub/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	type req struct {
		Code  string `json:"code" binding:"invitecode"`
		Model string `json:"model" binding:"chatmodel"`
		Role  string `json:"role" binding:"chatrole"`
	}
	assert.NoError(t, v.Struct(req{Code: "tdabc234", Model: "", Role: "user"}))
	assert.NoError(t, v.Struct(req{Code: "TDABC234", Model: "compare", Role: "assistant"}))
	assert.Error(t, v.Struct(req{Code: "XX123456", Model: "claude", Role: "user"}))
	assert.Error(t, v.Struct(req{Code: "TDABC234", Model: "llama", Role: "user"}))
	assert.Error(t, v.Struct(req{Code: "TDABC234", Model: "gpt", Role: "system"}))
}

func TestHandleValidationError(t *testing.T) {
	type signup struct {
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name" binding:"max=5"`
	}
	SetupValidator()

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req signup
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	post := func(body string) (*httptest.ResponseRecorder, dto.Response) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w, resp
	}

	t.Run("field details use json names", func(t *testing.T) {
		w, resp := post(`{"email": "invalid", "name": "far too long"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		require.Len(t, resp.Error.Details, 2)
		assert.Equal(t, "email", resp.Error.Details[0].Field)
		assert.Equal(t, "Invalid email format", resp.Error.Details[0].Message)
		assert.Equal(t, "Must be at most 5 characters", resp.Error.Details[1].Message)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		w, resp := post(`{"email":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("valid body passes", func(t *testing.T) {
		w, resp := post(`{"email": "ada@example.com", "name": "Ada"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)
	})
}
