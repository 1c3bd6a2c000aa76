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

	"github.com/commerce/backoffice/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	// Should not panic
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	type restockRequest struct {
		ProductID string `json:"product_id" binding:"required,uuid"`
		Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	}

	SetupValidator()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req restockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	t.Run("returns field details for invalid input", func(t *testing.T) {
		body := strings.NewReader(`{"product_id": "not-a-uuid", "quantity": -1}`)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 2)
		// Field names come from json tags
		fields := []string{resp.Error.Details[0].Field, resp.Error.Details[1].Field}
		assert.Contains(t, fields, "product_id")
		assert.Contains(t, fields, "quantity")
	})

	t.Run("passes valid input through", func(t *testing.T) {
		body := strings.NewReader(`{"product_id": "c2a7e01e-95d4-4a84-9c6a-9a2a4a3a1a10", "quantity": 5}`)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetValidationMessage(t *testing.T) {
	type testStruct struct {
		Required string `binding:"required"`
		Min      string `binding:"min=5"`
		Max      string `binding:"max=10"`
		UUID     string `binding:"uuid"`
		OneOf    string `binding:"oneof=a b c"`
		GTE      int    `binding:"gte=10"`
		GT       int    `binding:"gt=0"`
	}

	v := validator.New()

	expected := map[string]string{
		"Required": "This field is required",
		"Min":      "Must be at least 5 characters",
		"UUID":     "Invalid UUID format",
		"OneOf":    "Must be one of: a b c",
		"GTE":      "Must be greater than or equal to 10",
		"GT":       "Must be greater than 0",
	}

	obj := testStruct{UUID: "invalid", OneOf: "d", Min: "ab"}
	err := v.Struct(obj)
	require.Error(t, err)

	validationErrs := err.(validator.ValidationErrors)
	seen := map[string]bool{}
	for _, e := range validationErrs {
		want, ok := expected[e.Field()]
		if !ok {
			continue
		}
		assert.Equal(t, want, getValidationMessage(e), "field %s", e.Field())
		seen[e.Field()] = true
	}
	for field := range expected {
		assert.True(t, seen[field], "expected a validation error for %s", field)
	}
}
