package serverutils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"manual-chatbot-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperror.NotFound("x"), 404},
		{"validation", apperror.Validation("x"), 400},
		{"no input", apperror.NoInput("x"), 400},
		{"extraction", apperror.Extraction("x"), 422},
		{"storage", apperror.Storage("x", errors.New("disk")), 500},
		{"generation", apperror.Generation("x", errors.New("refused")), 502},
		{"generation timeout", apperror.Generation("x", context.DeadlineExceeded), 504},
		{"index", apperror.Index("x", errors.New("boom")), 502},
		{"conflict", apperror.Conflict("x"), 409},
		{"fiber", fiber.NewError(fiber.StatusRequestEntityTooLarge, "too big"), 413},
		{"plain", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/timeout", func(c *fiber.Ctx) error {
		return apperror.Generation("generation failed", context.DeadlineExceeded)
	})
	app.Get("/panic-free", func(c *fiber.Ctx) error {
		return errors.New("secret detail")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.JSON(SuccessResponse("fine", map[string]int{"n": 1}))
	})

	t.Run("retryable generation", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/timeout", nil))
		require.NoError(t, err)
		assert.Equal(t, 504, resp.StatusCode)

		var body ErrorBody
		raw, _ := io.ReadAll(resp.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.False(t, body.Success)
		assert.True(t, body.Retryable)
		assert.Equal(t, "GENERATION", body.Kind)
	})

	t.Run("unclassified errors are masked", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/panic-free", nil))
		require.NoError(t, err)
		assert.Equal(t, 500, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.NotContains(t, string(raw), "secret detail")
	})

	t.Run("success passes through", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/ok", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Message string `json:"message" validate:"required,max=5"`
	}

	assert.NoError(t, ValidateRequest(req{Message: "hi"}))

	err := ValidateRequest(req{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Contains(t, err.Error(), "message is required")

	err = ValidateRequest(req{Message: "too long"})
	assert.Contains(t, err.Error(), "at most 5")
}
