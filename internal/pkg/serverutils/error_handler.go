package serverutils

import (
	"errors"

	"manual-chatbot-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}

	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindValidation, apperror.KindNoInput:
		return fiber.StatusBadRequest
	case apperror.KindExtraction:
		return fiber.StatusUnprocessableEntity
	case apperror.KindConflict:
		return fiber.StatusConflict
	case apperror.KindGeneration:
		if apperror.IsRetryable(err) {
			return fiber.StatusGatewayTimeout
		}
		return fiber.StatusBadGateway
	case apperror.KindIndex:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// WriteError renders err as the standard error body.
func WriteError(ctx *fiber.Ctx, err error) error {
	code := StatusFor(err)
	body := ErrorResponse(code, err.Error())
	body.Kind = string(apperror.KindOf(err))
	body.Retryable = apperror.IsRetryable(err)
	if code == fiber.StatusInternalServerError && body.Kind == "" {
		body.Error = "internal server error"
	}
	return ctx.Status(code).JSON(body)
}

// ErrorHandlerMiddleware turns errors returned by downstream handlers into JSON.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}
