package controller

import (
	"manual-chatbot-be/internal/dto"
	"manual-chatbot-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

// HealthSource reports live counters for the health endpoint.
type HealthSource func() dto.HealthResponse

type HealthController struct {
	source HealthSource
}

func NewHealthController(source HealthSource) *HealthController {
	return &HealthController{source: source}
}

func (c *HealthController) RegisterRoutes(r fiber.Router) {
	r.Get("health", c.Health)
}

func (c *HealthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("API operational", c.source()))
}
