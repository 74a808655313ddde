package controller

import (
	"manual-chatbot-be/internal/dto"
	"manual-chatbot-be/internal/pkg/serverutils"
	"manual-chatbot-be/internal/service"
	"manual-chatbot-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	Process(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ISessionService
	hub     *websocket.Hub
}

func NewSessionController(service service.ISessionService, hub *websocket.Hub) ISessionController {
	return &sessionController{service: service, hub: hub}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session")
	h.Post("create", c.Create)
	h.Get("", c.List)
	h.Get(":id/status", c.Status)
	h.Delete(":id", c.Delete)
	h.Post(":id/upload", c.Upload)
	h.Post(":id/process", c.Process)
	if c.hub != nil {
		h.Get(":id/ws", websocket.Handler(c.hub)...)
	}
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	// An empty body creates a session with the default label.
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *sessionController) List(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list sessions", res))
}

func (c *sessionController) Status(ctx *fiber.Ctx) error {
	res, err := c.service.Status(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session status", res))
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

func (c *sessionController) Upload(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "file is required"))
	}

	src, err := file.Open()
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "file could not be read"))
	}
	defer src.Close()

	res, err := c.service.Upload(ctx.UserContext(), ctx.Params("id"), file.Filename, file.Size, src)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("File uploaded", res))
}

// Process answers 202 as soon as the run is queued; progress is read through
// the status endpoint or the websocket.
func (c *sessionController) Process(ctx *fiber.Ctx) error {
	res, _, err := c.service.Process(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Processing started", res))
}
