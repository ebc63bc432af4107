package controller

import (
	"course-assistant-be/internal/dto"
	"course-assistant-be/internal/pkg/serverutils"
	"course-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAssistantController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	CourseStats(ctx *fiber.Ctx) error
	CreateSession(ctx *fiber.Ctx) error
	ClearSession(ctx *fiber.Ctx) error
}

type assistantController struct {
	assistantService service.IAssistantService
}

func NewAssistantController(assistantService service.IAssistantService) IAssistantController {
	return &assistantController{
		assistantService: assistantService,
	}
}

func (c *assistantController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assistant/v1")
	h.Post("query", c.Query)
	h.Get("courses", c.CourseStats)
	h.Post("session", c.CreateSession)
	h.Delete("session/:id", c.ClearSession)
}

func (c *assistantController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistantService.Query(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer query", res))
}

func (c *assistantController) CourseStats(ctx *fiber.Ctx) error {
	res, err := c.assistantService.GetCourseAnalytics(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get course stats", res))
}

func (c *assistantController) CreateSession(ctx *fiber.Ctx) error {
	res := c.assistantService.CreateSession()
	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *assistantController) ClearSession(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")
	if sessionId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session id is required")
	}

	c.assistantService.ClearSession(sessionId)
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear session", nil))
}
