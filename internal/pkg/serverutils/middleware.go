package serverutils

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIdMiddleware tags every request with an id for log correlation.
func RequestIdMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestId := c.Get("X-Request-Id")
		if requestId == "" {
			requestId = uuid.New().String()
		}
		c.Locals("request_id", requestId)
		c.Set("X-Request-Id", requestId)
		return c.Next()
	}
}

// ErrorHandlerMiddleware converts unhandled errors into the response
// envelope. Unexpected errors become a generic 500; internals never leak
// to the client.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		log.Printf("[ERROR] unhandled error on %s %s (request_id=%v): %v", c.Method(), c.Path(), c.Locals("request_id"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
	}
}
