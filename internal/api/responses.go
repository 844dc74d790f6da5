package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIResponse is the envelope of every JSON response except health.
type APIResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

func (h *Handler) success(c *fiber.Ctx, data interface{}, message string) error {
	h.logger.Info("API success", zap.String("path", c.Path()), zap.Int("status", fiber.StatusOK))
	return c.Status(fiber.StatusOK).JSON(APIResponse{Status: "success", Data: data, Message: message})
}

// fail sends an error envelope. data may carry partial results such as
// parser debug lines.
func (h *Handler) fail(c *fiber.Ctx, code int, message string, data interface{}, errs ...string) error {
	h.logger.Error("API error",
		zap.String("path", c.Path()),
		zap.Int("status", code),
		zap.String("message", message),
		zap.Strings("errors", errs),
	)
	return c.Status(code).JSON(APIResponse{Status: "error", Data: data, Message: message, Errors: errs})
}
