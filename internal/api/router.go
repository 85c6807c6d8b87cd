package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"loan-approval/internal/common/config"
	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/common/logger"
)

func NewApp(cfg config.ServerConfig, h *Handler, log logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Loan Approval API",
		ReadTimeout:           time.Duration(cfg.ReadTimeout) * time.Millisecond,
		WriteTimeout:          time.Duration(cfg.WriteTimeout) * time.Millisecond,
		ErrorHandler:          ErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestLogger(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + ApplicationIDHeader,
	}))

	h.Register(app)
	return app
}

func requestLogger(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("http request", map[string]interface{}{
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   c.Response().StatusCode(),
			"duration": time.Since(start).String(),
		})
		return err
	}
}

// ErrorHandler renders StandardErrors as {code, message, details} with the
// status their code maps to.
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if fe, ok := err.(*fiber.Error); ok {
			return c.Status(fe.Code).JSON(fiber.Map{
				"code":    "HTTP_ERROR",
				"message": fe.Message,
			})
		}

		stdErr := apperrors.Normalize(err)
		status := apperrors.HTTPStatus(stdErr.Code)
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed", map[string]interface{}{
				"path":  c.Path(),
				"code":  stdErr.Code,
				"error": err,
			})
		}

		body := fiber.Map{
			"code":    stdErr.Code,
			"message": stdErr.Message,
		}
		if stdErr.Details != "" {
			body["details"] = stdErr.Details
		}
		if len(stdErr.Metadata) > 0 {
			body["metadata"] = stdErr.Metadata
		}
		return c.Status(status).JSON(body)
	}
}
