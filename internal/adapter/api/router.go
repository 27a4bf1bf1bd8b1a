package api

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/domain/repository"
	"mcp-gateway/internal/logging"
)

// NewApp creates the Fiber app with the envelope error handler installed.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})
}

// SetupRouter registers middleware and routes. accessLog receives the HTTP
// access log; nil disables it.
func SetupRouter(app *fiber.App, handler *Handler, limiter repository.RateLimiter, prefix string, accessLog io.Writer) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{ContextKey: requestIDLocal}))
	if accessLog != nil {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
			Output: accessLog,
		}))
	}
	app.Use(cors.New())
	app.Use(RequestContext())

	app.Get("/", handler.Root)

	// Edge checks only apply under the API prefix: version header first,
	// then the rate limit.
	mcp := app.Group(prefix, VersionGate(), RateLimit(limiter))

	mcp.Get("/version", handler.Version)
	mcp.Get("/capabilities", handler.Capabilities)
	mcp.Get("/health", handler.Health)
	mcp.Post("/process", RequireAuth(), handler.Process)
	mcp.Post("/batch", RequireAuth(), handler.Batch)
}

// ErrorHandler renders every error as an error envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if gwErr, ok := entity.AsGatewayError(err); ok {
		return c.Status(StatusOf(gwErr.Code)).JSON(gwErr.Envelope())
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		var gwErr *entity.GatewayError
		switch {
		case fiberErr.Code == fiber.StatusNotFound:
			gwErr = entity.NewGatewayError(entity.CodeNotFound, fiberErr.Message, err)
		case fiberErr.Code >= 400 && fiberErr.Code < 500:
			gwErr = entity.NewInvalidRequestError(fiberErr.Message)
		default:
			gwErr = entity.NewProcessingError(err)
		}
		return c.Status(fiberErr.Code).JSON(gwErr.Envelope())
	}

	logging.From(c.UserContext()).Error("unhandled error", "error", err, "path", c.Path())
	return c.Status(fiber.StatusInternalServerError).JSON(entity.NewProcessingError(err).Envelope())
}

// StatusOf maps an error code to its HTTP status.
func StatusOf(code entity.ErrorCode) int {
	switch code {
	case entity.CodeRateLimitExceeded:
		return fiber.StatusTooManyRequests
	case entity.CodeUnsupportedProtocolVersion, entity.CodeInvalidRequest:
		return fiber.StatusBadRequest
	case entity.CodeAuthRequired:
		return fiber.StatusUnauthorized
	case entity.CodeNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
