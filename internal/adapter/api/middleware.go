package api

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/domain/repository"
	"mcp-gateway/internal/logging"
	"mcp-gateway/internal/usecase"
)

const (
	HeaderAuth    = "X-MCP-Auth"
	HeaderVersion = "X-MCP-Version"

	requestIDLocal = "requestid"
)

// RequestContext attaches the request ID and a request-scoped logger to the
// user context seen by the usecases.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _ := c.Locals(requestIDLocal).(string)

		ctx := c.UserContext()
		logger := logging.From(ctx).With("request_id", id, "path", c.Path())
		ctx = logging.With(ctx, logger)
		ctx = usecase.WithRequestID(ctx, id)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// VersionGate rejects requests whose X-MCP-Version header names an
// unsupported protocol version. A missing header passes.
func VersionGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := usecase.CheckProtocolVersion(c.Get(HeaderVersion)); err != nil {
			return err
		}
		return c.Next()
	}
}

// RateLimit admits the request against the caller's sliding window. The
// caller is identified by X-MCP-Auth, falling back to the remote address.
func RateLimit(limiter repository.RateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID := ClientID(c)
		decision := limiter.Admit(clientID)
		if !decision.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
			logging.From(c.UserContext()).Warn("rate limit exceeded",
				"client_id", clientID,
				"retry_after", decision.RetryAfter,
			)
			return entity.NewRateLimitError(decision)
		}
		return c.Next()
	}
}

// RequireAuth only checks that X-MCP-Auth is present.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.TrimSpace(c.Get(HeaderAuth)) == "" {
			return entity.NewAuthRequiredError()
		}
		return c.Next()
	}
}

func ClientID(c *fiber.Ctx) string {
	if auth := strings.TrimSpace(c.Get(HeaderAuth)); auth != "" {
		return auth
	}
	return c.IP()
}
