package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/domain/repository"
	"mcp-gateway/internal/usecase"
)

// ServerInfo is what the discovery endpoints advertise.
type ServerInfo struct {
	Name            string
	Version         string
	Description     string
	ModelName       string
	ModelVersion    string
	ContextProvider string
}

type Handler struct {
	orchestrator *usecase.Orchestrator
	limiter      repository.RateLimiter
	recorder     *usecase.InteractionRecorder // nil when persistence is disabled
	validator    *Validator
	info         ServerInfo
}

func NewHandler(orch *usecase.Orchestrator, limiter repository.RateLimiter, recorder *usecase.InteractionRecorder, validator *Validator, info ServerInfo) *Handler {
	return &Handler{
		orchestrator: orch,
		limiter:      limiter,
		recorder:     recorder,
		validator:    validator,
		info:         info,
	}
}

func (h *Handler) Root(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":     h.info.Name,
		"version":     h.info.Version,
		"description": h.info.Description,
		"status":      "active",
	})
}

func (h *Handler) Version(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"version":            entity.CurrentProtocolVersion,
		"supported_versions": entity.SupportedProtocolVersions(),
		"server_version":     h.info.Version,
		"deprecation_notice": nil,
	})
}

func (h *Handler) Capabilities(c *fiber.Ctx) error {
	stats := h.limiter.Stats()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"server": fiber.Map{
			"name":        h.info.Name,
			"version":     h.info.Version,
			"description": h.info.Description,
		},
		"models": fiber.Map{
			h.info.ModelName: fiber.Map{
				"version":             h.info.ModelVersion,
				"capabilities":        []string{"text-generation", "context-aware"},
				"max_tokens":          2048,
				"supported_languages": []string{"en", "es", "fr", "de"},
			},
		},
		"context_providers": fiber.Map{
			h.info.ContextProvider: fiber.Map{
				"version":          "1.0",
				"capabilities":     []string{"context-fetching", "real-time-updates"},
				"max_context_size": 1000,
			},
		},
		"features": []string{
			"context-aware-responses",
			"user-tracking",
			"response-storage",
			"batch-processing",
			"priority-queuing",
		},
		"rate_limits": fiber.Map{
			"requests_per_period": stats.Limit,
			"period_seconds":      int(stats.Period / time.Second),
		},
	})
}

func (h *Handler) Health(c *fiber.Ctx) error {
	stats := h.limiter.Stats()

	usage := 0.0
	if stats.Limit > 0 {
		usage = float64(h.limiter.Usage(ClientID(c))) / float64(stats.Limit) * 100
	}

	database := "disabled"
	if h.recorder != nil {
		database = "connected"
	}

	body := fiber.Map{
		"status":    "healthy",
		"timestamp": entity.Timestamp(time.Now()),
		"services": fiber.Map{
			serviceKey(h.info.ContextProvider): "connected",
			serviceKey(h.info.ModelName):       "connected",
			"database":                         database,
		},
		"mcp_version": entity.CurrentProtocolVersion,
		"rate_limits": fiber.Map{
			"current_usage":       fmt.Sprintf("%.0f%%", usage),
			"requests_per_period": stats.Limit,
			"period_seconds":      int(stats.Period / time.Second),
			"tracked_clients":     stats.Clients,
		},
	}
	if h.recorder != nil {
		body["persistence"] = h.recorder.Stats()
	}

	return c.Status(fiber.StatusOK).JSON(body)
}

func (h *Handler) Process(c *fiber.Ctx) error {
	if err := h.validator.ValidateRequest(c.Body()); err != nil {
		return err
	}

	var req entity.Request
	if err := c.BodyParser(&req); err != nil {
		return entity.NewInvalidRequestError("invalid request body: " + err.Error())
	}

	resp, err := h.orchestrator.Process(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *Handler) Batch(c *fiber.Ctx) error {
	if err := h.validator.ValidateBatch(c.Body()); err != nil {
		return err
	}

	var req entity.BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return entity.NewInvalidRequestError("invalid request body: " + err.Error())
	}

	resp, err := h.orchestrator.ProcessBatch(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// serviceKey turns "glama-ai" into "glama_ai".
func serviceKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
