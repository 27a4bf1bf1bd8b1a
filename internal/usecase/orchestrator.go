package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/logging"
)

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Orchestrator runs the request pipeline: protocol check, context fetch,
// generation and, when a user is known, background persistence.
type Orchestrator struct {
	fetcher         *ContextFetcher
	generator       *Generator
	recorder        Recorder
	modelName       string
	contextProvider string
}

// NewOrchestrator wires the pipeline. recorder may be nil to disable
// persistence.
func NewOrchestrator(fetcher *ContextFetcher, generator *Generator, recorder Recorder, modelName, contextProvider string) *Orchestrator {
	return &Orchestrator{
		fetcher:         fetcher,
		generator:       generator,
		recorder:        recorder,
		modelName:       modelName,
		contextProvider: contextProvider,
	}
}

// Process handles one request. Every error it returns is a *entity.GatewayError.
func (u *Orchestrator) Process(ctx context.Context, req entity.Request) (resp *entity.Response, err error) {
	start := time.Now()
	logger := logging.From(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic while processing request", "panic", fmt.Sprint(rec))
			resp, err = nil, entity.NewProcessingError(goerr.New("internal error", goerr.V("panic", fmt.Sprint(rec))))
		}
	}()

	req.Normalize()
	if err := CheckProtocolVersion(req.ProtocolVersion); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, entity.NewInvalidRequestError("query must not be empty")
	}

	fetched, text, err := u.run(ctx, req.Query)
	if err != nil {
		logger.Error("request failed", "error", err, "code", entity.CodeOf(err))
		return nil, asGatewayError(err, entity.NewProcessingError)
	}

	if req.UserID != "" && u.recorder != nil {
		u.recorder.Record(ctx, req.UserID, req.Query, text, fetched)
	}

	metadata := u.metadata(ctx)
	metadata["priority"] = string(req.Priority)
	if req.Metadata != nil {
		metadata["client_metadata"] = req.Metadata
	}

	elapsed := time.Since(start)
	logger.Info("request processed", "elapsed", elapsed, "priority", req.Priority, "persisted", req.UserID != "")

	return &entity.Response{
		Response:        text,
		Context:         fetched,
		Metadata:        metadata,
		ProtocolVersion: req.ProtocolVersion,
		ProcessingTime:  elapsed.Seconds(),
	}, nil
}

type pendingInteraction struct {
	query   string
	text    string
	fetched entity.Context
}

// ProcessBatch handles the queries in order. The first failure aborts the
// whole batch with a single BATCH_PROCESSING_ERROR: no partial results are
// returned and nothing is persisted.
func (u *Orchestrator) ProcessBatch(ctx context.Context, req entity.BatchRequest) (resp *entity.BatchResponse, err error) {
	start := time.Now()
	logger := logging.From(ctx)
	current := -1

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic while processing batch", "panic", fmt.Sprint(rec), "index", current)
			resp, err = nil, entity.NewBatchProcessingError(goerr.New("internal error", goerr.V("panic", fmt.Sprint(rec))), current)
		}
	}()

	req.Normalize()
	if err := CheckProtocolVersion(req.ProtocolVersion); err != nil {
		return nil, err
	}
	if len(req.Queries) == 0 {
		return nil, entity.NewInvalidRequestError("queries must not be empty")
	}

	responses := make([]*entity.Response, 0, len(req.Queries))
	pending := make([]pendingInteraction, 0, len(req.Queries))

	for i, query := range req.Queries {
		current = i
		itemStart := time.Now()

		if err := ctx.Err(); err != nil {
			return nil, entity.NewBatchProcessingError(goerr.Wrap(err, "batch cancelled"), i)
		}
		if strings.TrimSpace(query) == "" {
			return nil, entity.NewBatchProcessingError(entity.NewInvalidRequestError("query must not be empty"), i)
		}

		fetched, text, err := u.run(ctx, query)
		if err != nil {
			logger.Error("batch item failed", "error", err, "index", i, "total", len(req.Queries))
			return nil, entity.NewBatchProcessingError(err, i)
		}

		responses = append(responses, &entity.Response{
			Response:        text,
			Context:         fetched,
			Metadata:        u.metadata(ctx),
			ProtocolVersion: req.ProtocolVersion,
			ProcessingTime:  time.Since(itemStart).Seconds(),
		})
		pending = append(pending, pendingInteraction{query: query, text: text, fetched: fetched})
	}

	if req.UserID != "" && u.recorder != nil {
		for _, p := range pending {
			u.recorder.Record(ctx, req.UserID, p.query, p.text, p.fetched)
		}
	}

	elapsed := time.Since(start)
	logger.Info("batch processed", "queries", len(req.Queries), "elapsed", elapsed)

	batchMetadata := map[string]any{
		"total_queries":   len(req.Queries),
		"processed_at":    entity.Timestamp(time.Now()),
		"processing_time": elapsed.Seconds(),
	}
	if req.Metadata != nil {
		batchMetadata["client_metadata"] = req.Metadata
	}

	return &entity.BatchResponse{
		Responses:       responses,
		BatchMetadata:   batchMetadata,
		ProtocolVersion: req.ProtocolVersion,
	}, nil
}

// run is the shared fetch-then-generate step. Generation never starts when
// the context fetch fails.
func (u *Orchestrator) run(ctx context.Context, query string) (entity.Context, string, error) {
	fetched, err := u.fetcher.Fetch(ctx, query)
	if err != nil {
		return nil, "", err
	}

	text, err := u.generator.Generate(ctx, query, fetched)
	if err != nil {
		return nil, "", err
	}
	return fetched, text, nil
}

func (u *Orchestrator) metadata(ctx context.Context) map[string]any {
	metadata := map[string]any{
		"processed_at":     entity.Timestamp(time.Now()),
		"model":            u.modelName,
		"context_provider": u.contextProvider,
	}
	if id := RequestID(ctx); id != "" {
		metadata["request_id"] = id
	}
	return metadata
}

func asGatewayError(err error, fallback func(error) *entity.GatewayError) error {
	if gwErr, ok := entity.AsGatewayError(err); ok {
		return gwErr
	}
	return fallback(err)
}
