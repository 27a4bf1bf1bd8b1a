package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"
	"mcp-gateway/internal/adapter/client"
	"mcp-gateway/internal/adapter/store"
	"mcp-gateway/internal/config"
	"mcp-gateway/internal/domain/repository"
	"mcp-gateway/internal/usecase"
)

const (
	redisStreamMaxLen = 100_000
	saveTimeout       = 10 * time.Second
)

// deps holds the backends built from config. closers run in reverse order on
// shutdown.
type deps struct {
	genai       *genai.Client
	embedder    repository.Embedder
	qdrant      *qdrant.Client
	qdrantStore *store.QdrantStore

	contextProvider repository.ContextProvider
	generator       repository.AIProvider
	recorder        *usecase.InteractionRecorder

	closers []func() error
}

func buildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*deps, error) {
	d := &deps{}

	if cfg.UsesGenAI() {
		c, err := genai.NewClient(ctx, &genai.ClientConfig{
			Project:  cfg.GoogleCloudProject,
			Location: cfg.GoogleCloudLocation,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to init genai client")
		}
		d.genai = c
		d.embedder = client.NewEmbedderFromClient(c, cfg.EmbeddingModel, int32(cfg.EmbeddingDim))
	}

	if cfg.UsesQdrant() {
		q, err := qdrant.NewClient(&qdrant.Config{
			Host: cfg.QdrantHost,
			Port: int(cfg.QdrantPort),
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to connect to qdrant", goerr.V("host", cfg.QdrantHost))
		}
		d.qdrant = q
		d.closers = append(d.closers, q.Close)

		d.qdrantStore = store.NewQdrantStore(q, d.embedder, cfg.QdrantCollection)
		if err := d.qdrantStore.InitCollection(ctx, uint64(cfg.EmbeddingDim)); err != nil {
			d.close(logger)
			return nil, goerr.Wrap(err, "failed to init qdrant collection")
		}
	}

	switch cfg.ContextBackend {
	case config.ContextBackendQdrant:
		d.contextProvider = d.qdrantStore
	default:
		d.contextProvider = client.NewHTTPContextProvider(cfg.ContextAPIURL, cfg.ContextAPIKey)
	}

	switch cfg.GeneratorBackend {
	case config.GeneratorBackendGemini:
		primary := client.NewGeminiClientFromClient(d.genai, cfg.GeminiModel)
		var fallback repository.AIProvider
		if cfg.GeminiFallbackModel != "" && cfg.GeminiFallbackModel != cfg.GeminiModel {
			fallback = client.NewGeminiClientFromClient(d.genai, cfg.GeminiFallbackModel)
		}
		d.generator = usecase.NewResilientProvider(primary, fallback, usecase.WithTimeout(cfg.GenerationTimeout))
	default:
		d.generator = client.NewEchoGenerator()
	}

	stores, err := d.buildStores(ctx, cfg)
	if err != nil {
		d.close(logger)
		return nil, err
	}
	if len(stores) > 0 {
		multi := store.NewMultiStore(stores...)
		d.closers = append(d.closers, multi.Close)
		d.recorder = usecase.NewInteractionRecorder(multi, int(cfg.RecorderWorkers), int(cfg.RecorderQueueSize), saveTimeout)
		logger.Info("interaction persistence enabled", "stores", multi.Len(), "workers", cfg.RecorderWorkers)
	}

	return d, nil
}

func (d *deps) buildStores(ctx context.Context, cfg *config.Config) ([]repository.InteractionStore, error) {
	var stores []repository.InteractionStore

	for _, name := range cfg.Stores() {
		switch name {
		case config.StoreSQLite:
			s, err := store.OpenSQLite(ctx, cfg.SQLitePath)
			if err != nil {
				closeAll(stores)
				return nil, err
			}
			stores = append(stores, s)

		case config.StoreRedis:
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			if err := rdb.Ping(ctx).Err(); err != nil {
				_ = rdb.Close()
				closeAll(stores)
				return nil, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", cfg.RedisAddr))
			}
			stores = append(stores, store.NewRedisStreamStore(rdb, cfg.RedisStream, redisStreamMaxLen))

		case config.StoreQdrant:
			stores = append(stores, d.qdrantStore)
		}
	}
	return stores, nil
}

// warmUp sends one embedding and one generation call so the first real
// request does not pay the cold start.
func (d *deps) warmUp(ctx context.Context, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if d.embedder != nil {
		if _, err := d.embedder.CreateEmbedding(ctx, "warmup"); err != nil {
			logger.Warn("embedder warm-up failed", "error", err)
		}
	}
	if _, err := d.generator.Generate(ctx, ".", nil); err != nil {
		logger.Warn("generator warm-up failed", "error", err)
	}
	logger.Info("pre-warm complete")
}

func (d *deps) close(logger *slog.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.Error("failed to close backend", "error", err)
		}
	}
	d.closers = nil
}

func closeAll(stores []repository.InteractionStore) {
	for _, s := range stores {
		_ = s.Close()
	}
}
