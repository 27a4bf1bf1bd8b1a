package store

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"mcp-gateway/internal/domain/entity"
)

// RedisStreamStore appends interactions to a Redis stream so downstream
// consumers can process them at their own pace.
type RedisStreamStore struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamStore writes to stream, trimming it to roughly maxLen entries
// when maxLen is positive.
func NewRedisStreamStore(client *redis.Client, stream string, maxLen int64) *RedisStreamStore {
	return &RedisStreamStore{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

func (r *RedisStreamStore) SaveInteraction(ctx context.Context, interaction *entity.Interaction) error {
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"id":        interaction.ID,
			"user_id":   interaction.UserID,
			"message":   interaction.Message,
			"response":  interaction.Response,
			"context":   interaction.Context,
			"timestamp": entity.Timestamp(interaction.Timestamp),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return goerr.Wrap(err, "failed to append interaction to stream",
			goerr.V("stream", r.stream), goerr.V("id", interaction.ID))
	}
	return nil
}

func (r *RedisStreamStore) Close() error {
	return r.client.Close()
}
