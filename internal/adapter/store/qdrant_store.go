package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"mcp-gateway/internal/domain/entity"
	"mcp-gateway/internal/domain/repository"
	"mcp-gateway/internal/logging"
)

// QdrantStore keeps past interactions as vectors. It serves both as an
// interaction sink and as a context provider that returns the closest
// previous exchanges for a query.
type QdrantStore struct {
	client         *qdrant.Client
	embedder       repository.Embedder
	collectionName string
	maxAge         time.Duration
	scoreThreshold float32
}

func NewQdrantStore(client *qdrant.Client, embedder repository.Embedder, collectionName string) *QdrantStore {
	return &QdrantStore{
		client:         client,
		embedder:       embedder,
		collectionName: collectionName,
		maxAge:         30 * 24 * time.Hour,
		scoreThreshold: 0.5,
	}
}

func (s *QdrantStore) InitCollection(ctx context.Context, dim uint64) error {
	_, err := s.client.GetCollectionInfo(ctx, s.collectionName)
	if err != nil {
		st, ok := status.FromError(err)
		if !ok || st.Code() != codes.NotFound {
			return goerr.Wrap(err, "failed to get collection info", goerr.V("collection", s.collectionName))
		}

		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return goerr.Wrap(err, "failed to create collection", goerr.V("collection", s.collectionName))
		}
	}

	// Indexes for the freshness range filter and per-user lookups.
	if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collectionName,
		FieldName:      "created_at",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
		Wait:           qdrant.PtrOf(true),
	}); err != nil {
		logging.From(ctx).Warn("could not create created_at index (might already exist)", "error", err)
	}
	if _, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collectionName,
		FieldName:      "user_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	}); err != nil {
		logging.From(ctx).Warn("could not create user_id index (might already exist)", "error", err)
	}

	return nil
}

// FetchContext returns up to maxResults earlier exchanges similar to query as
// {"results": [{"prompt", "content", "score"}, ...]}.
func (s *QdrantStore) FetchContext(ctx context.Context, query string, maxResults int) (entity.Context, error) {
	vector, err := s.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "embedding generation failed")
	}

	oldest := time.Now().Add(-s.maxAge).Unix()
	threshold := s.scoreThreshold
	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				{
					ConditionOneOf: &qdrant.Condition_Field{
						Field: &qdrant.FieldCondition{
							Key:   "created_at",
							Range: &qdrant.Range{Gte: qdrant.PtrOf(float64(oldest))},
						},
					},
				},
			},
		},
		Limit:          qdrant.PtrOf(uint64(maxResults)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: &threshold,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "qdrant query failed", goerr.V("collection", s.collectionName))
	}

	results := make([]any, 0, len(res))
	for _, hit := range res {
		results = append(results, map[string]any{
			"prompt":  hit.Payload["prompt"].GetStringValue(),
			"content": hit.Payload["content"].GetStringValue(),
			"score":   hit.Score,
		})
	}

	return entity.Context{"results": results}, nil
}

func (s *QdrantStore) SaveInteraction(ctx context.Context, interaction *entity.Interaction) error {
	vector, err := s.embedder.CreateEmbedding(ctx, interaction.Message)
	if err != nil {
		return goerr.Wrap(err, "embedding generation failed", goerr.V("id", interaction.ID))
	}

	id := interaction.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	payload := map[string]any{
		"prompt":         interaction.Message,
		"content":        interaction.Response,
		"user_id":        interaction.UserID,
		"interaction_id": interaction.ID,
		"created_at":     interaction.Timestamp.Unix(),
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		return goerr.Wrap(err, "qdrant upsert failed", goerr.V("id", interaction.ID))
	}
	return nil
}

// Close is a no-op: the qdrant client is shared and owned by the caller.
func (s *QdrantStore) Close() error {
	return nil
}
