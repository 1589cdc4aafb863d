package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/sahithi-mandalapu/feedback-market/internal/config"
)

// Qdrant is a remote index reached over Qdrant's gRPC API. The collection is
// created on first use with cosine distance.
type Qdrant struct {
	client     *qdrant.Client
	embed      EmbedFunc
	collection string
	vectorSize int
	logger     *slog.Logger

	mu    sync.Mutex
	ready bool
}

// NewQdrant creates a client for the configured collection.
func NewQdrant(cfg config.QdrantConfig, embed EmbedFunc, logger *slog.Logger) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &Qdrant{
		client:     client,
		embed:      embed,
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
		logger:     logger.With("index", "qdrant", "collection", cfg.Collection),
	}, nil
}

func (q *Qdrant) FindSimilar(ctx context.Context, text string, limit int) ([]Hit, error) {
	if text == "" || limit <= 0 {
		return []Hit{}, nil
	}
	if err := q.ensure(ctx); err != nil {
		return nil, err
	}

	vector, err := q.embed(ctx, text)
	if err != nil {
		return nil, unavailable("embed", err)
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
	})
	if err != nil {
		return nil, unavailable("query", err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		id, err := uuid.Parse(p.GetId().GetUuid())
		if err != nil {
			q.logger.Warn("skipping point with non-uuid id", "id", p.GetId())
			continue
		}
		hits = append(hits, Hit{ClaimID: id, Score: float64(p.GetScore())})
	}
	return hits, nil
}

func (q *Qdrant) Upsert(ctx context.Context, id uuid.UUID, text string) error {
	if err := q.ensure(ctx); err != nil {
		return err
	}

	vector, err := q.embed(ctx, text)
	if err != nil {
		return unavailable("embed", err)
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(id.String()),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{"text": text}),
			},
		},
	})
	if err != nil {
		return unavailable("upsert", err)
	}

	q.logger.Debug("claim indexed", "id", id)
	return nil
}

// missingBatch bounds the ids sent in one GetPoints request.
const missingBatch = 256

func (q *Qdrant) Missing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if err := q.ensure(ctx); err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(ids))
	for batch := range slices.Chunk(ids, missingBatch) {
		pointIDs := make([]*qdrant.PointId, len(batch))
		for i, id := range batch {
			pointIDs[i] = qdrant.NewIDUUID(id.String())
		}

		points, err := q.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: q.collection,
			Ids:            pointIDs,
		})
		if err != nil {
			return nil, unavailable("get points", err)
		}
		for _, p := range points {
			present[p.GetId().GetUuid()] = true
		}
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if !present[id.String()] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (q *Qdrant) Count(ctx context.Context) (int, error) {
	if err := q.ensure(ctx); err != nil {
		return 0, err
	}

	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, unavailable("count", err)
	}
	return int(n), nil
}

func (q *Qdrant) Close() error {
	return q.client.Close()
}

func (q *Qdrant) ensure(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ready {
		return nil
	}

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return unavailable("collection exists", err)
	}

	if !exists {
		err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(q.vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return unavailable("create collection", err)
		}
		q.logger.Info("collection created", "vector_size", q.vectorSize)
	}

	q.ready = true
	return nil
}
