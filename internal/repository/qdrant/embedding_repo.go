package qdrant

import (
	"context"

	"github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// EmbeddingRepo — ускоряющий индекс эмбеддингов поверх Qdrant.
// Идентификатор точки детерминированно выводится из ID товара (UUIDv5),
// поэтому повторный Upsert одного товара перезаписывает его точку.
type EmbeddingRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
}

func NewEmbeddingRepo(client *qdrant.Client, cfg *cfg.QdrantCfg) *EmbeddingRepo {
	return &EmbeddingRepo{
		client: client,
		cfg:    cfg,
	}
}

// Upsert сохраняет или обновляет векторы товаров в коллекции Qdrant.
func (q *EmbeddingRepo) Upsert(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(products))
	for i := range products {
		product := &products[i]
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(product.ID)),
			Vectors: qdrant.NewVectors(product.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"product_id": product.ID,
				"image_key":  product.ImageKey,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.CollectionName,
		Points:         points,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Search возвращает ближайшие к запросу товары по косинусной близости.
func (q *EmbeddingRepo) Search(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]domain.ScoredCandidate, error) {
	threshold := float32(minSimilarity)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.CollectionName,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	candidates := make([]domain.ScoredCandidate, 0, len(scored))
	for _, point := range scored {
		productID := point.Payload["product_id"].GetStringValue()
		if productID == "" {
			continue
		}

		candidates = append(candidates, domain.ScoredCandidate{
			ProductID:  productID,
			Similarity: float64(point.Score),
		})
	}

	return candidates, nil
}

// Clear удаляет и заново создаёт коллекцию.
func (q *EmbeddingRepo) Clear(ctx context.Context) error {
	if err := q.client.DeleteCollection(ctx, q.cfg.CollectionName); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// pointID детерминированно отображает ID товара в UUID точки Qdrant.
func pointID(productID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(productID)).String()
}
