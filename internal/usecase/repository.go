package usecase

import (
	"context"
	"io"

	"github.com/DRSN-tech/similarity-backend/internal/domain"
)

type ProductRepository interface {
	Upsert(ctx context.Context, product *domain.Product) error
	GetAll(ctx context.Context) ([]domain.Product, error)
	DeleteAll(ctx context.Context) error
}

// EmbeddingIndexRepository — внешний ускоряющий индекс (Qdrant).
// Его выдача обязана приближать эталонную семантику ранжирования.
type EmbeddingIndexRepository interface {
	Upsert(ctx context.Context, products []domain.Product) error
	Search(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]domain.ScoredCandidate, error)
	Clear(ctx context.Context) error
}

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

type CacheRepository interface {
	GetProduct(ctx context.Context, id string) (*ProductInfo, error)
	SetProduct(ctx context.Context, info *ProductInfo) error
	DeleteProducts(ctx context.Context, ids []string) error
	InvalidateAll(ctx context.Context) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
}
