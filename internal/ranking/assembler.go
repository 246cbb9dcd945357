package ranking

import (
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

// Assemble присоединяет к ранжированным кандидатам полные атрибуты товаров.
// Кандидат без товара в снимке каталога — всегда баг (ранжирование и сборка
// обязаны видеть один и тот же снимок), поэтому операция падает с e.ErrIntegrity.
func Assemble(candidates []domain.ScoredCandidate, byID map[string]domain.Product) ([]domain.ResultRecord, error) {
	records := make([]domain.ResultRecord, 0, len(candidates))
	for _, cand := range candidates {
		item, ok := byID[cand.ProductID]
		if !ok {
			return nil, e.Wrap(cand.ProductID, e.ErrIntegrity)
		}

		records = append(records, domain.ResultRecord{
			Product:    item,
			Similarity: cand.Similarity,
			Rank:       cand.Rank,
		})
	}

	return records, nil
}

// SnapshotIndex строит отображение ID→товар по снимку каталога,
// чтобы ранжирование и сборка наблюдали одно и то же состояние.
func SnapshotIndex(items []domain.Product) map[string]domain.Product {
	byID := make(map[string]domain.Product, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID
}
