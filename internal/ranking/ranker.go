package ranking

import (
	"fmt"
	"sort"

	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/vector"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

// Ranker реализует эталонную семантику поиска ближайших соседей:
// полный косинус по всему каталогу, детерминированная сортировка, порог и лимит.
// Любой ускоренный индекс (Qdrant) обязан воспроизводить именно этот порядок.
type Ranker struct{}

func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank оценивает запрос против каждого элемента каталога и возвращает
// упорядоченную выдачу. Правила:
//   - расхождение размерности любого элемента каталога с запросом — ошибка
//     целостности каталога e.ErrDimensionMismatch для всей операции;
//   - элементы с score < minSimilarity отбрасываются;
//   - сортировка по score по убыванию, при равенстве — по ID по возрастанию;
//   - выдача усекается до limit, ранги присваиваются с единицы.
//
// Пустой каталог и пустая выдача — не ошибка.
func (r *Ranker) Rank(query []float32, items []domain.Product, limit int, minSimilarity float64) ([]domain.ScoredCandidate, error) {
	if limit < 1 {
		limit = 1
	}

	scored := make([]domain.ScoredCandidate, 0, len(items))
	for _, item := range items {
		score, err := vector.Cosine(query, item.Embedding)
		if err != nil {
			// Системная ошибка наполнения каталога, а не повод пропустить элемент
			return nil, e.Wrap(fmt.Sprintf("catalog item %s", item.ID), err)
		}

		if score < minSimilarity {
			continue
		}

		scored = append(scored, domain.ScoredCandidate{ProductID: item.ID, Similarity: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].ProductID < scored[j].ProductID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	for i := range scored {
		scored[i].Rank = i + 1
	}

	return scored, nil
}
