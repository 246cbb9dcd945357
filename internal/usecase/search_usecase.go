package usecase

import (
	"context"
	"sort"

	"github.com/DRSN-tech/similarity-backend/internal/catalog"
	"github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/ranking"
	"github.com/DRSN-tech/similarity-backend/internal/vector"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
)

// SearchUseCase реализует поиск похожих товаров: кодек → снимок каталога →
// ранжирование → сборка результата. При включённом ускоряющем индексе выдача
// Qdrant приводится к эталонному порядку и собирается из того же снимка.
type SearchUseCase struct {
	store     *catalog.Store
	codec     *vector.Codec
	ranker    *ranking.Ranker
	embedder  EmbedderInfra
	indexRepo EmbeddingIndexRepository
	logger    logger.Logger
	cfg       *cfg.SearchCfg
}

func NewSearchUC(
	store *catalog.Store,
	codec *vector.Codec,
	ranker *ranking.Ranker,
	embedder EmbedderInfra,
	indexRepo EmbeddingIndexRepository,
	logger logger.Logger,
	cfg *cfg.SearchCfg,
) *SearchUseCase {
	return &SearchUseCase{
		store:     store,
		codec:     codec,
		ranker:    ranker,
		embedder:  embedder,
		indexRepo: indexRepo,
		logger:    logger,
		cfg:       cfg,
	}
}

// Search выполняет поиск по готовому эмбеддингу запроса.
func (s *SearchUseCase) Search(ctx context.Context, req *SearchReq) (*SearchRes, error) {
	const op = "SearchUseCase.Search"

	query, err := s.codec.Normalize(req.Embedding)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	limit := s.clampLimit(req.Limit)
	minSim := clampMinSimilarity(req.MinSimilarity)

	snapshot := s.store.All()
	byID := ranking.SnapshotIndex(snapshot)

	if s.cfg.UseIndex && s.indexRepo != nil {
		res, indexErr := s.searchViaIndex(ctx, query, limit, minSim, byID)
		if indexErr == nil {
			return res, nil
		}
		// Индекс — только ускоритель: при сбое откатываемся на эталонный перебор
		s.logger.Warnf("%s: index search failed, falling back to reference scan: %v", op, indexErr)
	}

	candidates, err := s.ranker.Rank(query, snapshot, limit, minSim)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	records, err := ranking.Assemble(candidates, byID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &SearchRes{Results: records, Limit: limit, MinSim: minSim}, nil
}

// SearchByImage векторизует изображение внешним сервисом и ищет по результату.
func (s *SearchUseCase) SearchByImage(ctx context.Context, req *SearchByImageReq) (*SearchRes, error) {
	const op = "SearchUseCase.SearchByImage"

	if len(req.Image.Data) == 0 {
		return nil, e.Wrap(op, e.ErrNoImage)
	}

	vectors, err := s.embedder.Vectorize(ctx, NewVectorizeReq([]ProductImage{req.Image}))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if len(vectors) == 0 {
		return nil, e.Wrap(op, e.ErrEmptyVector)
	}

	return s.Search(ctx, NewSearchReq(vectors[0].Vector, req.Limit, req.MinSimilarity))
}

// searchViaIndex запрашивает ускоряющий индекс и приводит его выдачу к
// детерминированному эталонному порядку (score по убыванию, ID по возрастанию).
func (s *SearchUseCase) searchViaIndex(
	ctx context.Context,
	query []float32,
	limit int,
	minSim float64,
	byID map[string]domain.Product,
) (*SearchRes, error) {
	candidates, err := s.indexRepo.Search(ctx, query, limit, minSim)
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].ProductID < candidates[j].ProductID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	records, err := ranking.Assemble(candidates, byID)
	if err != nil {
		return nil, err
	}

	return &SearchRes{Results: records, Limit: limit, MinSim: minSim}, nil
}

// clampLimit приводит лимит к диапазону [1, MaxLimit]; нулевой — к значению по умолчанию.
func (s *SearchUseCase) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

// clampMinSimilarity приводит порог к диапазону [0, 1].
func clampMinSimilarity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
