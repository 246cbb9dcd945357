package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/DRSN-tech/similarity-backend/internal/catalog"
	"github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/ranking"
	"github.com/DRSN-tech/similarity-backend/internal/vector"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

const epsilon = 1e-6

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...any)          {}
func (nopLogger) Infof(format string, args ...any)           {}
func (nopLogger) Warnf(format string, args ...any)           {}
func (nopLogger) Errorf(err error, format string, args ...any) {}

type fakeIndexRepo struct {
	candidates []domain.ScoredCandidate
	searchErr  error
	upserted   []domain.Product
	cleared    bool
}

func (f *fakeIndexRepo) Upsert(ctx context.Context, products []domain.Product) error {
	f.upserted = append(f.upserted, products...)
	return nil
}

func (f *fakeIndexRepo) Search(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]domain.ScoredCandidate, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.candidates, nil
}

func (f *fakeIndexRepo) Clear(ctx context.Context) error {
	f.cleared = true
	return nil
}

type fakeEmbedder struct {
	vectors []VectorizeRes
	info    *ModelInfo
	err     error
}

func (f *fakeEmbedder) Vectorize(ctx context.Context, req *VectorizeReq) ([]VectorizeRes, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *fakeEmbedder) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func newSearchFixture(t *testing.T, searchCfg *cfg.SearchCfg, index EmbeddingIndexRepository) (*SearchUseCase, *catalog.Store) {
	t.Helper()

	codec := vector.NewCodec(searchCfg.VectorSize)
	store := catalog.NewStore(codec)
	uc := NewSearchUC(store, codec, ranking.NewRanker(), &fakeEmbedder{}, index, nopLogger{}, searchCfg)
	return uc, store
}

func defaultSearchCfg() *cfg.SearchCfg {
	return &cfg.SearchCfg{VectorSize: 2, MaxLimit: 3, DefaultLimit: 2, UseIndex: false}
}

func seedCatalog(t *testing.T, store *catalog.Store) {
	t.Helper()
	items := []domain.Product{
		*domain.NewProduct("a", "a", "", 0, "", "", "", []float32{1, 0}),
		*domain.NewProduct("b", "b", "", 0, "", "", "", []float32{0.9, 0.1}),
		*domain.NewProduct("c", "c", "", 0, "", "", "", []float32{0.5, 0.5}),
		*domain.NewProduct("d", "d", "", 0, "", "", "", []float32{0, 1}),
	}
	if report := store.BulkLoad(items, false); report.Skipped != 0 {
		t.Fatalf("seed failed: %+v", report.Errors)
	}
}

func TestSearchDefaultLimit(t *testing.T) {
	uc, store := newSearchFixture(t, defaultSearchCfg(), nil)
	seedCatalog(t, store)

	res, err := uc.Search(context.Background(), NewSearchReq([]float32{1, 0}, 0, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if res.Limit != 2 {
		t.Fatalf("limit: got %d want default 2", res.Limit)
	}
	if len(res.Results) != 2 {
		t.Fatalf("results: got %d want 2", len(res.Results))
	}
	if res.Results[0].Product.ID != "a" || res.Results[1].Product.ID != "b" {
		t.Fatalf("wrong order: %+v", res.Results)
	}
}

func TestSearchLimitClampedToMax(t *testing.T) {
	uc, store := newSearchFixture(t, defaultSearchCfg(), nil)
	seedCatalog(t, store)

	res, err := uc.Search(context.Background(), NewSearchReq([]float32{1, 0}, 100, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if res.Limit != 3 {
		t.Fatalf("limit: got %d want max 3", res.Limit)
	}
	if len(res.Results) != 3 {
		t.Fatalf("results: got %d want 3", len(res.Results))
	}
}

func TestSearchMinSimilarityClamped(t *testing.T) {
	uc, store := newSearchFixture(t, defaultSearchCfg(), nil)
	seedCatalog(t, store)

	// Отрицательный порог приводится к нулю
	res, err := uc.Search(context.Background(), NewSearchReq([]float32{1, 0}, 3, -5))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.MinSim != 0 {
		t.Fatalf("minSim: got %v want 0", res.MinSim)
	}

	// Порог выше единицы приводится к единице: остаётся только точное совпадение
	res, err = uc.Search(context.Background(), NewSearchReq([]float32{1, 0}, 3, 5))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.MinSim != 1 {
		t.Fatalf("minSim: got %v want 1", res.MinSim)
	}
	if len(res.Results) != 1 || res.Results[0].Product.ID != "a" {
		t.Fatalf("expected only exact match, got %+v", res.Results)
	}
}

func TestSearchDimensionMismatch(t *testing.T) {
	uc, store := newSearchFixture(t, defaultSearchCfg(), nil)
	seedCatalog(t, store)

	if _, err := uc.Search(context.Background(), NewSearchReq([]float32{1, 0, 0}, 5, 0)); !errors.Is(err, e.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearchEmptyCatalog(t *testing.T) {
	uc, _ := newSearchFixture(t, defaultSearchCfg(), nil)

	res, err := uc.Search(context.Background(), NewSearchReq([]float32{1, 0}, 5, 0))
	if err != nil {
		t.Fatalf("Search on empty catalog: %v", err)
	}
	if len(res.Results) != 0 {
		t.Fatalf("expected empty results, got %+v", res.Results)
	}
}

func TestSearchIndexFallbackOnError(t *testing.T) {
	searchCfg := defaultSearchCfg()
	searchCfg.UseIndex = true
	index := &fakeIndexRepo{searchErr: fmt.Errorf("qdrant down")}

	uc, store := newSearchFixture(t, searchCfg, index)
	seedCatalog(t, store)

	res, err := uc.Search(context.Background(), NewSearchReq([]float32{1, 0}, 2, 0))
	if err != nil {
		t.Fatalf("Search must fall back to reference scan: %v", err)
	}
	if len(res.Results) != 2 || res.Results[0].Product.ID != "a" {
		t.Fatalf("fallback results wrong: %+v", res.Results)
	}
}

type warnRecorder struct {
	nopLogger
	warns []string
}

func (l *warnRecorder) Warnf(format string, args ...any) {
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

func TestSearchIndexFallbackLogsCause(t *testing.T) {
	searchCfg := defaultSearchCfg()
	searchCfg.UseIndex = true
	index := &fakeIndexRepo{searchErr: fmt.Errorf("qdrant down")}
	log := &warnRecorder{}

	codec := vector.NewCodec(searchCfg.VectorSize)
	store := catalog.NewStore(codec)
	seedCatalog(t, store)
	uc := NewSearchUC(store, codec, ranking.NewRanker(), &fakeEmbedder{}, index, log, searchCfg)

	if _, err := uc.Search(context.Background(), NewSearchReq([]float32{1, 0}, 2, 0)); err != nil {
		t.Fatalf("Search must fall back to reference scan: %v", err)
	}

	if len(log.warns) != 1 {
		t.Fatalf("expected one fallback warning, got %v", log.warns)
	}
	// Оператор должен видеть причину отката, а не только сам факт
	if !strings.Contains(log.warns[0], "qdrant down") {
		t.Fatalf("fallback warning lost the cause: %q", log.warns[0])
	}
}

func TestSearchIndexResultsReordered(t *testing.T) {
	searchCfg := defaultSearchCfg()
	searchCfg.UseIndex = true
	// Индекс вернул равные score в произвольном порядке: выдача должна быть
	// переупорядочена детерминированно (score убыв., ID возр.) с рангами с единицы.
	index := &fakeIndexRepo{candidates: []domain.ScoredCandidate{
		{ProductID: "d", Similarity: 0.5},
		{ProductID: "a", Similarity: 1},
		{ProductID: "b", Similarity: 0.5},
	}}

	uc, store := newSearchFixture(t, searchCfg, index)
	seedCatalog(t, store)

	res, err := uc.Search(context.Background(), NewSearchReq([]float32{1, 0}, 3, 0))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	wantOrder := []string{"a", "b", "d"}
	for i, id := range wantOrder {
		if res.Results[i].Product.ID != id {
			t.Fatalf("position %d: got %q want %q", i, res.Results[i].Product.ID, id)
		}
		if res.Results[i].Rank != i+1 {
			t.Fatalf("rank at %d: got %d", i, res.Results[i].Rank)
		}
	}
}

func TestSearchByImage(t *testing.T) {
	searchCfg := defaultSearchCfg()
	codec := vector.NewCodec(searchCfg.VectorSize)
	store := catalog.NewStore(codec)
	seedCatalog(t, store)

	embedder := &fakeEmbedder{vectors: []VectorizeRes{{Vector: []float32{1, 0}}}}
	uc := NewSearchUC(store, codec, ranking.NewRanker(), embedder, nil, nopLogger{}, searchCfg)

	res, err := uc.SearchByImage(context.Background(), NewSearchByImageReq(ProductImage{Data: []byte{1}, Name: "q.jpg"}, 1, 0))
	if err != nil {
		t.Fatalf("SearchByImage: %v", err)
	}
	if len(res.Results) != 1 || res.Results[0].Product.ID != "a" {
		t.Fatalf("unexpected results: %+v", res.Results)
	}
	if math.Abs(res.Results[0].Similarity-1) > epsilon {
		t.Fatalf("similarity: got %v want 1", res.Results[0].Similarity)
	}
}

func TestSearchByImageWithoutImage(t *testing.T) {
	uc, _ := newSearchFixture(t, defaultSearchCfg(), nil)

	if _, err := uc.SearchByImage(context.Background(), NewSearchByImageReq(ProductImage{}, 1, 0)); !errors.Is(err, e.ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}
