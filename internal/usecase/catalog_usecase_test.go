package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/similarity-backend/internal/catalog"
	"github.com/DRSN-tech/similarity-backend/internal/cfg"
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/vector"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
)

type fakeCacheRepo struct {
	mu      sync.Mutex
	items   map[string]*ProductInfo
	getErr  error
	deleted []string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{items: map[string]*ProductInfo{}}
}

func (f *fakeCacheRepo) GetProduct(ctx context.Context, id string) (*ProductInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	info, ok := f.items[id]
	if !ok {
		return nil, e.ErrNotFound
	}
	return info, nil
}

func (f *fakeCacheRepo) SetProduct(ctx context.Context, info *ProductInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[info.ID] = info
	return nil
}

func (f *fakeCacheRepo) DeleteProducts(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeCacheRepo) InvalidateAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = map[string]*ProductInfo{}
	return nil
}

type fakeProductRepo struct {
	products []domain.Product
	getErr   error
}

func (f *fakeProductRepo) Upsert(ctx context.Context, product *domain.Product) error { return nil }

func (f *fakeProductRepo) GetAll(ctx context.Context) ([]domain.Product, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.products, nil
}

func (f *fakeProductRepo) DeleteAll(ctx context.Context) error { return nil }

func newCatalogFixture(t *testing.T, embedder EmbedderInfra) (*CatalogUseCase, *catalog.Store, *fakeIndexRepo, *fakeCacheRepo) {
	t.Helper()

	searchCfg := &cfg.SearchCfg{VectorSize: 2, MaxLimit: 3, DefaultLimit: 2}
	codec := vector.NewCodec(searchCfg.VectorSize)
	store := catalog.NewStore(codec)
	index := &fakeIndexRepo{}
	cache := newFakeCacheRepo()

	// Транзакции БД в этих сценариях не достигаются: валидация элементов
	// выполняется до открытия транзакции.
	uc := NewCatalogUC(store, codec, &fakeProductRepo{}, nil, index, cache, embedder, &fakeImagesInfra{}, nil, nopLogger{})
	return uc, store, index, cache
}

type fakeImagesInfra struct {
	uploadErr error
}

func (f *fakeImagesInfra) UploadImages(ctx context.Context, req *UploadImagesReq) (*UploadImagesRes, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	keys := make([]string, 0, len(req.Images))
	for _, image := range req.Images {
		keys = append(keys, req.Prefix+"/"+image.Name)
	}
	return NewUploadImagesRes(keys), nil
}

func (f *fakeImagesInfra) CleanupImages(keys []string) {}

func TestPopulateRejectsInvalidItems(t *testing.T) {
	uc, store, _, _ := newCatalogFixture(t, &fakeEmbedder{})

	req := &PopulateReq{Items: []PopulateItem{
		{ID: "", Name: "no id", Embedding: []float32{1, 0}},
		{ID: "bad-dim", Name: "bad", Embedding: []float32{1, 0, 0}},
	}}

	report, err := uc.Populate(context.Background(), req)
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}

	if report.Inserted != 0 {
		t.Fatalf("inserted: got %d want 0", report.Inserted)
	}
	if report.Skipped != 2 {
		t.Fatalf("skipped: got %d want 2", report.Skipped)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("errors: %+v", report.Errors)
	}
	if store.Count() != 0 {
		t.Fatalf("store must stay empty: %d", store.Count())
	}
}

func TestPopulateRejectsDuplicateWithoutUpsert(t *testing.T) {
	uc, store, _, _ := newCatalogFixture(t, &fakeEmbedder{})

	if err := store.Insert(*domain.NewProduct("a", "a", "", 0, "", "", "", []float32{1, 0}), false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	report, err := uc.Populate(context.Background(), &PopulateReq{
		Items:  []PopulateItem{{ID: "a", Name: "again", Embedding: []float32{0, 1}}},
		Upsert: false,
	})
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}

	if report.Skipped != 1 || len(report.Errors) != 1 {
		t.Fatalf("duplicate must be skipped: %+v", report)
	}
	got, _ := store.GetByID("a")
	if got.Embedding[0] != 1 {
		t.Fatalf("existing product must stay intact: %v", got.Embedding)
	}
}

func TestGetProductFromCache(t *testing.T) {
	uc, _, _, cache := newCatalogFixture(t, &fakeEmbedder{})

	cache.items["a"] = &ProductInfo{ID: "a", Name: "cached"}

	info, err := uc.GetProduct(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if info.Name != "cached" {
		t.Fatalf("expected cached copy, got %+v", info)
	}
}

func TestGetProductCacheMiss(t *testing.T) {
	uc, store, _, cache := newCatalogFixture(t, &fakeEmbedder{})

	if err := store.Insert(*domain.NewProduct("a", "from-store", "", 0, "", "", "", []float32{1, 0}), false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	info, err := uc.GetProduct(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if info.Name != "from-store" {
		t.Fatalf("expected store copy, got %+v", info)
	}

	// Фоновый прогрев кэша
	deadline := time.Now().Add(time.Second)
	for {
		cache.mu.Lock()
		_, warmed := cache.items["a"]
		cache.mu.Unlock()
		if warmed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cache was not warmed in background")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGetProductNotFound(t *testing.T) {
	uc, _, _, _ := newCatalogFixture(t, &fakeEmbedder{})

	if _, err := uc.GetProduct(context.Background(), "ghost"); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := uc.GetProduct(context.Background(), ""); !errors.Is(err, e.ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestStats(t *testing.T) {
	embedder := &fakeEmbedder{info: &ModelInfo{ModelName: "clip-vit", Dimension: 2, Loaded: true}}
	uc, store, _, _ := newCatalogFixture(t, embedder)

	if err := store.Insert(*domain.NewProduct("a", "a", "", 0, "", "", "", []float32{1, 0}), false); err != nil {
		t.Fatalf("seed: %v", err)
	}

	stats, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ProductCount != 1 || stats.Dimension != 2 {
		t.Fatalf("stats mismatch: %+v", stats)
	}
	if stats.ModelName != "clip-vit" || !stats.ModelLoaded {
		t.Fatalf("model info not joined: %+v", stats)
	}
}

func TestStatsEmbedderUnavailable(t *testing.T) {
	embedder := &fakeEmbedder{err: e.ErrEmbedderUnavailable}
	uc, _, _, _ := newCatalogFixture(t, embedder)

	// Недоступность векторизатора не ломает статистику каталога
	stats, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ModelName != "" || stats.ModelLoaded {
		t.Fatalf("expected empty model info, got %+v", stats)
	}
}

func TestWarmStart(t *testing.T) {
	uc, store, index, _ := newCatalogFixture(t, &fakeEmbedder{})
	uc.productRepo = &fakeProductRepo{products: []domain.Product{
		*domain.NewProduct("a", "a", "", 0, "", "", "", []float32{1, 0}),
		*domain.NewProduct("bad", "bad", "", 0, "", "", "", []float32{1, 0, 0}),
		*domain.NewProduct("b", "b", "", 0, "", "", "", []float32{0, 1}),
	}}

	if err := uc.WarmStart(context.Background()); err != nil {
		t.Fatalf("WarmStart: %v", err)
	}

	if store.Count() != 2 {
		t.Fatalf("restored count: got %d want 2", store.Count())
	}
	if len(index.upserted) != 2 {
		t.Fatalf("index warm-up: got %d products want 2", len(index.upserted))
	}
}

func TestUploadImages(t *testing.T) {
	uc, _, _, _ := newCatalogFixture(t, &fakeEmbedder{})

	res, err := uc.UploadImages(context.Background(), NewUploadImagesReq("products", []ProductImage{
		{Data: []byte{1}, Name: "a.jpg", MimeType: "image/jpeg"},
	}))
	if err != nil {
		t.Fatalf("UploadImages: %v", err)
	}
	if len(res.ImagesKeys) != 1 || res.ImagesKeys[0] != "products/a.jpg" {
		t.Fatalf("keys mismatch: %+v", res.ImagesKeys)
	}
}

func TestUploadImagesEmpty(t *testing.T) {
	uc, _, _, _ := newCatalogFixture(t, &fakeEmbedder{})

	if _, err := uc.UploadImages(context.Background(), NewUploadImagesReq("products", nil)); !errors.Is(err, e.ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	if _, err := uc.UploadImages(context.Background(), NewUploadImagesReq("products", []ProductImage{{Name: "empty.jpg"}})); !errors.Is(err, e.ErrNoImage) {
		t.Fatalf("expected ErrNoImage for empty data, got %v", err)
	}
}

func TestWarmStartRepoError(t *testing.T) {
	uc, _, _, _ := newCatalogFixture(t, &fakeEmbedder{})
	uc.productRepo = &fakeProductRepo{getErr: fmt.Errorf("db down")}

	if err := uc.WarmStart(context.Background()); err == nil {
		t.Fatalf("expected error when repository is unavailable")
	}
}
