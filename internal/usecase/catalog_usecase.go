package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DRSN-tech/similarity-backend/internal/catalog"
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/DRSN-tech/similarity-backend/internal/vector"
	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/DRSN-tech/similarity-backend/pkg/logger"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
)

// CatalogUseCase реализует управление каталогом: пакетную загрузку,
// очистку, выдачу карточек товаров и статистику.
type CatalogUseCase struct {
	store       *catalog.Store
	codec       *vector.Codec
	productRepo ProductRepository
	outboxRepo  OutboxRepository
	indexRepo   EmbeddingIndexRepository
	cacheRepo   CacheRepository
	embedder    EmbedderInfra
	imagesInfra ImagesInfra
	dbPool      transaction.Transactional
	logger      logger.Logger
}

func NewCatalogUC(
	store *catalog.Store,
	codec *vector.Codec,
	productRepo ProductRepository,
	outboxRepo OutboxRepository,
	indexRepo EmbeddingIndexRepository,
	cacheRepo CacheRepository,
	embedder EmbedderInfra,
	imagesInfra ImagesInfra,
	dbPool transaction.Transactional,
	logger logger.Logger,
) *CatalogUseCase {
	return &CatalogUseCase{
		store:       store,
		codec:       codec,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		indexRepo:   indexRepo,
		cacheRepo:   cacheRepo,
		embedder:    embedder,
		imagesInfra: imagesInfra,
		dbPool:      dbPool,
		logger:      logger,
	}
}

// Populate выполняет пакетную загрузку каталога. Ошибка одного элемента не
// прерывает пакет: элемент пропускается и попадает в отчёт, остальные
// обрабатываются дальше.
func (c *CatalogUseCase) Populate(ctx context.Context, req *PopulateReq) (*PopulateRes, error) {
	const op = "CatalogUseCase.Populate"

	report := &PopulateRes{}
	inserted := make([]domain.Product, 0, len(req.Items))

	for i := range req.Items {
		item := &req.Items[i]

		product, err := c.populateItem(ctx, item, req.Upsert)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, catalog.ItemError{ID: item.ID, Reason: err.Error()})
			c.logger.Warnf("%s: item %q skipped: %v", op, item.ID, err)
			continue
		}

		report.Inserted++
		inserted = append(inserted, *product)
	}

	if len(inserted) > 0 {
		// Индекс — ускоритель: его сбой не откатывает уже сохранённые товары
		if err := c.indexRepo.Upsert(ctx, inserted); err != nil {
			c.logger.Warnf("%s: index upsert failed: %v", op, err)
		}

		ids := make([]string, 0, len(inserted))
		for i := range inserted {
			ids = append(ids, inserted[i].ID)
		}
		if err := c.cacheRepo.DeleteProducts(ctx, ids); err != nil {
			c.logger.Warnf("%s: cache invalidation failed: %v", op, err)
		}
	}

	return report, nil
}

// populateItem проверяет один элемент, сохраняет его в БД вместе с outbox-событием
// в одной транзакции и добавляет в каталог в памяти.
func (c *CatalogUseCase) populateItem(ctx context.Context, item *PopulateItem, upsert bool) (retProduct *domain.Product, retErr error) {
	if item.ID == "" {
		return nil, e.ErrEmptyID
	}
	if !upsert {
		if _, err := c.store.GetByID(item.ID); err == nil {
			return nil, e.ErrDuplicateID
		}
	}
	if _, err := c.codec.Normalize(item.Embedding); err != nil {
		return nil, err
	}

	product := item.ToDomain()

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, c.dbPool)
	if err != nil {
		return nil, err
	}
	defer func() {
		if retErr != nil && tx.IsActive() {
			tx.Rollback(ctx)
		}
	}()
	ctx = context.WithValue(ctx, "tx", tx.Transaction())

	if err = c.productRepo.Upsert(ctx, product); err != nil {
		return nil, err
	}

	outbox := NewOutboxEvent(EventCatalogUpsert, product.ID, nil)
	payload, err := json.Marshal(NewCatalogChangeEvent(outbox.EventID, EventCatalogUpsert, product.ID, product.ImageKey))
	if err != nil {
		return nil, err
	}
	outbox.Payload = payload
	if _, err = c.outboxRepo.Create(ctx, outbox); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	if err = c.store.Insert(*product, upsert); err != nil {
		return nil, err
	}

	return product, nil
}

// Clear полностью очищает каталог: БД, индекс, кэш и состояние в памяти.
func (c *CatalogUseCase) Clear(ctx context.Context) (retErr error) {
	const op = "CatalogUseCase.Clear"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, c.dbPool)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if retErr != nil && tx.IsActive() {
			tx.Rollback(ctx)
		}
	}()
	ctx = context.WithValue(ctx, "tx", tx.Transaction())

	if err = c.productRepo.DeleteAll(ctx); err != nil {
		return e.Wrap(op, err)
	}

	outbox := NewOutboxEvent(EventCatalogClear, "", nil)
	payload, err := json.Marshal(NewCatalogChangeEvent(outbox.EventID, EventCatalogClear, "", ""))
	if err != nil {
		return e.Wrap(op, err)
	}
	outbox.Payload = payload
	if _, err = c.outboxRepo.Create(ctx, outbox); err != nil {
		return e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	c.store.Clear()

	if err := c.indexRepo.Clear(ctx); err != nil {
		c.logger.Warnf("%s: index clear failed: %v", op, err)
	}
	if err := c.cacheRepo.InvalidateAll(ctx); err != nil {
		c.logger.Warnf("%s: cache invalidation failed: %v", op, err)
	}

	return nil
}

// GetProduct возвращает карточку товара: сначала из кэша, при промахе — из
// каталога с фоновым прогревом кэша.
func (c *CatalogUseCase) GetProduct(ctx context.Context, id string) (*ProductInfo, error) {
	const op = "CatalogUseCase.GetProduct"

	if id == "" {
		return nil, e.Wrap(op, e.ErrEmptyID)
	}

	if info, err := c.cacheRepo.GetProduct(ctx, id); err == nil && info != nil {
		return info, nil
	}

	product, err := c.store.GetByID(id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	info := NewProductInfo(&product)

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		if err := c.cacheRepo.SetProduct(bgCtx, info); err != nil {
			c.logger.Warnf("Failed to cache product in background: %v", e.Wrap(op, err))
		}
	}()

	return info, nil
}

// Stats возвращает статистику каталога и состояние модели векторизации.
// Недоступность сервиса векторизации не считается ошибкой статистики.
func (c *CatalogUseCase) Stats(ctx context.Context) (*StatsRes, error) {
	res := &StatsRes{
		ProductCount: c.store.Count(),
		Dimension:    c.codec.Dimension(),
	}

	info, err := c.embedder.ModelInfo(ctx)
	if err != nil {
		c.logger.Warnf("CatalogUseCase.Stats: embedder unavailable: %v", err)
		return res, nil
	}

	res.ModelName = info.ModelName
	res.ModelLoaded = info.Loaded

	return res, nil
}

// WarmStart восстанавливает каталог в памяти из БД при запуске приложения.
func (c *CatalogUseCase) WarmStart(ctx context.Context) error {
	const op = "CatalogUseCase.WarmStart"

	products, err := c.productRepo.GetAll(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	report := c.store.BulkLoad(products, true)
	if len(report.Errors) > 0 {
		c.logger.Warnf("%s: %d products rejected on warm start", op, len(report.Errors))
	}

	c.logger.Infof("%s: catalog restored, %d products", op, report.Inserted)

	if err := c.indexRepo.Upsert(ctx, c.store.All()); err != nil {
		c.logger.Warnf("%s: index warm-up failed: %v", op, err)
	}

	return nil
}

// UploadImages загружает изображения товаров в объектное хранилище и
// возвращает ключи, которые затем указываются в image_key при загрузке каталога.
func (c *CatalogUseCase) UploadImages(ctx context.Context, req *UploadImagesReq) (*UploadImagesRes, error) {
	const op = "CatalogUseCase.UploadImages"

	if len(req.Images) == 0 {
		return nil, e.Wrap(op, e.ErrNoImage)
	}
	for _, image := range req.Images {
		if len(image.Data) == 0 {
			return nil, e.Wrap(op, e.ErrNoImage)
		}
	}

	res, err := c.imagesInfra.UploadImages(ctx, req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// IsNotFound сообщает, означает ли ошибка отсутствие товара.
func IsNotFound(err error) bool {
	return errors.Is(err, e.ErrNotFound)
}
