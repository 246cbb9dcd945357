package usecase

import (
	"time"

	"github.com/DRSN-tech/similarity-backend/internal/catalog"
	"github.com/DRSN-tech/similarity-backend/internal/domain"
	"github.com/google/uuid"
)

// SEARCH USECASE

// SearchReq — запрос поиска по готовому эмбеддингу.
type SearchReq struct {
	Embedding     []float32
	Limit         int
	MinSimilarity float64
}

// SearchByImageReq — запрос поиска по загруженному изображению.
type SearchByImageReq struct {
	Image         ProductImage
	Limit         int
	MinSimilarity float64
}

// ProductImage представляет изображение, загруженное через multipart/form-data.
type ProductImage struct {
	Data     []byte // байты изображения
	MimeType string // Content-Type из multipart (image/jpeg)
	Size     int64  // фактический размер в байтах
	Name     string // оригинальное имя файла (для логов)
}

// SearchRes — упорядоченная выдача с оценками близости.
type SearchRes struct {
	Results []domain.ResultRecord
	Limit   int
	MinSim  float64
}

// StatsRes — статистика каталога и модели векторизации.
type StatsRes struct {
	ProductCount int
	Dimension    int
	ModelName    string
	ModelLoaded  bool
}

// CATALOG USECASE

// PopulateItem — один товар пакетной загрузки каталога.
type PopulateItem struct {
	ID         string
	Name       string
	Brand      string
	Price      int64
	Category   string
	ProductURL string
	ImageKey   string
	Embedding  []float32
}

// PopulateReq — запрос пакетной загрузки каталога.
type PopulateReq struct {
	Items  []PopulateItem
	Upsert bool
}

// PopulateRes — отчёт пакетной загрузки: ошибки элементов не прерывают пакет.
type PopulateRes struct {
	Inserted int
	Skipped  int
	Errors   []catalog.ItemError
}

// ProductInfo — DTO с информацией о товаре для внешнего использования и кэша.
type ProductInfo struct {
	ID         string
	Name       string
	Brand      string
	Price      int64
	Category   string
	ProductURL string
	ImageKey   string
}

// INFRASTRUCTURE

// VectorizeReq — запрос на векторизацию изображений.
type VectorizeReq struct {
	Images []ProductImage
}

// VectorizeRes — результат векторизации одного изображения.
type VectorizeRes struct {
	Vector       []float32
	ModelVersion string
}

// ModelInfo описывает модель векторизации внешнего сервиса.
type ModelInfo struct {
	ModelName string
	Dimension int
	Loaded    bool
}

// WriteRawMessageReq — сообщение для брокера, ключ — ID товара.
type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// UploadImagesReq — запрос на загрузку изображений товара в S3.
type UploadImagesReq struct {
	Prefix string
	Images []ProductImage
}

// UploadImagesRes — результат загрузки изображений (ключи в MinIO).
type UploadImagesRes struct {
	ImagesKeys []string
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const (
	EventCatalogUpsert OutboxEventType = "catalog.upsert"
	EventCatalogClear  OutboxEventType = "catalog.clear"
)

// OutboxEvent — запись transactional outbox: событие каталога, ожидающее
// публикации в Kafka.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	ProductID   string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// CatalogChangeEvent — полезная нагрузка события каталога (JSON).
type CatalogChangeEvent struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	ProductID  string `json:"product_id,omitempty"`
	ImageKey   string `json:"image_key,omitempty"`
	OccurredAt int64  `json:"occurred_at"`
}

// MAPPERS

func NewSearchReq(embedding []float32, limit int, minSimilarity float64) *SearchReq {
	return &SearchReq{
		Embedding:     embedding,
		Limit:         limit,
		MinSimilarity: minSimilarity,
	}
}

func NewSearchByImageReq(image ProductImage, limit int, minSimilarity float64) *SearchByImageReq {
	return &SearchByImageReq{
		Image:         image,
		Limit:         limit,
		MinSimilarity: minSimilarity,
	}
}

func NewProductImage(data []byte, mimeType string, size int64, name string) *ProductImage {
	return &ProductImage{
		Data:     data,
		MimeType: mimeType,
		Size:     size,
		Name:     name,
	}
}

func NewVectorizeReq(images []ProductImage) *VectorizeReq {
	return &VectorizeReq{Images: images}
}

func NewVectorizeRes(vector []float32, modelVersion string) *VectorizeRes {
	return &VectorizeRes{
		Vector:       vector,
		ModelVersion: modelVersion,
	}
}

func NewProductInfo(p *domain.Product) *ProductInfo {
	return &ProductInfo{
		ID:         p.ID,
		Name:       p.Name,
		Brand:      p.Brand,
		Price:      p.Price,
		Category:   p.Category,
		ProductURL: p.ProductURL,
		ImageKey:   p.ImageKey,
	}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}

func NewUploadImagesReq(prefix string, images []ProductImage) *UploadImagesReq {
	return &UploadImagesReq{
		Prefix: prefix,
		Images: images,
	}
}

func NewUploadImagesRes(imagesKeys []string) *UploadImagesRes {
	return &UploadImagesRes{ImagesKeys: imagesKeys}
}

func NewOutboxEvent(eventType OutboxEventType, productID string, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		ProductID: productID,
		Payload:   payload,
		Status:    Pending,
		CreatedAt: time.Now().UTC(),
	}
}

func NewCatalogChangeEvent(eventID string, eventType OutboxEventType, productID, imageKey string) *CatalogChangeEvent {
	return &CatalogChangeEvent{
		EventID:    eventID,
		EventType:  string(eventType),
		ProductID:  productID,
		ImageKey:   imageKey,
		OccurredAt: time.Now().UTC().UnixNano(),
	}
}

// ToDomain преобразует элемент пакетной загрузки в доменный товар.
func (i *PopulateItem) ToDomain() *domain.Product {
	return domain.NewProduct(i.ID, i.Name, i.Brand, i.Price, i.Category, i.ProductURL, i.ImageKey, i.Embedding)
}
